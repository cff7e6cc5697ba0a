// Package codetext builds generated source text with tracked indentation.
package codetext

import (
	"fmt"
	"strings"
)

// DefaultIndent is one tab, matching gofmt.
const DefaultIndent = "\t"

// Builder accumulates source text. Every line started while the builder is
// indented gets the current indentation prefix; empty lines stay empty.
// The zero value is ready to use and indents with DefaultIndent.
type Builder struct {
	sb     strings.Builder
	indent string
	level  int
}

// New returns a Builder indenting with DefaultIndent.
func New() *Builder {
	return &Builder{indent: DefaultIndent}
}

// NewWithIndent returns a Builder indenting with indent, e.g. "  ".
func NewWithIndent(indent string) *Builder {
	if strings.ContainsAny(indent, "\r\n") {
		panic("codetext: indentation cannot contain newlines")
	}
	return &Builder{indent: indent}
}

// Level is the current indentation depth.
func (b *Builder) Level() int { return b.level }

// Indent increases the depth by one.
func (b *Builder) Indent() *Builder {
	b.level++
	return b
}

// Unindent decreases the depth by one, stopping at zero.
func (b *Builder) Unindent() *Builder {
	if b.level > 0 {
		b.level--
	}
	return b
}

// Append writes text. Text spanning several lines is indented line by line.
func (b *Builder) Append(text string) *Builder {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.sb.WriteByte('\n')
		}
		if line == "" {
			continue
		}
		if b.atLineStart() {
			b.writeIndent()
		}
		b.sb.WriteString(line)
	}
	return b
}

// AppendLine writes text followed by a newline.
func (b *Builder) AppendLine(text string) *Builder {
	return b.Append(text).Newline()
}

// Line writes a formatted line.
func (b *Builder) Line(format string, args ...any) *Builder {
	return b.AppendLine(fmt.Sprintf(format, args...))
}

// Newline writes a bare newline.
func (b *Builder) Newline() *Builder {
	b.sb.WriteByte('\n')
	return b
}

// EnsureNewline ends the current line unless the text is empty or already
// ends with a newline.
func (b *Builder) EnsureNewline() *Builder {
	if !b.atLineStart() {
		b.Newline()
	}
	return b
}

// Block runs fn one level deeper.
func (b *Builder) Block(fn func(b *Builder)) *Builder {
	b.Indent()
	fn(b)
	return b.Unindent()
}

// String returns the text built so far.
func (b *Builder) String() string { return b.sb.String() }

func (b *Builder) atLineStart() bool {
	s := b.sb.String()
	return s == "" || s[len(s)-1] == '\n'
}

func (b *Builder) writeIndent() {
	indent := b.indent
	if indent == "" {
		indent = DefaultIndent
	}
	for i := 0; i < b.level; i++ {
		b.sb.WriteString(indent)
	}
}

// Sections builds one section per value with sep between them, then ends
// the line.
func Sections[T any](b *Builder, values []T, sep string, build func(b *Builder, v T)) *Builder {
	for i, v := range values {
		if i > 0 {
			b.Append(sep)
		}
		build(b, v)
	}
	return b.EnsureNewline()
}
