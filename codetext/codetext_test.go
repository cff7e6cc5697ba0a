package codetext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_IndentsEachLine(t *testing.T) {
	b := NewWithIndent("  ")
	b.AppendLine("export interface Job {")
	b.Block(func(b *Builder) {
		b.Line("id: %s;", "string")
		b.Append("meta: {\n  done: boolean;\n}\n")
	})
	b.AppendLine("}")

	want := "export interface Job {\n" +
		"  id: string;\n" +
		"  meta: {\n" +
		"    done: boolean;\n" +
		"  }\n" +
		"}\n"
	assert.Equal(t, want, b.String())
}

func TestBuilder_EmptyLinesStayEmpty(t *testing.T) {
	b := New().Indent()
	b.Append("a\n\nb\n")
	assert.Equal(t, "\ta\n\n\tb\n", b.String())
}

func TestBuilder_AppendContinuesLine(t *testing.T) {
	b := New().Indent()
	b.Append("x").Append(" = ").AppendLine("1")
	assert.Equal(t, "\tx = 1\n", b.String())
}

func TestBuilder_EnsureNewline(t *testing.T) {
	b := New()
	b.EnsureNewline()
	assert.Equal(t, "", b.String())

	b.Append("a").EnsureNewline().EnsureNewline()
	assert.Equal(t, "a\n", b.String())
}

func TestBuilder_UnindentStopsAtZero(t *testing.T) {
	b := New()
	b.Unindent().Unindent()
	assert.Equal(t, 0, b.Level())
	b.Indent()
	assert.Equal(t, 1, b.Level())
}

func TestBuilder_ZeroValueUsesDefaultIndent(t *testing.T) {
	var b Builder
	b.Indent().AppendLine("x")
	assert.Equal(t, "\tx\n", b.String())
}

func TestNewWithIndent_RejectsNewlines(t *testing.T) {
	assert.Panics(t, func() { NewWithIndent("\n") })
}

func TestSections(t *testing.T) {
	b := New()
	b.Append("type Status = ")
	Sections(b, []string{"queued", "running", "done"}, " | ", func(b *Builder, v string) {
		b.Append(`"` + v + `"`)
	})
	assert.Equal(t, `type Status = "queued" | "running" | "done"`+"\n", b.String())
}

func TestSections_Empty(t *testing.T) {
	b := New()
	Sections(b, nil, ", ", func(b *Builder, v int) {})
	assert.Equal(t, "", b.String())
}
