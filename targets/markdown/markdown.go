// Package markdown generates a reference page for the exported types of a
// Go package: declaration, doc comment and a field table per type.
package markdown

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/genpipe/codetext"
	"github.com/teranos/genpipe/gopkg"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// Name is the target name used in the registry and in configuration.
const Name = "markdown"

// Generator is the markdown producer.
type Generator struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Generator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Generator{log: log}
}

// Target describes the generator for registration.
func Target() pipeline.Target {
	return pipeline.Target{
		Name:        Name,
		Description: "Markdown reference of exported types",
		New: func() (pipeline.Producer, error) {
			return New(logger.ComponentLogger(Name)), nil
		},
		Constructor: New,
	}
}

// Produce emits <package>.md for Go package units.
func (g *Generator) Produce(rc pipeline.RunContext) error {
	pkg, ok := gopkg.FromUnit(rc.Unit)
	if !ok {
		rc.AddError(fmt.Sprintf("unit %q is not a Go package", rc.Unit.Name()), nil)
		return nil
	}
	if err := rc.Err(); err != nil {
		return err
	}

	docs, err := collect(pkg)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		g.log.Debugw("No exported types", logger.FieldUnit, pkg.Name())
		return nil
	}

	rc.AddSource(pkg.PkgName()+".md", Render(pkg.Name(), docs))
	return nil
}

// TypeDoc is everything the page shows about one type.
type TypeDoc struct {
	Name   string
	Doc    string
	Decl   string
	Fields []FieldDoc
	Values []string // constants of a named string type
}

type FieldDoc struct {
	Name string
	Type string
	JSON string
	Doc  string
}

func collect(pkg *gopkg.Package) ([]TypeDoc, error) {
	byName := make(map[string]*TypeDoc)
	constValues := make(map[string][]string)

	for _, file := range pkg.Syntax() {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			switch gen.Tok {
			case token.CONST:
				collectConsts(gen, constValues)
			case token.TYPE:
				for _, spec := range gen.Specs {
					ts := spec.(*ast.TypeSpec)
					if !ts.Name.IsExported() {
						continue
					}
					td, err := describe(pkg.Fset(), gen, ts)
					if err != nil {
						return nil, err
					}
					byName[td.Name] = td
				}
			}
		}
	}

	docs := make([]TypeDoc, 0, len(byName))
	for name, td := range byName {
		td.Values = constValues[name]
		docs = append(docs, *td)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func describe(fset *token.FileSet, gen *ast.GenDecl, ts *ast.TypeSpec) (*TypeDoc, error) {
	doc := ts.Doc
	if doc == nil && len(gen.Specs) == 1 {
		doc = gen.Doc
	}

	// Print the spec without its comments so the block stays compact.
	bare := *ts
	bare.Doc, bare.Comment = nil, nil
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, &ast.GenDecl{Tok: token.TYPE, Specs: []ast.Spec{&bare}}); err != nil {
		return nil, err
	}

	td := &TypeDoc{
		Name: ts.Name.Name,
		Doc:  strings.TrimSpace(doc.Text()),
		Decl: buf.String(),
	}

	if st, ok := ts.Type.(*ast.StructType); ok {
		for _, f := range st.Fields.List {
			typ := fieldType(f.Type)
			if len(f.Names) == 0 {
				td.Fields = append(td.Fields, FieldDoc{Name: typ, Type: typ, Doc: "embedded"})
				continue
			}
			for _, n := range f.Names {
				if !n.IsExported() {
					continue
				}
				td.Fields = append(td.Fields, FieldDoc{
					Name: n.Name,
					Type: typ,
					JSON: jsonName(f.Tag),
					Doc:  strings.TrimSpace(f.Doc.Text()),
				})
			}
		}
	}
	return td, nil
}

// fieldType prints expr for a table cell.
func fieldType(expr ast.Expr) string {
	return strings.ReplaceAll(exprString(expr), "|", `\|`)
}

func exprString(expr ast.Expr) string {
	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), expr); err != nil {
		return "?"
	}
	return buf.String()
}

func jsonName(tag *ast.BasicLit) string {
	if tag == nil {
		return ""
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return ""
	}
	name, _, _ := strings.Cut(reflect.StructTag(raw).Get("json"), ",")
	return name
}

func collectConsts(decl *ast.GenDecl, constValues map[string][]string) {
	var currentType string
	for _, spec := range decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if ident, ok := vs.Type.(*ast.Ident); ok {
			currentType = ident.Name
		}
		if currentType == "" {
			continue
		}
		for _, v := range vs.Values {
			if lit, ok := v.(*ast.BasicLit); ok && lit.Kind == token.STRING {
				if s, err := strconv.Unquote(lit.Value); err == nil {
					constValues[currentType] = append(constValues[currentType], s)
				}
			}
		}
	}
}

// Render builds the page for one package.
func Render(pkgPath string, docs []TypeDoc) string {
	b := codetext.New()
	b.Line("# %s", pkgPath)
	b.Newline()
	b.AppendLine("<!-- Code generated by genpipe. DO NOT EDIT. -->")
	b.Newline()

	codetext.Sections(b, docs, ", ", func(b *codetext.Builder, td TypeDoc) {
		b.Append(fmt.Sprintf("[%s](#%s)", td.Name, strings.ToLower(td.Name)))
	})

	for _, td := range docs {
		b.Newline()
		b.Line("## %s", td.Name)
		b.Newline()
		if td.Doc != "" {
			b.AppendLine(td.Doc)
			b.Newline()
		}
		b.AppendLine("```go")
		b.Append(td.Decl).EnsureNewline()
		b.AppendLine("```")

		if len(td.Values) > 0 {
			b.Newline()
			b.AppendLine("Values:")
			b.Newline()
			for _, v := range td.Values {
				b.Line("- `%q`", v)
			}
		}

		if len(td.Fields) > 0 {
			b.Newline()
			b.AppendLine("| Field | Type | JSON | Description |")
			b.AppendLine("| --- | --- | --- | --- |")
			for _, f := range td.Fields {
				b.Line("| %s | `%s` | %s | %s |", f.Name, f.Type, code(f.JSON), oneLine(f.Doc))
			}
		}
	}
	return b.String()
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + s + "`"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
