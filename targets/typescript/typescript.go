// Package typescript generates TypeScript type definitions from Go packages.
//
// Exported structs become interfaces and string types with constants become
// union types. Field names follow json tags; a tstype tag overrides the
// inferred type:
//
//	Started *time.Time `json:"started,omitempty"`       // started?: string | null
//	Meta    Raw        `json:"meta" tstype:"Record<string, unknown>"`
//	Secret  string     `json:"-"`                       // skipped
package typescript

import (
	"fmt"
	"go/ast"
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
const Name = "typescript"

// TypeMapping defines how Go types map to TypeScript types
var TypeMapping = map[string]string{
	"string":                 "string",
	"int":                    "number",
	"int8":                   "number",
	"int16":                  "number",
	"int32":                  "number",
	"int64":                  "number",
	"uint":                   "number",
	"uint8":                  "number",
	"uint16":                 "number",
	"uint32":                 "number",
	"uint64":                 "number",
	"float32":                "number",
	"float64":                "number",
	"bool":                   "boolean",
	"byte":                   "number",
	"rune":                   "number",
	"any":                    "unknown",
	"error":                  "string",
	"time.Time":              "string",
	"time.Duration":          "number",
	"json.RawMessage":        "unknown",
	"map[string]interface{}": "Record<string, unknown>",
	"sql.NullString":         "string | null",
	"sql.NullInt64":          "number | null",
	"sql.NullInt32":          "number | null",
	"sql.NullBool":           "boolean | null",
	"sql.NullTime":           "string | null",
}

// Generator is the TypeScript producer. It is stateless between units.
type Generator struct {
	log *zap.SugaredLogger
}

// New creates a generator logging to log.
func New(log *zap.SugaredLogger) *Generator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Generator{log: log}
}

// Target describes the generator for registration. Constructor lets a
// dependency-injection step supply the logger.
func Target() pipeline.Target {
	return pipeline.Target{
		Name:        Name,
		Description: "TypeScript interfaces and string unions for exported types",
		New: func() (pipeline.Producer, error) {
			return New(logger.ComponentLogger(Name)), nil
		},
		Constructor: New,
		Requires:    ">= 0.1.0-0",
	}
}

// Produce emits <package>.ts for Go package units.
func (g *Generator) Produce(rc pipeline.RunContext) error {
	pkg, ok := gopkg.FromUnit(rc.Unit)
	if !ok {
		rc.AddError(fmt.Sprintf("unit %q is not a Go package", rc.Unit.Name()), nil)
		return nil
	}
	if err := rc.Err(); err != nil {
		return err
	}

	result := Generate(pkg)
	for _, e := range result.Errors {
		rc.AddError(e.Message, e.Pos)
	}
	if len(result.Types) == 0 {
		g.log.Debugw("No exported types", logger.FieldUnit, pkg.Name())
		return nil
	}

	name := pkg.PkgName() + ".ts"
	rc.AddSource(name, GenerateFile(result))
	g.log.Debugw("Generated TypeScript",
		logger.FieldUnit, pkg.Name(),
		logger.FieldArtifact, name,
		logger.FieldCount, len(result.Types))
	return nil
}

// Result holds the generated TypeScript for all types in a package.
type Result struct {
	// PackagePath is the import path that was processed
	PackagePath string

	// Types maps Go type names to their TypeScript definitions
	Types map[string]string

	// Errors lists fields that have no TypeScript representation
	Errors []FieldError
}

// FieldError is a field the generator could not translate.
type FieldError struct {
	Message string
	Pos     token.Position
}

// Generate translates the exported types of pkg.
func Generate(pkg *gopkg.Package) *Result {
	result := &Result{
		PackagePath: pkg.Name(),
		Types:       make(map[string]string),
	}

	// Named string types and their constants can live in different files,
	// so collect across the whole package before emitting unions.
	stringTypes := make(map[string]bool)
	constValues := make(map[string][]string)

	for _, file := range pkg.Syntax() {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.GenDecl:
				if node.Tok == token.CONST {
					collectConsts(node, constValues)
				}
			case *ast.FuncDecl:
				return false
			case *ast.TypeSpec:
				if !node.Name.IsExported() || node.TypeParams != nil {
					return false
				}
				switch t := node.Type.(type) {
				case *ast.StructType:
					result.Types[node.Name.Name] = generateInterface(pkg, result, node.Name.Name, t)
				case *ast.Ident:
					if t.Name == "string" {
						stringTypes[node.Name.Name] = true
					}
				}
				return false
			}
			return true
		})
	}

	for typeName := range stringTypes {
		if values := constValues[typeName]; len(values) > 0 {
			result.Types[typeName] = generateUnionType(typeName, values)
		}
	}

	sort.Slice(result.Errors, func(i, j int) bool {
		a, b := result.Errors[i].Pos, result.Errors[j].Pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Offset < b.Offset
	})
	return result
}

// collectConsts extracts string const values grouped by their declared
// type. A spec without a type inherits the previous one, as with iota.
func collectConsts(decl *ast.GenDecl, constValues map[string][]string) {
	var currentType string

	for _, spec := range decl.Specs {
		valueSpec, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		if ident, ok := valueSpec.Type.(*ast.Ident); ok {
			currentType = ident.Name
		}
		if currentType == "" {
			continue
		}

		for _, value := range valueSpec.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			if s, err := strconv.Unquote(lit.Value); err == nil {
				constValues[currentType] = append(constValues[currentType], s)
			}
		}
	}
}

func generateUnionType(name string, values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Quote(v)
	}
	return fmt.Sprintf("export type %s = %s;", name, strings.Join(parts, " | "))
}

func generateInterface(pkg *gopkg.Package, result *Result, name string, st *ast.StructType) string {
	var extends []string
	b := codetext.NewWithIndent("  ")

	var fields []string
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			if base := embeddedName(field.Type); base != "" && ast.IsExported(base) {
				extends = append(extends, base)
			}
			continue
		}

		tags := parseFieldTags(field.Tag)
		if tags.Skip {
			continue
		}

		for _, fieldName := range field.Names {
			if !fieldName.IsExported() {
				continue
			}

			tsType := tags.TSType
			if tsType == "" {
				if kind := unsupportedKind(field.Type); kind != "" {
					result.Errors = append(result.Errors, FieldError{
						Message: fmt.Sprintf("%s.%s: %s fields have no TypeScript representation", name, fieldName.Name, kind),
						Pos:     pkg.Position(fieldName.Pos()),
					})
					continue
				}
				tsType = goTypeToTS(field.Type)
				if isPointerType(field.Type) {
					tsType += " | null"
				}
			}

			jsonName := tags.JSONName
			if jsonName == "" {
				jsonName = fieldName.Name
			}
			optional := ""
			if tags.Omitempty || tags.TSOptional || isPointerType(field.Type) {
				optional = "?"
			}
			fields = append(fields, fmt.Sprintf("%s%s: %s;", jsonName, optional, tsType))
		}
	}

	b.Append("export interface " + name)
	if len(extends) > 0 {
		b.Append(" extends " + strings.Join(extends, ", "))
	}
	b.AppendLine(" {")
	b.Block(func(b *codetext.Builder) {
		for _, f := range fields {
			b.AppendLine(f)
		}
	})
	b.Append("}")
	return b.String()
}

// FieldTagInfo contains parsed struct tag information for TypeScript generation
type FieldTagInfo struct {
	JSONName   string // Field name from json tag
	Omitempty  bool   // Has omitempty option
	TSType     string // Custom TypeScript type from tstype tag
	TSOptional bool   // Force optional with tstype:",optional"
	Skip       bool   // Skip this field (json:"-" or tstype:"-")
}

func parseFieldTags(tag *ast.BasicLit) FieldTagInfo {
	info := FieldTagInfo{}
	if tag == nil {
		return info
	}

	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return info
	}
	st := reflect.StructTag(raw)

	if jsonTag := st.Get("json"); jsonTag != "" {
		parts := strings.Split(jsonTag, ",")
		if parts[0] == "-" && len(parts) == 1 {
			info.Skip = true
			return info
		}
		info.JSONName = parts[0]
		for _, part := range parts[1:] {
			if part == "omitempty" || part == "omitzero" {
				info.Omitempty = true
			}
		}
	}

	if tstypeTag := st.Get("tstype"); tstypeTag != "" {
		if tstypeTag == "-" {
			info.Skip = true
			return info
		}
		parts := strings.Split(tstypeTag, ",")
		info.TSType = parts[0]
		for _, part := range parts[1:] {
			if part == "optional" {
				info.TSOptional = true
			}
		}
	}

	return info
}

func isPointerType(expr ast.Expr) bool {
	_, ok := expr.(*ast.StarExpr)
	return ok
}

func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return embeddedName(t.X)
	}
	return ""
}

// unsupportedKind names the kind of expr if it, or anything it is built
// from, cannot be serialized.
func unsupportedKind(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.ChanType:
		return "chan"
	case *ast.FuncType:
		return "func"
	case *ast.StarExpr:
		return unsupportedKind(t.X)
	case *ast.ArrayType:
		return unsupportedKind(t.Elt)
	case *ast.MapType:
		return unsupportedKind(t.Value)
	}
	return ""
}

// goTypeToTS converts a Go AST type expression to a TypeScript type string
func goTypeToTS(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		if ts, ok := TypeMapping[t.Name]; ok {
			return ts
		}
		// A reference to another type in the same package
		return t.Name

	case *ast.SelectorExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			if ts, ok := TypeMapping[ident.Name+"."+t.Sel.Name]; ok {
				return ts
			}
			return t.Sel.Name
		}
		return "unknown"

	case *ast.StarExpr:
		return goTypeToTS(t.X)

	case *ast.ArrayType:
		if ident, ok := t.Elt.(*ast.Ident); ok && ident.Name == "byte" && t.Len == nil {
			// encoding/json writes []byte as base64
			return "string"
		}
		elem := goTypeToTS(t.Elt)
		if strings.Contains(elem, " ") {
			elem = "(" + elem + ")"
		}
		return elem + "[]"

	case *ast.MapType:
		return fmt.Sprintf("Record<%s, %s>", goTypeToTS(t.Key), goTypeToTS(t.Value))

	case *ast.InterfaceType:
		return "unknown"
	}
	return "unknown"
}

// GenerateFile creates a complete TypeScript file from a Result, with
// types in name order.
func GenerateFile(result *Result) string {
	b := codetext.NewWithIndent("  ")
	b.AppendLine("// Code generated by genpipe. DO NOT EDIT.")
	b.Line("// Source: %s", result.PackagePath)
	b.Newline()

	names := make([]string, 0, len(result.Types))
	for name := range result.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		if i > 0 {
			b.Newline()
		}
		b.AppendLine(result.Types[name])
	}
	return b.String()
}
