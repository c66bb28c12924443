package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// conditionalKinds are ancestors that make an import conditional: branches,
// exception handlers, loops and function bodies.
var conditionalKinds = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"else_clause":            true,
	"try_statement":          true,
	"except_clause":          true,
	"except_group_clause":    true,
	"finally_clause":         true,
	"while_statement":        true,
	"for_statement":          true,
	"match_statement":        true,
	"case_clause":            true,
	"function_definition":    true,
	"lambda":                 true,
	"conditional_expression": true,
}

// dynamicImporters are call targets that import a module by name at runtime.
var dynamicImporters = map[string]bool{
	"importlib.import_module": true,
	"import_module":           true,
	"__import__":              true,
}

type PythonExtractor struct {
	engine *ExtractorEngine
}

func NewPythonExtractor() *PythonExtractor {
	e := &PythonExtractor{}
	e.engine = NewExtractorEngine(map[string]NodeHandler{
		"import_statement":        e.extractImport,
		"import_from_statement":   e.extractFromImport,
		"future_import_statement": e.extractFutureImport,
		"call":                    e.extractCall,
	})
	return e
}

// Extract returns every import in source order.
func (e *PythonExtractor) Extract(root *sitter.Node, source []byte) []RawImport {
	ctx := &ExtractionContext{Source: source}
	e.engine.Walk(ctx, root)
	return ctx.Imports
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	conditional := isConditional(node)
	line := Line(node)
	text := ctx.Statement(node)

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		var name, alias string
		switch child.Kind() {
		case "dotted_name":
			name = ctx.Text(child)
		case "aliased_import":
			name = ctx.Text(child.ChildByFieldName("name"))
			alias = ctx.Text(child.ChildByFieldName("alias"))
		default:
			continue
		}
		ctx.Imports = append(ctx.Imports, RawImport{
			Name:        compactDotted(name),
			Alias:       alias,
			Conditional: conditional,
			Line:        line,
			Text:        text,
		})
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	base := RawImport{
		IsFrom:      true,
		Conditional: isConditional(node),
		Line:        Line(node),
		Text:        ctx.Statement(node),
	}

	if module := node.ChildByFieldName("module_name"); module != nil {
		switch module.Kind() {
		case "relative_import":
			for i := uint(0); i < module.ChildCount(); i++ {
				part := module.Child(i)
				switch part.Kind() {
				case "import_prefix":
					base.Level = strings.Count(ctx.Text(part), ".")
				case "dotted_name":
					base.From = compactDotted(ctx.Text(part))
				}
			}
		default:
			base.From = compactDotted(ctx.Text(module))
		}
	}

	e.appendImportedNames(ctx, node, base)
	return true
}

func (e *PythonExtractor) extractFutureImport(ctx *ExtractionContext, node *sitter.Node) bool {
	base := RawImport{
		From:        "__future__",
		IsFrom:      true,
		Conditional: isConditional(node),
		Line:        Line(node),
		Text:        ctx.Statement(node),
	}
	e.appendImportedNames(ctx, node, base)
	return true
}

// appendImportedNames emits one RawImport per name listed after the
// "import" keyword of a from-form statement.
func (e *PythonExtractor) appendImportedNames(ctx *ExtractionContext, node *sitter.Node, base RawImport) {
	foundImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "import" {
			foundImport = true
			continue
		}
		if !foundImport {
			continue
		}

		imp := base
		switch child.Kind() {
		case "dotted_name", "identifier":
			imp.Name = compactDotted(ctx.Text(child))
		case "aliased_import":
			imp.Name = compactDotted(ctx.Text(child.ChildByFieldName("name")))
			imp.Alias = ctx.Text(child.ChildByFieldName("alias"))
		case "wildcard_import":
			imp.Name = Wildcard
			imp.Wildcard = true
		default:
			continue
		}
		ctx.Imports = append(ctx.Imports, imp)
	}
}

func (e *PythonExtractor) extractCall(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil || !dynamicImporters[compactDotted(ctx.Text(fn))] {
		return false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return false
	}
	first := args.NamedChild(0)

	imp := RawImport{
		Dynamic:     true,
		Conditional: isConditional(node),
		Line:        Line(node),
		Text:        ctx.Statement(node),
	}
	if literal, ok := stringLiteral(ctx, first); ok {
		imp.Name = literal
		imp.Literal = true
	} else {
		imp.Name = ctx.Statement(first)
	}
	ctx.Imports = append(ctx.Imports, imp)
	return false
}

// stringLiteral returns the value of a plain (non-interpolated, non-byte)
// string node.
func stringLiteral(ctx *ExtractionContext, node *sitter.Node) (string, bool) {
	if node == nil || node.Kind() != "string" {
		return "", false
	}
	var content strings.Builder
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "interpolation":
			return "", false
		case "string_start":
			prefix := strings.ToLower(strings.Trim(ctx.Text(child), `"'`))
			if strings.ContainsAny(prefix, "bf") {
				return "", false
			}
		case "string_content", "escape_sequence":
			content.WriteString(ctx.Text(child))
		}
	}
	value := strings.TrimSpace(content.String())
	return value, value != ""
}

func isConditional(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if conditionalKinds[p.Kind()] {
			return true
		}
	}
	return false
}

// compactDotted removes the whitespace and line continuations the grammar
// allows inside dotted names, e.g. "a . b".
func compactDotted(s string) string {
	if !strings.ContainsAny(s, " \t\r\n\\") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n', '\\':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
