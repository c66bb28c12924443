// # internal/engine/parser/parser.go
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"snakr/internal/core/errors"
	"snakr/internal/engine/qname"
	"snakr/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Cache stores extraction results keyed by CacheKey. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) ([]RawImport, bool)
	Put(key string, imports []RawImport)
}

// Parser turns the text of one Python unit into its ordered RawImports. It
// is safe for concurrent use; each call leases its own tree-sitter parser.
type Parser struct {
	pool      *ParserPool
	extractor *PythonExtractor
	cache     Cache
}

func NewParser() *Parser {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	return &Parser{
		pool:      NewParserPool(lang),
		extractor: NewPythonExtractor(),
	}
}

// WithCache makes the parser consult c before parsing.
func (p *Parser) WithCache(c Cache) *Parser {
	p.cache = c
	return p
}

// Parse extracts the imports of one unit. module is the unit's qualified
// name and is only used to label errors; resolution happens later.
//
// A unit with any syntax error yields no imports and a PARSE_ERROR.
func (p *Parser) Parse(source []byte, module qname.Name) ([]RawImport, error) {
	key := ""
	if p.cache != nil {
		key = CacheKey(source)
		if cached, ok := p.cache.Get(key); ok {
			observability.CacheHits.Inc()
			return cached, nil
		}
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues("python").Observe(time.Since(start).Seconds())
	}()

	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(source, nil)
	if tree == nil {
		return nil, parseError(module, "parser returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, parseError(module, describeSyntaxError(root))
	}

	imports := p.extractor.Extract(root, source)
	if p.cache != nil {
		p.cache.Put(key, imports)
	}
	return imports, nil
}

// CacheKey identifies unit text independently of where it lives.
func CacheKey(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

func parseError(module qname.Name, reason string) error {
	return errors.AddContext(errors.New(errors.CodeParse, reason), errors.CtxModule, module.String())
}

// describeSyntaxError locates the first ERROR or MISSING node.
func describeSyntaxError(root *sitter.Node) string {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		pos := node.StartPosition()
		if node.IsMissing() {
			return fmt.Sprintf("syntax error at line %d, column %d: missing %s", pos.Row+1, pos.Column+1, node.Kind())
		}
		if node.IsError() {
			return fmt.Sprintf("syntax error at line %d, column %d", pos.Row+1, pos.Column+1)
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(uint(i)); child != nil && (child.HasError() || child.IsMissing()) {
				stack = append(stack, child)
			}
		}
	}
	return "syntax error"
}
