package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler processes a node for the import extractor.
// Returns true if the handler has processed children and the walker should stop.
type NodeHandler func(ctx *ExtractionContext, node *sitter.Node) bool

// ExtractionContext carries shared state/helpers used while walking one unit.
type ExtractionContext struct {
	Source  []byte
	Imports []RawImport
}

// ExtractorEngine walks the syntax tree and dispatches node handlers by kind.
type ExtractorEngine struct {
	handlers map[string]NodeHandler
}

func NewExtractorEngine(handlers map[string]NodeHandler) *ExtractorEngine {
	return &ExtractorEngine{handlers: handlers}
}

// Walk visits nodes depth first in source order. It is iterative so deeply
// nested inputs cannot exhaust the stack.
func (e *ExtractorEngine) Walk(ctx *ExtractionContext, root *sitter.Node) {
	if root == nil {
		return
	}
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if handler, ok := e.handlers[node.Kind()]; ok && handler(ctx, node) {
			continue
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			if child := node.Child(uint(i)); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

// Statement returns the node text with whitespace runs collapsed.
func (c *ExtractionContext) Statement(node *sitter.Node) string {
	return strings.Join(strings.Fields(c.Text(node)), " ")
}

func Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}
