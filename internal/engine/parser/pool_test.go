// # internal/engine/parser/pool_test.go
package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

func pythonLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Fatalf("expected 1 leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	if pool.Leased() != 0 {
		t.Fatalf("expected 0 leased parsers, got %d", pool.Leased())
	}
}

func TestParserPool_PutNil(t *testing.T) {
	pool := NewParserPool(pythonLanguage())
	// Put(nil) must be a no-op.
	pool.Put(nil)
	if pool.Leased() != 0 {
		t.Fatalf("Put(nil) changed the lease count to %d", pool.Leased())
	}
}

func TestParserPool_ParsesValidPython(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse([]byte("import os\nfrom . import x\n"), nil)
	if tree == nil {
		t.Fatal("expected a parse tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		t.Fatalf("expected error-free root node")
	}
}

func TestParserPool_Concurrent(t *testing.T) {
	pool := NewParserPool(pythonLanguage())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sp := pool.Get()
			defer pool.Put(sp)
			tree := sp.Parse([]byte("import a.b.c\n"), nil)
			if tree == nil {
				t.Error("expected a parse tree")
				return
			}
			tree.Close()
		}()
	}
	wg.Wait()
	if pool.Leased() != 0 {
		t.Fatalf("expected all parsers returned, %d still leased", pool.Leased())
	}
}
