// # internal/engine/parser/parser_test.go
package parser

import (
	"sync"
	"testing"

	"snakr/internal/core/errors"
)

const sample = `
"""Module docstring."""
from __future__ import annotations

import os
import os.path as osp, sys
from pkg.sub import thing, other as alias
from . import sibling
from ..parent import (
    first,
    second,
)
from .mod import *

try:
    import ujson as json
except ImportError:
    import json

def load():
    import numpy.linalg
    return importlib.import_module("plugins.extra")

class Holder:
    import inspect

mod = __import__(name)
`

func findImport(t *testing.T, imports []RawImport, from, name string) RawImport {
	t.Helper()
	for _, imp := range imports {
		if imp.From == from && imp.Name == name {
			return imp
		}
	}
	t.Fatalf("import from=%q name=%q not found in %+v", from, name, imports)
	return RawImport{}
}

func TestPythonImportForms(t *testing.T) {
	p := NewParser()
	imports, err := p.Parse([]byte(sample), "pkg.a")
	if err != nil {
		t.Fatal(err)
	}

	if len(imports) != 16 {
		for i, imp := range imports {
			t.Logf("Import %d: %+v", i, imp)
		}
		t.Fatalf("Expected 16 imports, got %d", len(imports))
	}

	future := findImport(t, imports, "__future__", "annotations")
	if !future.IsFrom || future.Line != 3 {
		t.Errorf("unexpected __future__ import %+v", future)
	}

	plain := findImport(t, imports, "", "os")
	if plain.IsFrom || plain.Alias != "" || plain.Conditional {
		t.Errorf("unexpected plain import %+v", plain)
	}

	aliased := findImport(t, imports, "", "os.path")
	if aliased.Alias != "osp" || aliased.Line != 6 {
		t.Errorf("unexpected aliased import %+v", aliased)
	}
	findImport(t, imports, "", "sys")

	other := findImport(t, imports, "pkg.sub", "other")
	if other.Alias != "alias" || other.Level != 0 {
		t.Errorf("unexpected from import %+v", other)
	}

	sibling := findImport(t, imports, "", "sibling")
	if !sibling.IsFrom || sibling.Level != 1 {
		t.Errorf("unexpected relative import %+v", sibling)
	}

	second := findImport(t, imports, "parent", "second")
	if second.Level != 2 || second.Line != 9 {
		t.Errorf("unexpected parenthesised relative import %+v", second)
	}
	if got := second.Module(); got != "..parent" {
		t.Errorf("Module() = %q, want ..parent", got)
	}

	star := findImport(t, imports, "mod", Wildcard)
	if !star.Wildcard || star.Level != 1 {
		t.Errorf("unexpected wildcard import %+v", star)
	}

	ujson := findImport(t, imports, "", "ujson")
	if !ujson.Conditional || ujson.Alias != "json" {
		t.Errorf("try-block import should be conditional: %+v", ujson)
	}
	fallback := findImport(t, imports, "", "json")
	if !fallback.Conditional {
		t.Errorf("except-block import should be conditional: %+v", fallback)
	}

	numpy := findImport(t, imports, "", "numpy.linalg")
	if !numpy.Conditional {
		t.Errorf("function-body import should be conditional: %+v", numpy)
	}

	inspect := findImport(t, imports, "", "inspect")
	if inspect.Conditional {
		t.Errorf("class-body import should not be conditional: %+v", inspect)
	}

	dynamic := findImport(t, imports, "", "plugins.extra")
	if !dynamic.Dynamic || !dynamic.Literal || !dynamic.Conditional {
		t.Errorf("unexpected literal dynamic import %+v", dynamic)
	}

	computed := findImport(t, imports, "", "name")
	if !computed.Dynamic || computed.Literal {
		t.Errorf("unexpected computed dynamic import %+v", computed)
	}
}

func TestParsePreservesLineOrder(t *testing.T) {
	p := NewParser()
	imports, err := p.Parse([]byte(sample), "pkg.a")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(imports); i++ {
		if imports[i].Line < imports[i-1].Line {
			t.Fatalf("import %d (line %d) precedes import %d (line %d)", i, imports[i].Line, i-1, imports[i-1].Line)
		}
	}
}

func TestParseSyntaxError(t *testing.T) {
	p := NewParser()
	imports, err := p.Parse([]byte("import os\ndef broken(:\n    pass\n"), "pkg.broken")
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !errors.IsCode(err, errors.CodeParse) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
	if len(imports) != 0 {
		t.Fatalf("a unit with syntax errors must yield no imports, got %d", len(imports))
	}
}

func TestParseEmptyUnit(t *testing.T) {
	p := NewParser()
	imports, err := p.Parse(nil, "pkg")
	if err != nil {
		t.Fatal(err)
	}
	if len(imports) != 0 {
		t.Fatalf("expected no imports, got %d", len(imports))
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]RawImport
	puts int
}

func (m *memoryCache) Get(key string) ([]RawImport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryCache) Put(key string, imports []RawImport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = imports
	m.puts++
}

func TestParseUsesCache(t *testing.T) {
	cache := &memoryCache{data: make(map[string][]RawImport)}
	p := NewParser().WithCache(cache)
	src := []byte("import a\nimport b\n")

	first, err := p.Parse(src, "x")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Parse(src, "y")
	if err != nil {
		t.Fatal(err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected a single cache fill, got %d", cache.puts)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected results %v / %v", first, second)
	}
}

func TestParseConcurrent(t *testing.T) {
	p := NewParser()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			imports, err := p.Parse([]byte(sample), "pkg.a")
			if err != nil {
				errs <- err
				return
			}
			if len(imports) != 16 {
				t.Errorf("expected 16 imports, got %d", len(imports))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
