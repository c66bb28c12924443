// # internal/engine/graph/graph_test.go
package graph

import (
	"testing"

	"snakr/internal/core/errors"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
)

func internal(name string, symbols ...string) resolver.Target {
	return resolver.Target{Name: qname.Name(name), Kind: resolver.KindInternal, Symbols: symbols}
}

func external(name string) resolver.Target {
	return resolver.Target{Name: qname.Name(name), Kind: resolver.KindExternal, Origin: resolver.OriginThirdParty}
}

func unresolvedTarget(name, reason string) resolver.Target {
	return resolver.Target{Name: qname.Name(name), Kind: resolver.KindUnresolved, Reason: reason}
}

// addEdges registers every named module and links each pair "a>b".
func addEdges(t *testing.T, a *Assembler, modules []string, pairs ...[2]string) {
	t.Helper()
	for _, m := range modules {
		if err := a.AddModule(qname.Name(m), m+".py", false); err != nil {
			t.Fatal(err)
		}
	}
	for i, p := range pairs {
		if err := a.Add(qname.Name(p[0]), internal(p[1]), parser.RawImport{Name: p[1], Line: i + 1}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAssembler_AddCreatesNodes(t *testing.T) {
	a := NewAssembler()
	if err := a.AddModule("pkg.a", "pkg/a.py", false); err != nil {
		t.Fatal(err)
	}
	if err := a.Add("pkg.a", external("requests"), parser.RawImport{Name: "requests", Line: 3}); err != nil {
		t.Fatal(err)
	}

	g := a.Snapshot()
	if g.Len() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.Len())
	}
	src, ok := g.Module("pkg.a")
	if !ok || src.Kind != resolver.KindInternal || src.SourcePath != "pkg/a.py" {
		t.Errorf("unexpected source node %+v", src)
	}
	dst, ok := g.Module("requests")
	if !ok || dst.Kind != resolver.KindExternal || dst.SourcePath != "" {
		t.Errorf("unexpected target node %+v", dst)
	}
	if len(g.ImportEdges()) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(g.ImportEdges()))
	}
}

func TestAssembler_Idempotent(t *testing.T) {
	a := NewAssembler()
	raw := parser.RawImport{IsFrom: true, From: "b", Name: "x", Level: 1, Line: 7}
	for i := 0; i < 2; i++ {
		if err := a.Add("pkg.a", internal("pkg.b", "x"), raw); err != nil {
			t.Fatal(err)
		}
	}

	edges := a.Snapshot().ImportEdges()
	if len(edges) != 1 {
		t.Fatalf("expected a single edge, got %d", len(edges))
	}
	if len(edges[0].Symbols) != 1 || edges[0].Symbols[0] != "x" || edges[0].Line != 7 {
		t.Errorf("unexpected edge %+v", edges[0])
	}
}

func TestAssembler_MergesSymbolsAndKeepsEarliestLine(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("pkg.a", internal("pkg.b", "y"), parser.RawImport{Line: 10, Alias: "yy"})
	_ = a.Add("pkg.a", internal("pkg.b", "x"), parser.RawImport{Line: 4, Conditional: true})
	_ = a.Add("pkg.a", internal("pkg.b", "y"), parser.RawImport{Line: 12})

	edges := a.Snapshot().ImportEdges()
	if len(edges) != 1 {
		t.Fatalf("expected a single merged edge, got %d", len(edges))
	}
	e := edges[0]
	if len(e.Symbols) != 2 || e.Symbols[0] != "x" || e.Symbols[1] != "y" {
		t.Errorf("symbols = %v, want [x y]", e.Symbols)
	}
	if e.Line != 4 {
		t.Errorf("line = %d, want 4", e.Line)
	}
	if e.Conditional {
		t.Error("edge with an unconditional import must not be conditional")
	}
	if len(e.Aliases) != 1 || e.Aliases[0] != "yy" {
		t.Errorf("aliases = %v", e.Aliases)
	}
	if !e.Partial() || !e.HasSymbol("x") || e.HasSymbol("z") {
		t.Error("symbol lookup mismatch")
	}
}

func TestAssembler_LevelsAreDistinctEdges(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("pkg.a", internal("pkg.b"), parser.RawImport{Line: 1})
	_ = a.Add("pkg.a", internal("pkg.b"), parser.RawImport{Line: 2, Level: 1, IsFrom: true})

	if got := a.EdgeCount(); got != 2 {
		t.Fatalf("expected 2 edges, got %d", got)
	}
}

func TestAssembler_UpgradeUnresolvedToExternal(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("app", unresolvedTarget("yaml", "dynamic import"), parser.RawImport{Dynamic: true, Literal: true, Line: 1})
	_ = a.Add("app", external("yaml"), parser.RawImport{Name: "yaml", Line: 2})

	m, _ := a.Snapshot().Module("yaml")
	if m.Kind != resolver.KindExternal || m.Reason != "" || m.Origin != resolver.OriginThirdParty {
		t.Fatalf("expected upgrade to external, got %+v", m)
	}
}

func TestAssembler_FirstKindWins(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("app", external("yaml"), parser.RawImport{Line: 1})
	_ = a.Add("app", unresolvedTarget("yaml", "late"), parser.RawImport{Line: 2, Dynamic: true})

	m, _ := a.Snapshot().Module("yaml")
	if m.Kind != resolver.KindExternal {
		t.Fatalf("external must not be downgraded, got %+v", m)
	}
}

func TestAssembler_RegistrationPromotesNode(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("app", unresolvedTarget("plugins.extra", "dynamic import"), parser.RawImport{Line: 1})
	_ = a.AddModule("plugins.extra", "plugins/extra.py", false)

	m, _ := a.Snapshot().Module("plugins.extra")
	if m.Kind != resolver.KindInternal || m.SourcePath != "plugins/extra.py" {
		t.Fatalf("registered unit must be internal, got %+v", m)
	}
	if a.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", a.NodeCount())
	}
}

func TestAssembler_IgnoredTargetsAreDropped(t *testing.T) {
	a := NewAssembler()
	if err := a.Add("app", resolver.Target{Name: "tests.helpers", Ignored: true}, parser.RawImport{}); err != nil {
		t.Fatal(err)
	}
	if a.NodeCount() != 0 || a.EdgeCount() != 0 {
		t.Fatalf("ignored import changed the graph: %d nodes, %d edges", a.NodeCount(), a.EdgeCount())
	}
}

func TestAssembler_RejectsEmptyNames(t *testing.T) {
	a := NewAssembler()
	if err := a.Add("", internal("b"), parser.RawImport{}); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
	if err := a.AddModule("", "x.py", false); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestAssembler_SnapshotIsIndependent(t *testing.T) {
	a := NewAssembler()
	_ = a.Add("a", internal("b", "x"), parser.RawImport{Line: 1})
	snap := a.Snapshot()
	_ = a.Add("a", internal("b", "y"), parser.RawImport{Line: 1})
	_ = a.Add("a", internal("c"), parser.RawImport{Line: 2})

	if len(snap.ImportEdges()) != 1 || len(snap.ImportEdges()[0].Symbols) != 1 {
		t.Fatalf("snapshot changed after later writes: %+v", snap.ImportEdges())
	}
}

func TestAssembler_OrderIndependent(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"a", "c"}}
	forward := NewAssembler()
	addEdges(t, forward, []string{"a", "b", "c"}, pairs...)

	reversed := NewAssembler()
	rev := make([][2]string, len(pairs))
	for i, p := range pairs {
		rev[len(pairs)-1-i] = p
	}
	addEdges(t, reversed, []string{"c", "b", "a"}, rev...)

	ga, err := Analyze(forward.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	gb, err := Analyze(reversed.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if len(ga.Nodes) != len(gb.Nodes) || len(ga.Edges) != len(gb.Edges) {
		t.Fatal("graph size depends on insertion order")
	}
	for i := range ga.Nodes {
		if ga.Nodes[i].Name != gb.Nodes[i].Name {
			t.Errorf("node %d: %s != %s", i, ga.Nodes[i].Name, gb.Nodes[i].Name)
		}
	}
	for i := range ga.Edges {
		if ga.Edges[i].Key() != gb.Edges[i].Key() {
			t.Errorf("edge %d: %v != %v", i, ga.Edges[i].Key(), gb.Edges[i].Key())
		}
	}
	if ga.Cycles[0].String() != gb.Cycles[0].String() {
		t.Errorf("cycle %q != %q", ga.Cycles[0], gb.Cycles[0])
	}
}

func rawLine(line int) parser.RawImport {
	return parser.RawImport{Line: line}
}
