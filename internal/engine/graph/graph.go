// # internal/engine/graph/graph.go
package graph

import (
	"sort"
	"sync"

	"snakr/internal/core/errors"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
	"snakr/internal/shared/observability"
)

type Module struct {
	Name       qname.Name      `json:"name"`
	Kind       resolver.Kind   `json:"kind"`
	Origin     resolver.Origin `json:"origin,omitempty"`
	SourcePath string          `json:"source_path,omitempty"`
	IsPackage  bool            `json:"is_package,omitempty"`
	// Reason is kept from the first failed resolution of an unresolved node.
	Reason string `json:"reason,omitempty"`
}

// EdgeKey identifies an edge. Repeated imports of the same key merge.
type EdgeKey struct {
	Source qname.Name
	Target qname.Name
	Level  int
}

type ImportEdge struct {
	Source qname.Name `json:"source"`
	Target qname.Name `json:"target"`
	Level  int        `json:"relative_level"`
	// Symbols is the sorted union of names pulled from Target. Empty for
	// whole-module imports.
	Symbols     []string `json:"imported_symbols,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Line        int      `json:"line"`
	Conditional bool     `json:"is_conditional"`
	Dynamic     bool     `json:"dynamic,omitempty"`
}

func (e ImportEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Level: e.Level}
}

// Partial reports whether the edge came from "from X import Y" forms only.
func (e ImportEdge) Partial() bool { return len(e.Symbols) > 0 }

func (e ImportEdge) HasSymbol(name string) bool {
	i := sort.SearchStrings(e.Symbols, name)
	return i < len(e.Symbols) && e.Symbols[i] == name
}

// Topology is the read side of an assembled graph.
type Topology interface {
	Modules() []Module
	ImportEdges() []ImportEdge
}

// DependencyGraph is an immutable copy of the assembler's state, in
// insertion order.
type DependencyGraph struct {
	nodes []Module
	edges []ImportEdge
	index map[qname.Name]int
}

func (g *DependencyGraph) Modules() []Module { return g.nodes }

func (g *DependencyGraph) ImportEdges() []ImportEdge { return g.edges }

func (g *DependencyGraph) Module(name qname.Name) (Module, bool) {
	i, ok := g.index[name]
	if !ok {
		return Module{}, false
	}
	return g.nodes[i], true
}

func (g *DependencyGraph) Len() int { return len(g.nodes) }

// Assembler accumulates modules and resolved imports into a graph. Node and
// edge tables preserve insertion order. All methods are safe for concurrent
// use, but callers normally funnel writes through a Writer.
type Assembler struct {
	mu sync.RWMutex

	nodes     []*Module
	nodeIndex map[qname.Name]int

	edges     []*ImportEdge
	edgeIndex map[EdgeKey]int
}

func NewAssembler() *Assembler {
	return &Assembler{
		nodeIndex: make(map[qname.Name]int),
		edgeIndex: make(map[EdgeKey]int),
	}
}

// AddModule registers a parsed unit as an internal node. Registration is
// authoritative: it promotes a node first seen through an import.
func (a *Assembler) AddModule(name qname.Name, sourcePath string, isPackage bool) error {
	if name.IsZero() {
		return errors.New(errors.CodeValidationError, "module name is empty")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addModuleLocked(name, sourcePath, isPackage)
	a.publish()
	return nil
}

func (a *Assembler) addModuleLocked(name qname.Name, sourcePath string, isPackage bool) {
	if i, ok := a.nodeIndex[name]; ok {
		m := a.nodes[i]
		m.Kind = resolver.KindInternal
		m.Origin = resolver.OriginNone
		m.Reason = ""
		if m.SourcePath == "" {
			m.SourcePath = sourcePath
		}
		m.IsPackage = m.IsPackage || isPackage
		return
	}
	a.insertNode(&Module{
		Name:       name,
		Kind:       resolver.KindInternal,
		SourcePath: sourcePath,
		IsPackage:  isPackage,
	})
}

// Add records one resolved import of source. Ignored targets are dropped.
// Adding the same import twice leaves the graph unchanged.
func (a *Assembler) Add(source qname.Name, target resolver.Target, raw parser.RawImport) error {
	if target.Ignored {
		return nil
	}
	if source.IsZero() || target.Name.IsZero() {
		return errors.AddContext(
			errors.New(errors.CodeValidationError, "import edge needs a source and a target"),
			errors.CtxLine, raw.Line,
		)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addLocked(source, target, raw)
	a.publish()
	return nil
}

func (a *Assembler) addLocked(source qname.Name, target resolver.Target, raw parser.RawImport) {
	if _, ok := a.nodeIndex[source]; !ok {
		a.addModuleLocked(source, "", false)
	}
	a.observe(target)

	key := EdgeKey{Source: source, Target: target.Name, Level: raw.Level}
	if i, ok := a.edgeIndex[key]; ok {
		mergeEdge(a.edges[i], target, raw)
		return
	}
	edge := &ImportEdge{
		Source:      source,
		Target:      target.Name,
		Level:       raw.Level,
		Line:        raw.Line,
		Conditional: raw.Conditional,
		Dynamic:     raw.Dynamic,
	}
	mergeEdge(edge, target, raw)
	a.edgeIndex[key] = len(a.edges)
	a.edges = append(a.edges, edge)
}

// observe merges a target into the node table. The first kind seen wins,
// except that an unresolved node is upgraded once the name is confirmed
// external.
func (a *Assembler) observe(target resolver.Target) {
	i, ok := a.nodeIndex[target.Name]
	if !ok {
		a.insertNode(&Module{
			Name:   target.Name,
			Kind:   target.Kind,
			Origin: target.Origin,
			Reason: target.Reason,
		})
		return
	}
	m := a.nodes[i]
	switch {
	case m.Kind == resolver.KindUnresolved && target.Kind == resolver.KindExternal:
		m.Kind = resolver.KindExternal
		m.Origin = target.Origin
		m.Reason = ""
	case m.Kind == resolver.KindExternal && m.Origin == resolver.OriginNone:
		m.Origin = target.Origin
	}
}

func (a *Assembler) insertNode(m *Module) {
	a.nodeIndex[m.Name] = len(a.nodes)
	a.nodes = append(a.nodes, m)
}

func mergeEdge(e *ImportEdge, target resolver.Target, raw parser.RawImport) {
	for _, s := range target.Symbols {
		e.Symbols = insertSorted(e.Symbols, s)
	}
	if raw.Alias != "" {
		e.Aliases = insertSorted(e.Aliases, raw.Alias)
	}
	if raw.Line > 0 && (e.Line == 0 || raw.Line < e.Line) {
		e.Line = raw.Line
	}
	// Conditional only while every contributing statement is.
	e.Conditional = e.Conditional && raw.Conditional
	e.Dynamic = e.Dynamic && raw.Dynamic
}

func insertSorted(set []string, v string) []string {
	i := sort.SearchStrings(set, v)
	if i < len(set) && set[i] == v {
		return set
	}
	set = append(set, "")
	copy(set[i+1:], set[i:])
	set[i] = v
	return set
}

// Snapshot copies the current graph. The copy shares nothing with the
// assembler and is always valid to analyze.
func (a *Assembler) Snapshot() *DependencyGraph {
	a.mu.RLock()
	defer a.mu.RUnlock()

	g := &DependencyGraph{
		nodes: make([]Module, len(a.nodes)),
		edges: make([]ImportEdge, len(a.edges)),
		index: make(map[qname.Name]int, len(a.nodes)),
	}
	for i, m := range a.nodes {
		g.nodes[i] = *m
		g.index[m.Name] = i
	}
	for i, e := range a.edges {
		c := *e
		c.Symbols = append([]string(nil), e.Symbols...)
		c.Aliases = append([]string(nil), e.Aliases...)
		g.edges[i] = c
	}
	return g
}

func (a *Assembler) NodeCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.nodes)
}

func (a *Assembler) EdgeCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.edges)
}

// publish must be called with a.mu held.
func (a *Assembler) publish() {
	observability.GraphNodes.Set(float64(len(a.nodes)))
	observability.GraphEdges.Set(float64(len(a.edges)))
}
