// # internal/engine/graph/analyze.go
package graph

import (
	"sort"
	"time"

	"snakr/internal/core/errors"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
	"snakr/internal/shared/observability"
)

// Node is a module together with the metrics computed for it.
type Node struct {
	Module
	FanIn      int     `json:"fan_in"`
	FanOut     int     `json:"fan_out"`
	Depth      int     `json:"depth"`
	Importance float64 `json:"importance"`
	InCycle    bool    `json:"in_cycle,omitempty"`
}

// Summary separates fully resolved coupling from the parts of the graph
// that could not be pinned to a crawled module.
type Summary struct {
	Modules         int `json:"modules"`
	Internal        int `json:"internal"`
	External        int `json:"external"`
	Stdlib          int `json:"stdlib"`
	ThirdParty      int `json:"third_party"`
	Unresolved      int `json:"unresolved"`
	Edges           int `json:"edges"`
	InternalEdges   int `json:"internal_edges"`
	ExternalEdges   int `json:"external_edges"`
	UnresolvedEdges int `json:"unresolved_edges"`
	ConditionalEdge int `json:"conditional_edges"`
	Cycles          int `json:"cycles"`
}

// AnalyzedGraph is the read-only result handed to renderers. Nodes are
// sorted by name and edges by (source, target, level).
type AnalyzedGraph struct {
	Nodes   []Node       `json:"nodes"`
	Edges   []ImportEdge `json:"edges"`
	Cycles  []Cycle      `json:"cycles"`
	Summary Summary      `json:"summary"`

	index    map[qname.Name]int
	outgoing map[qname.Name][]int // node -> edge indexes
	incoming map[qname.Name][]int
}

// Analyze computes cycles and per-node metrics. It never mutates topo.
// An edge that references a missing node, or starts at a node that is not
// internal, is an INVARIANT_VIOLATION.
func Analyze(topo Topology) (*AnalyzedGraph, error) {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	modules := topo.Modules()
	out := &AnalyzedGraph{
		Nodes:    make([]Node, 0, len(modules)),
		Edges:    make([]ImportEdge, 0),
		Cycles:   make([]Cycle, 0),
		index:    make(map[qname.Name]int, len(modules)),
		outgoing: make(map[qname.Name][]int),
		incoming: make(map[qname.Name][]int),
	}

	for _, m := range modules {
		if _, dup := out.index[m.Name]; dup {
			return nil, errors.AddContext(
				errors.New(errors.CodeInvariantViolation, "duplicate node in module table"),
				errors.CtxModule, m.Name.String(),
			)
		}
		out.index[m.Name] = -1
		out.Nodes = append(out.Nodes, Node{Module: m})
	}
	sort.Slice(out.Nodes, func(i, j int) bool { return out.Nodes[i].Name < out.Nodes[j].Name })
	for i, n := range out.Nodes {
		out.index[n.Name] = i
	}

	for _, e := range topo.ImportEdges() {
		src, ok := out.index[e.Source]
		if !ok {
			return nil, invariantError("edge source missing from node table", e)
		}
		if _, ok := out.index[e.Target]; !ok {
			return nil, invariantError("edge target missing from node table", e)
		}
		if out.Nodes[src].Kind != resolver.KindInternal {
			return nil, invariantError("edge source is not an internal module", e)
		}
		c := e
		c.Symbols = append([]string(nil), e.Symbols...)
		c.Aliases = append([]string(nil), e.Aliases...)
		out.Edges = append(out.Edges, c)
	}
	sort.Slice(out.Edges, func(i, j int) bool { return edgeLess(out.Edges[i], out.Edges[j]) })
	for i, e := range out.Edges {
		out.outgoing[e.Source] = append(out.outgoing[e.Source], i)
		out.incoming[e.Target] = append(out.incoming[e.Target], i)
	}

	out.computeFan()
	out.computeCycles()
	out.computeDepth()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		n.Importance = CalculateImportanceScore(n.FanIn, n.FanOut, n.InCycle, n.Name.String())
	}
	out.Summary = out.summarize()
	return out, nil
}

func invariantError(msg string, e ImportEdge) error {
	err := errors.New(errors.CodeInvariantViolation, msg)
	err = errors.AddContext(err, "source", e.Source.String())
	return errors.AddContext(err, "target", e.Target.String())
}

func edgeLess(a, b ImportEdge) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	return a.Level < b.Level
}

// computeFan counts distinct neighbours, so edges that differ only in
// relative level count once.
func (g *AnalyzedGraph) computeFan() {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.FanOut = len(g.Neighbors(n.Name))
		n.FanIn = len(g.Importers(n.Name))
	}
}

// internalAdjacency restricts the graph to internal -> internal edges, with
// targets in lexical order.
func (g *AnalyzedGraph) internalAdjacency() ([]qname.Name, map[qname.Name][]qname.Name) {
	nodes := make([]qname.Name, 0, len(g.Nodes))
	adjacency := make(map[qname.Name][]qname.Name)
	for _, n := range g.Nodes {
		if n.Kind != resolver.KindInternal {
			continue
		}
		nodes = append(nodes, n.Name)
		var targets []qname.Name
		for _, t := range g.Neighbors(n.Name) {
			if m, ok := g.Node(t); ok && m.Kind == resolver.KindInternal {
				targets = append(targets, t)
			}
		}
		adjacency[n.Name] = targets
	}
	return nodes, adjacency
}

func (g *AnalyzedGraph) computeDepth() {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("depth").Observe(time.Since(start).Seconds())
	}()

	nodes, adjacency := g.internalAdjacency()
	componentOf, components := stronglyConnectedComponents(nodes, adjacency)

	componentEdges := make(map[int]map[int]bool, len(components))
	for _, from := range nodes {
		fromComp := componentOf[from]
		for _, to := range adjacency[from] {
			toComp := componentOf[to]
			if fromComp == toComp {
				continue
			}
			if componentEdges[fromComp] == nil {
				componentEdges[fromComp] = make(map[int]bool)
			}
			componentEdges[fromComp][toComp] = true
		}
	}

	// Tarjan emits components in reverse topological order, so every
	// successor of a component already has its depth.
	depthByComp := make([]int, len(components))
	for comp := range components {
		maxDepth := 0
		for next := range componentEdges[comp] {
			if d := depthByComp[next] + 1; d > maxDepth {
				maxDepth = d
			}
		}
		depthByComp[comp] = maxDepth
	}

	for _, name := range nodes {
		g.Nodes[g.index[name]].Depth = depthByComp[componentOf[name]]
	}
}

func (g *AnalyzedGraph) summarize() Summary {
	s := Summary{Modules: len(g.Nodes), Edges: len(g.Edges), Cycles: len(g.Cycles)}
	for _, n := range g.Nodes {
		switch n.Kind {
		case resolver.KindInternal:
			s.Internal++
		case resolver.KindExternal:
			s.External++
			switch n.Origin {
			case resolver.OriginStdlib:
				s.Stdlib++
			case resolver.OriginThirdParty:
				s.ThirdParty++
			}
		case resolver.KindUnresolved:
			s.Unresolved++
		}
	}
	for _, e := range g.Edges {
		if e.Conditional {
			s.ConditionalEdge++
		}
		t, _ := g.Node(e.Target)
		switch t.Kind {
		case resolver.KindInternal:
			s.InternalEdges++
		case resolver.KindExternal:
			s.ExternalEdges++
		case resolver.KindUnresolved:
			s.UnresolvedEdges++
		}
	}
	return s
}

func (g *AnalyzedGraph) Node(name qname.Name) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Outgoing returns the edges leaving name in target order.
func (g *AnalyzedGraph) Outgoing(name qname.Name) []ImportEdge {
	idx := g.outgoing[name]
	out := make([]ImportEdge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Edges[i])
	}
	return out
}

// Incoming returns the edges ending at name in source order.
func (g *AnalyzedGraph) Incoming(name qname.Name) []ImportEdge {
	idx := g.incoming[name]
	out := make([]ImportEdge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Edges[i])
	}
	return out
}

// Neighbors returns the distinct targets of name, sorted.
func (g *AnalyzedGraph) Neighbors(name qname.Name) []qname.Name {
	var out []qname.Name
	for _, i := range g.outgoing[name] {
		t := g.Edges[i].Target
		if len(out) == 0 || out[len(out)-1] != t {
			out = append(out, t)
		}
	}
	return out
}

// Importers returns the distinct sources of edges into name, sorted.
func (g *AnalyzedGraph) Importers(name qname.Name) []qname.Name {
	var out []qname.Name
	for _, i := range g.incoming[name] {
		s := g.Edges[i].Source
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}

// Roots returns internal nodes nothing imports, or every internal node
// when each one is imported by something.
func (g *AnalyzedGraph) Roots() []qname.Name {
	var roots, internal []qname.Name
	for _, n := range g.Nodes {
		if n.Kind != resolver.KindInternal {
			continue
		}
		internal = append(internal, n.Name)
		if n.FanIn == 0 {
			roots = append(roots, n.Name)
		}
	}
	if len(roots) == 0 {
		return internal
	}
	return roots
}
