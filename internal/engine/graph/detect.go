// # internal/engine/graph/detect.go
package graph

import (
	"sort"
	"strings"
	"time"

	"snakr/internal/engine/qname"
	"snakr/internal/shared/observability"
)

// Cycle is one strongly connected component of internal modules. Members
// is sorted; Path is a concrete import loop that starts and ends at
// Members[0].
type Cycle struct {
	Members []qname.Name `json:"members"`
	Path    []qname.Name `json:"path"`
}

func (c Cycle) Len() int { return len(c.Members) }

func (c Cycle) Contains(name qname.Name) bool {
	i := sort.Search(len(c.Members), func(i int) bool { return c.Members[i] >= name })
	return i < len(c.Members) && c.Members[i] == name
}

// String renders the loop as "a -> b -> c -> a".
func (c Cycle) String() string {
	return FormatCycle(c.Path)
}

func FormatCycle(path []qname.Name) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = n.String()
	}
	return strings.Join(parts, " -> ")
}

// computeCycles reports components larger than one node, plus single
// modules that import themselves. Nodes are visited in lexical order and
// cycles are sorted by their first member.
func (g *AnalyzedGraph) computeCycles() {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("cycles").Observe(time.Since(start).Seconds())
	}()

	nodes, adjacency := g.internalAdjacency()
	_, components := stronglyConnectedComponents(nodes, adjacency)

	for _, comp := range components {
		if len(comp) == 1 && !hasSelfEdge(adjacency, comp[0]) {
			continue
		}
		members := make(map[qname.Name]bool, len(comp))
		for _, n := range comp {
			members[n] = true
		}
		g.Cycles = append(g.Cycles, Cycle{
			Members: comp,
			Path:    loopThrough(comp[0], adjacency, members),
		})
		for _, n := range comp {
			g.Nodes[g.index[n]].InCycle = true
		}
	}
	sort.Slice(g.Cycles, func(i, j int) bool { return g.Cycles[i].Members[0] < g.Cycles[j].Members[0] })
}

func hasSelfEdge(adjacency map[qname.Name][]qname.Name, n qname.Name) bool {
	for _, t := range adjacency[n] {
		if t == n {
			return true
		}
	}
	return false
}

// loopThrough finds the shortest path from start back to itself that stays
// inside members.
func loopThrough(start qname.Name, adjacency map[qname.Name][]qname.Name, members map[qname.Name]bool) []qname.Name {
	if hasSelfEdge(adjacency, start) {
		return []qname.Name{start, start}
	}
	prev := make(map[qname.Name]qname.Name)
	visited := map[qname.Name]bool{start: true}
	queue := []qname.Name{start}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[curr] {
			if !members[next] {
				continue
			}
			if next == start {
				path := []qname.Name{start}
				for n := curr; n != start; n = prev[n] {
					path = append(path, n)
				}
				path = append(path, start)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr
			queue = append(queue, next)
		}
	}
	return []qname.Name{start}
}

// CycleOf returns the cycle containing name.
func (g *AnalyzedGraph) CycleOf(name qname.Name) (Cycle, bool) {
	for _, c := range g.Cycles {
		if c.Contains(name) {
			return c, true
		}
	}
	return Cycle{}, false
}

// ImportChain returns the shortest import path from one module to another,
// following every edge kind.
func (g *AnalyzedGraph) ImportChain(from, to qname.Name) ([]qname.Name, bool) {
	if _, ok := g.index[from]; !ok {
		return nil, false
	}
	if _, ok := g.index[to]; !ok {
		return nil, false
	}
	if from == to {
		return []qname.Name{from}, true
	}

	queue := []qname.Name{from}
	visited := map[qname.Name]bool{from: true}
	prev := make(map[qname.Name]qname.Name)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.Neighbors(curr) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []qname.Name{to}
				for node := to; node != from; {
					p := prev[node]
					path = append(path, p)
					node = p
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

// stronglyConnectedComponents is Tarjan's algorithm. Components come out in
// reverse topological order with members sorted.
func stronglyConnectedComponents(nodes []qname.Name, adjacency map[qname.Name][]qname.Name) (map[qname.Name]int, [][]qname.Name) {
	index := 0
	stack := make([]qname.Name, 0, len(nodes))
	onStack := make(map[qname.Name]bool, len(nodes))
	indexByNode := make(map[qname.Name]int, len(nodes))
	lowLink := make(map[qname.Name]int, len(nodes))
	componentOf := make(map[qname.Name]int, len(nodes))
	components := make([][]qname.Name, 0)

	var strongConnect func(qname.Name)
	strongConnect = func(v qname.Name) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]qname.Name, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}
