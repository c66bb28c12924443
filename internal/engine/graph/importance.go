package graph

// internal/engine/graph/importance.go

import (
	"sort"
	"strings"

	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
)

// CalculateImportanceScore ranks a module's architectural significance:
//
//	Score = (FanIn * 2) + (FanOut * 1) + (InCycle ? 5 : 0) + (IsAPI ? 10 : 0)
//
// Parameters:
//   - fanIn:      number of distinct modules that import this module
//   - fanOut:     number of distinct modules this module imports
//   - inCycle:    whether the module sits in an import cycle
//   - moduleName: used to auto-detect "API surface" modules
func CalculateImportanceScore(fanIn, fanOut int, inCycle bool, moduleName string) float64 {
	score := float64(fanIn*2) + float64(fanOut*1)
	if inCycle {
		score += 5
	}
	if isAPIModule(moduleName) {
		score += 10
	}
	return score
}

// isAPIModule returns true when a segment of the dotted name suggests a
// public API surface.
func isAPIModule(name string) bool {
	keywords := []string{"api", "gateway", "handler", "server", "service", "views", "routes"}
	for _, seg := range qname.Name(name).Segments() {
		lower := strings.ToLower(seg)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// Hotspots returns the n internal modules with the highest importance,
// ties broken by fan-in and then name.
func (g *AnalyzedGraph) Hotspots(n int) []Node {
	if n <= 0 {
		return nil
	}
	hotspots := make([]Node, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		if node.Kind == resolver.KindInternal {
			hotspots = append(hotspots, node)
		}
	}
	sort.SliceStable(hotspots, func(i, j int) bool {
		if hotspots[i].Importance != hotspots[j].Importance {
			return hotspots[i].Importance > hotspots[j].Importance
		}
		if hotspots[i].FanIn != hotspots[j].FanIn {
			return hotspots[i].FanIn > hotspots[j].FanIn
		}
		return hotspots[i].Name < hotspots[j].Name
	})
	if len(hotspots) > n {
		return hotspots[:n]
	}
	return hotspots
}
