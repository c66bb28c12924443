package output

import (
	"fmt"
	"strings"

	"snakr/internal/engine/graph"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
)

// SummaryRenderer prints the human-readable report. Fully resolved coupling
// is reported apart from external and unresolved imports.
type SummaryRenderer struct {
	graph       *graph.AnalyzedGraph
	TopHotspots int
	// MaxUnresolved caps the unresolved listing. 0 lists everything.
	MaxUnresolved int
}

func NewSummaryRenderer(g *graph.AnalyzedGraph) *SummaryRenderer {
	return &SummaryRenderer{graph: g, TopHotspots: 10}
}

func (r *SummaryRenderer) Render() string {
	var b strings.Builder
	s := r.graph.Summary

	b.WriteString(titleStyle.Render("Import graph") + "\n")
	b.WriteString(fmt.Sprintf("  modules     %d internal, %d external (%d stdlib, %d third-party), %d unresolved\n",
		s.Internal, s.External, s.Stdlib, s.ThirdParty, s.Unresolved))
	b.WriteString(fmt.Sprintf("  resolved    %d internal edges\n", s.InternalEdges))
	b.WriteString(fmt.Sprintf("  outside     %d external edges, %d unresolved edges\n", s.ExternalEdges, s.UnresolvedEdges))
	if s.ConditionalEdge > 0 {
		b.WriteString(fmt.Sprintf("  conditional %d edges only run under try/if\n", s.ConditionalEdge))
	}

	b.WriteString("\n")
	if len(r.graph.Cycles) == 0 {
		b.WriteString(successStyle.Render("No import cycles") + "\n")
	} else {
		b.WriteString(cycleStyle.Render(fmt.Sprintf("%d import cycle(s)", len(r.graph.Cycles))) + "\n")
		for _, c := range r.graph.Cycles {
			b.WriteString("  " + c.String() + "\n")
		}
	}

	if hotspots := r.graph.Hotspots(r.TopHotspots); len(hotspots) > 0 {
		b.WriteString("\n" + titleStyle.Render("Hotspots") + "\n")
		width := 0
		for _, h := range hotspots {
			width = max(width, len(h.Name))
		}
		for i, h := range hotspots {
			b.WriteString(fmt.Sprintf("  %2d. %-*s  score %5.1f  in %3d  out %3d  depth %2d\n",
				i+1, width, h.Name, h.Importance, h.FanIn, h.FanOut, h.Depth))
		}
	}

	var unresolved []graph.Node
	for _, n := range r.graph.Nodes {
		if n.Kind == resolver.KindUnresolved {
			unresolved = append(unresolved, n)
		}
	}
	if len(unresolved) > 0 {
		b.WriteString("\n" + unresolvedStyle.Render(fmt.Sprintf("%d unresolved target(s)", len(unresolved))) + "\n")
		for i, n := range unresolved {
			if r.MaxUnresolved > 0 && i == r.MaxUnresolved {
				b.WriteString(statusStyle.Render(fmt.Sprintf("  … %d more", len(unresolved)-i)) + "\n")
				break
			}
			line := "  " + n.Name.String()
			if n.Reason != "" {
				line += ": " + n.Reason
			}
			if importers := r.graph.Importers(n.Name); len(importers) > 0 {
				line += statusStyle.Render(" (from " + joinNames(importers) + ")")
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// RenderImpact prints what depends on a module.
func RenderImpact(report graph.ImpactReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Impact of "+report.Target.String()) + "\n")
	b.WriteString(fmt.Sprintf("  direct      %d: %s\n", len(report.DirectImporters), joinNames(report.DirectImporters)))
	b.WriteString(fmt.Sprintf("  transitive  %d: %s\n", len(report.TransitiveImporters), joinNames(report.TransitiveImporters)))
	if len(report.UsedSymbols) > 0 {
		b.WriteString("  symbols     " + strings.Join(report.UsedSymbols, ", ") + "\n")
	}
	return b.String()
}

// RenderChain prints an import chain, or a note that none exists.
func RenderChain(from, to qname.Name, chain []qname.Name, ok bool) string {
	if !ok {
		return statusStyle.Render(fmt.Sprintf("no import chain from %s to %s", from, to)) + "\n"
	}
	return graph.FormatCycle(chain) + "\n"
}

func joinNames(names []qname.Name) string {
	if len(names) == 0 {
		return "-"
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
