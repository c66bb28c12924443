// # internal/output/dot.go
package output

import (
	"fmt"
	"strings"

	"snakr/internal/engine/graph"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
)

type DOTGenerator struct {
	graph *graph.AnalyzedGraph
}

func NewDOTGenerator(g *graph.AnalyzedGraph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.5;\n")
	buf.WriteString("  nodesep=0.6;\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	cycleEdges := cycleEdgeSet(d.graph)

	buf.WriteString("  subgraph cluster_internal {\n")
	buf.WriteString("    label=\"Internal Modules\";\n")
	buf.WriteString("    style=filled;\n")
	buf.WriteString("    color=\"whitesmoke\";\n")
	buf.WriteString("    node [fillcolor=\"white\", style=\"rounded,filled\"];\n")
	for _, n := range d.graph.Nodes {
		if n.Kind != resolver.KindInternal {
			continue
		}
		label := fmt.Sprintf("%s\\n(in %d, out %d)", dotEscape(n.Name.String()), n.FanIn, n.FanOut)
		if n.InCycle {
			buf.WriteString(fmt.Sprintf("    %s [label=\"%s\", fillcolor=\"mistyrose\", color=\"red\", penwidth=2.0];\n", dotID(n.Name), label))
		} else {
			buf.WriteString(fmt.Sprintf("    %s [label=\"%s\", color=\"darkslategrey\"];\n", dotID(n.Name), label))
		}
	}
	buf.WriteString("  }\n\n")

	buf.WriteString("  // External and Standard Library\n")
	buf.WriteString("  node [fillcolor=\"gainsboro\", style=\"rounded,filled\", color=\"grey\"];\n")
	for _, n := range d.graph.Nodes {
		if n.Kind == resolver.KindExternal {
			buf.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", dotID(n.Name), dotEscape(n.Name.String())))
		}
	}
	buf.WriteString("\n")

	buf.WriteString("  // Unresolved\n")
	buf.WriteString("  node [fillcolor=\"lightyellow\", style=\"rounded,filled,dashed\", color=\"orange\"];\n")
	for _, n := range d.graph.Nodes {
		if n.Kind != resolver.KindUnresolved {
			continue
		}
		shape := ""
		switch {
		case resolver.IsDynamicName(n.Name):
			shape = ", shape=diamond"
		case resolver.IsRelativeName(n.Name):
			shape = ", shape=note"
		}
		buf.WriteString(fmt.Sprintf("  %s [label=\"%s\"%s, tooltip=\"%s\"];\n", dotID(n.Name), dotEscape(n.Name.String()), shape, dotEscape(n.Reason)))
	}
	buf.WriteString("\n")

	for _, e := range d.graph.Edges {
		target, _ := d.graph.Node(e.Target)
		attrs := ""
		switch {
		case cycleEdges[[2]qname.Name{e.Source, e.Target}]:
			attrs = "color=\"red\", penwidth=3.0, label=\"CYCLE\""
		case target.Kind == resolver.KindInternal:
			attrs = "color=\"forestgreen\", penwidth=1.8"
		case target.Kind == resolver.KindUnresolved:
			attrs = "color=\"orange\", style=dotted"
		default:
			attrs = "color=\"grey\", style=dashed"
		}
		if e.Conditional {
			attrs += ", arrowhead=empty"
		}
		if e.HasSymbol(parser.Wildcard) && !cycleEdges[[2]qname.Name{e.Source, e.Target}] {
			attrs += ", label=\"*\""
		}
		if e.Partial() {
			attrs += fmt.Sprintf(", tooltip=\"%s\"", dotEscape(strings.Join(e.Symbols, ", ")))
		}
		buf.WriteString(fmt.Sprintf("  %s -> %s [%s];\n", dotID(e.Source), dotID(e.Target), attrs))
	}

	buf.WriteString("\n  subgraph cluster_legend {\n")
	buf.WriteString("    label=\"Legend\";\n")
	buf.WriteString("    style=dashed;\n")
	buf.WriteString("    legend_internal [label=\"Internal Module\", fillcolor=\"white\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_external [label=\"External/Stdlib\", fillcolor=\"gainsboro\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_unresolved [label=\"Unresolved\", fillcolor=\"lightyellow\", color=\"orange\", style=\"rounded,filled,dashed\"];\n")
	buf.WriteString("    legend_cycle [label=\"Circular Import\", fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\"];\n")
	buf.WriteString("    legend_dynamic [label=\"Computed Import\", fillcolor=\"lightyellow\", color=\"orange\", style=\"filled,dashed\", shape=diamond];\n")
	buf.WriteString("    legend_relative [label=\"Relative Import Past Top Package\", fillcolor=\"lightyellow\", color=\"orange\", style=\"filled,dashed\", shape=note];\n")
	buf.WriteString("    legend_edge_conditional [label=\"Conditional Import (hollow arrow)\", shape=plaintext];\n")
	buf.WriteString("  }\n")

	buf.WriteString("}\n")

	return buf.String(), nil
}

// cycleEdgeSet collects the internal edges whose ends share a cycle.
func cycleEdgeSet(g *graph.AnalyzedGraph) map[[2]qname.Name]bool {
	out := make(map[[2]qname.Name]bool)
	for _, c := range g.Cycles {
		for _, m := range c.Members {
			for _, e := range g.Outgoing(m) {
				if c.Contains(e.Target) {
					out[[2]qname.Name{m, e.Target}] = true
				}
			}
		}
	}
	return out
}

func dotID(n qname.Name) string {
	return "\"" + dotEscape(n.String()) + "\""
}

func dotEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
