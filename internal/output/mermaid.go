package output

import (
	"fmt"
	"strings"
	"unicode"

	"snakr/internal/engine/graph"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"
)

// MermaidGenerator renders a flowchart. External and unresolved modules
// collapse into one aggregate node once there are too many to draw.
type MermaidGenerator struct {
	graph   *graph.AnalyzedGraph
	hotspot map[qname.Name]bool
}

const externalAggregationThreshold = 10

const externalAggregateNodeID = "__external_aggregate__"

func NewMermaidGenerator(g *graph.AnalyzedGraph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

// SetHotspots marks the top n modules by importance.
func (m *MermaidGenerator) SetHotspots(n int) {
	m.hotspot = nil
	if n <= 0 {
		return
	}
	m.hotspot = make(map[qname.Name]bool, n)
	for _, h := range m.graph.Hotspots(n) {
		m.hotspot[h.Name] = true
	}
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 80, 'rankSpacing': 110, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	var internalNames, externalNames []qname.Name
	for _, n := range m.graph.Nodes {
		if n.Kind == resolver.KindInternal {
			internalNames = append(internalNames, n.Name)
		} else {
			externalNames = append(externalNames, n.Name)
		}
	}
	aggregateExternal := len(externalNames) > externalAggregationThreshold

	allNames := append(append([]string{}, namesToStrings(internalNames)...), namesToStrings(externalNames)...)
	if aggregateExternal {
		allNames = append(allNames, externalAggregateNodeID)
	}
	ids := makeMermaidIDs(allNames)

	for _, name := range internalNames {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[name.String()], escapeMermaidLabel(m.moduleLabel(name))))
	}
	if aggregateExternal {
		b.WriteString(fmt.Sprintf("  %s[\"External/Unresolved\\n(%d modules)\"]\n", ids[externalAggregateNodeID], len(externalNames)))
	} else {
		for _, name := range externalNames {
			b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[name.String()], escapeMermaidLabel(name.String())))
		}
	}

	b.WriteString("\n")
	if len(internalNames) > 0 {
		b.WriteString("  classDef internalNode fill:#f7fbff,stroke:#4d6480,stroke-width:1px;\n")
		b.WriteString(fmt.Sprintf("  class %s internalNode;\n", joinIDs(internalNames, ids)))
	}
	if len(externalNames) > 0 {
		b.WriteString("  classDef externalNode fill:#efefef,stroke:#808080,stroke-dasharray:4 3;\n")
		if aggregateExternal {
			b.WriteString(fmt.Sprintf("  class %s externalNode;\n", ids[externalAggregateNodeID]))
		} else {
			b.WriteString(fmt.Sprintf("  class %s externalNode;\n", joinIDs(externalNames, ids)))
		}
	}
	var cycleNames, hotspotNames []qname.Name
	for _, name := range internalNames {
		if m.graph.InCycle(name) {
			cycleNames = append(cycleNames, name)
		}
		if m.hotspot[name] {
			hotspotNames = append(hotspotNames, name)
		}
	}
	if len(cycleNames) > 0 {
		b.WriteString("  classDef cycleNode fill:#ffecec,stroke:#cc0000,stroke-width:2px;\n")
		b.WriteString(fmt.Sprintf("  class %s cycleNode;\n", joinIDs(cycleNames, ids)))
	}
	if len(hotspotNames) > 0 {
		b.WriteString("  classDef hotspotNode stroke:#8a4f00,stroke-width:2px;\n")
		b.WriteString(fmt.Sprintf("  class %s hotspotNode;\n", joinIDs(hotspotNames, ids)))
	}

	b.WriteString("\n")
	cycleEdges := cycleEdgeSet(m.graph)
	externalCounts := make(map[qname.Name]int)
	linkIndex := 0
	var cycleLinks, externalLinks []int
	for _, e := range m.graph.Edges {
		target, _ := m.graph.Node(e.Target)
		internalTarget := target.Kind == resolver.KindInternal
		if aggregateExternal && !internalTarget {
			externalCounts[e.Source]++
			continue
		}
		label := ""
		switch {
		case cycleEdges[[2]qname.Name{e.Source, e.Target}]:
			label = "|CYCLE|"
			cycleLinks = append(cycleLinks, linkIndex)
		case !internalTarget:
			externalLinks = append(externalLinks, linkIndex)
		}
		b.WriteString(fmt.Sprintf("  %s -->%s %s\n", ids[e.Source.String()], label, ids[e.Target.String()]))
		linkIndex++
	}
	if aggregateExternal {
		for _, name := range internalNames {
			if count := externalCounts[name]; count > 0 {
				b.WriteString(fmt.Sprintf("  %s -->|ext:%d| %s\n", ids[name.String()], count, ids[externalAggregateNodeID]))
				externalLinks = append(externalLinks, linkIndex)
				linkIndex++
			}
		}
	}

	if len(cycleLinks) > 0 || len(externalLinks) > 0 {
		b.WriteString("\n")
	}
	if len(cycleLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#cc0000,stroke-width:3px;\n", joinInts(cycleLinks)))
	}
	if len(externalLinks) > 0 {
		b.WriteString(fmt.Sprintf("  linkStyle %s stroke:#777777,stroke-dasharray:4 3;\n", joinInts(externalLinks)))
	}

	return b.String(), nil
}

func (m *MermaidGenerator) moduleLabel(name qname.Name) string {
	n, _ := m.graph.Node(name)
	return fmt.Sprintf("%s\\n(d=%d in=%d out=%d)", name, n.Depth, n.FanIn, n.FanOut)
}

func sanitizeMermaidID(module string) string {
	var b strings.Builder
	for _, r := range module {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	if unicode.IsDigit(rune(out[0])) {
		return "m_" + out
	}
	return out
}

// makeMermaidIDs gives every name a distinct identifier. "a.b" and "a_b"
// sanitise to the same base, so later names get a numeric suffix.
func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func namesToStrings(names []qname.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

func joinIDs(names []qname.Name, ids map[string]string) string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := ids[name.String()]; ok {
			out = append(out, id)
		}
	}
	return strings.Join(out, ",")
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func joinInts(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ",")
}
