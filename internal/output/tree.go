package output

import (
	"fmt"

	"snakr/internal/engine/graph"
	"snakr/internal/engine/qname"
	"snakr/internal/engine/resolver"

	"github.com/charmbracelet/lipgloss/tree"
)

// TreeRenderer draws the import graph as a tree rooted at every module
// nothing imports. An import that closes a loop is shown as a cycle marker.
// A module already expanded elsewhere is listed once more without its
// children.
type TreeRenderer struct {
	graph *graph.AnalyzedGraph
	// MaxDepth stops expansion below this many levels. 0 means unlimited.
	MaxDepth int
}

func NewTreeRenderer(g *graph.AnalyzedGraph) *TreeRenderer {
	return &TreeRenderer{graph: g}
}

func (r *TreeRenderer) Render() string {
	roots := r.graph.Roots()
	if len(roots) == 0 {
		return cycleStyle.Render("No dependencies found") + "\n"
	}

	expanded := make(map[qname.Name]bool)
	top := tree.Root(titleStyle.Render(roots[0].String())).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(statusStyle)
	r.addChildren(top, roots[0], map[qname.Name]bool{roots[0]: true}, expanded, 1)

	for _, root := range roots[1:] {
		sub := tree.Root(titleStyle.Render(root.String()))
		r.addChildren(sub, root, map[qname.Name]bool{root: true}, expanded, 1)
		top.Child(sub)
	}
	return top.String() + "\n"
}

func (r *TreeRenderer) addChildren(t *tree.Tree, name qname.Name, path, expanded map[qname.Name]bool, depth int) {
	expanded[name] = true
	for _, child := range r.graph.Neighbors(name) {
		if path[child] {
			marker := "↩ cycle to " + child.String()
			if c, ok := r.graph.CycleOf(child); ok && c.Len() > 1 {
				marker += fmt.Sprintf(" (%d modules)", c.Len())
			}
			t.Child(cycleStyle.Render(marker))
			continue
		}
		node, _ := r.graph.Node(child)
		label := r.label(node)

		children := r.graph.Neighbors(child)
		if len(children) == 0 || node.Kind != resolver.KindInternal {
			t.Child(label)
			continue
		}
		if expanded[child] || (r.MaxDepth > 0 && depth >= r.MaxDepth) {
			t.Child(label + statusStyle.Render(" …"))
			continue
		}

		sub := tree.Root(label)
		path[child] = true
		r.addChildren(sub, child, path, expanded, depth+1)
		delete(path, child)
		t.Child(sub)
	}
}

func (r *TreeRenderer) label(n graph.Node) string {
	switch n.Kind {
	case resolver.KindExternal:
		return statusStyle.Render(n.Name.String())
	case resolver.KindUnresolved:
		return unresolvedStyle.Render(n.Name.String() + " ?")
	}
	if n.InCycle {
		return cycleStyle.Render(n.Name.String())
	}
	return moduleStyle.Render(n.Name.String())
}
