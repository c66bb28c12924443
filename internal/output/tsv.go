// # internal/output/tsv.go
package output

import (
	"fmt"
	"strings"

	"snakr/internal/engine/diag"
	"snakr/internal/engine/graph"
)

type TSVGenerator struct {
	graph *graph.AnalyzedGraph
}

func NewTSVGenerator(g *graph.AnalyzedGraph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate writes one row per edge. Symbols and aliases are comma
// separated; an empty column means a whole-module import.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Source\tTarget\tKind\tLevel\tLine\tConditional\tSymbols\tAliases\n")
	for _, e := range t.graph.Edges {
		target, _ := t.graph.Node(e.Target)
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%d\t%t\t%s\t%s\n",
			e.Source,
			e.Target,
			target.Kind,
			e.Level,
			e.Line,
			e.Conditional,
			strings.Join(e.Symbols, ","),
			strings.Join(e.Aliases, ","),
		))
	}

	return buf.String(), nil
}

// GenerateDiagnostics lists parse errors and unresolved imports.
func (t *TSVGenerator) GenerateDiagnostics(events []diag.Event) (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tUnit\tModule\tLine\tImport\tReason\n")
	for _, e := range events {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Kind,
			e.Unit,
			e.Module,
			e.Line,
			tsvField(e.RawText),
			tsvField(e.Reason),
		))
	}

	return buf.String(), nil
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
