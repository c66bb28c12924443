package graph

import (
	"sort"

	"snakr/internal/core/errors"
	"snakr/internal/engine/qname"
)

// ImpactReport lists the modules affected by a change to Target.
type ImpactReport struct {
	Target              qname.Name   `json:"target"`
	DirectImporters     []qname.Name `json:"direct_importers"`
	TransitiveImporters []qname.Name `json:"transitive_importers"`
	// UsedSymbols are the names other modules pull from Target.
	UsedSymbols []string `json:"used_symbols,omitempty"`
}

// Impact walks importers of target breadth first.
func (g *AnalyzedGraph) Impact(target qname.Name) (ImpactReport, error) {
	if _, ok := g.index[target]; !ok {
		return ImpactReport{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "impact target not found"),
			errors.CtxModule, target.String(),
		)
	}

	report := ImpactReport{Target: target}
	direct := make([]qname.Name, 0)
	for _, importer := range g.Importers(target) {
		if importer != target {
			direct = append(direct, importer)
		}
	}
	report.DirectImporters = direct

	seen := map[qname.Name]bool{target: true}
	for _, importer := range direct {
		seen[importer] = true
	}
	queue := append([]qname.Name(nil), direct...)
	transitive := make([]qname.Name, 0)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range g.Importers(curr) {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
			transitive = append(transitive, next)
		}
	}
	sort.Slice(transitive, func(i, j int) bool { return transitive[i] < transitive[j] })
	report.TransitiveImporters = transitive

	symbols := make(map[string]bool)
	for _, e := range g.Incoming(target) {
		for _, s := range e.Symbols {
			symbols[s] = true
		}
	}
	for s := range symbols {
		report.UsedSymbols = append(report.UsedSymbols, s)
	}
	sort.Strings(report.UsedSymbols)
	return report, nil
}
