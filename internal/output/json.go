package output

import (
	"encoding/json"
	"time"

	"snakr/internal/engine/diag"
	"snakr/internal/engine/graph"
)

// Report is the machine-readable result of one build.
type Report struct {
	RunID       string               `json:"run_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Roots       []string             `json:"roots,omitempty"`
	Graph       *graph.AnalyzedGraph `json:"graph"`
	Hotspots    []graph.Node         `json:"hotspots,omitempty"`
	Diagnostics []diag.Event         `json:"diagnostics"`
}

func GenerateJSON(r Report) ([]byte, error) {
	if r.Diagnostics == nil {
		r.Diagnostics = []diag.Event{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
