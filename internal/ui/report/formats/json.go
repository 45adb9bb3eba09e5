package formats

import (
	"encoding/json"

	"constref/internal/engine/architecture"
	"constref/internal/engine/graph"
	"constref/internal/engine/resolver"
)

// Report is the JSON document written for a run.
type Report struct {
	References []resolver.Reference     `json:"references"`
	Edges      []graph.Edge             `json:"edges,omitempty"`
	Cycles     [][]string               `json:"cycles,omitempty"`
	Violations []architecture.Violation `json:"violations,omitempty"`
}

func GenerateJSON(report Report) ([]byte, error) {
	if report.References == nil {
		report.References = []resolver.Reference{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
