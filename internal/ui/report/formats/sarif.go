// # internal/ui/report/formats/sarif.go
package formats

import (
	"encoding/json"
	"fmt"
	"strings"

	"constref/internal/engine/architecture"
)

// SARIF v2.1.0, see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDCycle     = "CREF001"
	ruleIDViolation = "CREF002"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

// GenerateSARIF reports file cycles and layer violations. URIs stay
// project-relative.
func GenerateSARIF(cycles [][]string, violations []architecture.Violation) ([]byte, error) {
	results := make([]sarifResult, 0, len(cycles)+len(violations))

	for _, cycle := range cycles {
		result := sarifResult{
			RuleID:  ruleIDCycle,
			Level:   "warning",
			Message: sarifMessage{Text: fmt.Sprintf("Reference cycle: %s", strings.Join(cycle, " -> "))},
		}
		if len(cycle) > 0 {
			result.Locations = []sarifLocation{fileLocation(cycle[0], 0, 0)}
		}
		results = append(results, result)
	}

	for _, v := range violations {
		results = append(results, sarifResult{
			RuleID:    ruleIDViolation,
			Level:     "error",
			Message:   sarifMessage{Text: fmt.Sprintf("%s (%s) is not allowed from layer %s by rule %s", v.Constant, v.ToLayer, v.FromLayer, v.Rule)},
			Locations: []sarifLocation{fileLocation(v.File, v.Location.Line, v.Location.Column)},
		})
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name: "constref",
				Rules: []sarifRule{
					{ID: ruleIDCycle, Name: "ReferenceCycle", ShortDescription: sarifMessage{Text: "Files reference each other in a cycle"}},
					{ID: ruleIDViolation, Name: "LayerViolation", ShortDescription: sarifMessage{Text: "Reference crosses a disallowed layer boundary"}},
				},
			}},
			Results: results,
		}},
	}
	return json.MarshalIndent(report, "", "  ")
}

func fileLocation(path string, line, column int) sarifLocation {
	loc := sarifLocation{PhysicalLocation: sarifPhysicalLocation{
		ArtifactLocation: sarifArtifactLocation{URI: path, URIBaseID: "%SRCROOT%"},
	}}
	if line > 0 {
		loc.PhysicalLocation.Region = &sarifRegion{StartLine: line, StartColumn: column}
	}
	return loc
}
