package app

import (
	"fmt"
	"log/slog"
	"strings"

	"constref/internal/core/config"
	"constref/internal/core/errors"
	"constref/internal/shared/util"
	"constref/internal/ui/report/formats"
)

// Report formats understood by Render. FormatViolations is a TSV of
// architecture violations.
const (
	FormatTSV        = "tsv"
	FormatJSON       = "json"
	FormatDOT        = "dot"
	FormatMermaid    = "mermaid"
	FormatSARIF      = "sarif"
	FormatViolations = "violations"
)

// Render produces one report of the current graph.
func (a *App) Render(format string) ([]byte, error) {
	gran := a.Granularity()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatTSV:
		return []byte(formats.GenerateTSV(a.Graph.References())), nil
	case FormatJSON:
		return formats.GenerateJSON(formats.Report{
			References: a.Graph.References(),
			Edges:      a.Graph.Edges(gran),
			Cycles:     a.Cycles(),
			Violations: a.Violations(),
		})
	case FormatDOT:
		return []byte(formats.GenerateDOT(a.Graph.Nodes(gran), a.Graph.Edges(gran), a.Cycles(), a.Graph.Metrics(gran))), nil
	case FormatMermaid:
		return []byte(formats.GenerateMermaid(a.Graph.Nodes(gran), a.Graph.Edges(gran), a.Cycles())), nil
	case FormatSARIF:
		return formats.GenerateSARIF(a.Cycles(), a.Violations())
	case FormatViolations:
		return []byte(formats.GenerateViolationsTSV(a.Violations())), nil
	}
	return nil, errors.AddContext(errors.New(errors.CodeNotSupported, fmt.Sprintf("unknown output format %q", format)), errors.CtxOperation, "render")
}

// WriteOutputs writes every report with a configured path and returns the
// written paths.
func (a *App) WriteOutputs() ([]string, error) {
	out := a.outputConfig()
	targets := []struct {
		format string
		path   string
	}{
		{FormatTSV, out.TSV},
		{FormatJSON, out.JSON},
		{FormatDOT, out.DOT},
		{FormatMermaid, out.Mermaid},
		{FormatSARIF, out.SARIF},
		{FormatViolations, out.Violations},
	}

	var written []string
	for _, target := range targets {
		if strings.TrimSpace(target.path) == "" {
			continue
		}
		data, err := a.Render(target.format)
		if err != nil {
			return written, err
		}
		path := config.ResolveRelative(a.Paths.ProjectRoot, target.path)
		if err := writeArtifact(path, data); err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write "+target.format+" output"), errors.CtxPath, path)
		}
		slog.Info("wrote output", "format", target.format, "path", path)
		written = append(written, path)
	}
	return written, nil
}

func writeArtifact(path string, data []byte) error {
	return util.WriteFileAtomic(path, data, 0o644)
}
