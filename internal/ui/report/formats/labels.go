package formats

import (
	"fmt"
	"strings"
	"unicode"

	"constref/internal/engine/graph"
)

// makeIDs assigns identifier-safe names in input order. Names that collapse
// to the same identifier get a numeric suffix starting at 2.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	seen := make(map[string]int, len(names))
	for _, name := range names {
		id := identifier(name)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s_%d", id, n)
		}
		ids[name] = id
	}
	return ids
}

func identifier(name string) string {
	id := strings.Trim(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, name), "_")
	switch {
	case id == "":
		return "n"
	case unicode.IsDigit(rune(id[0])):
		return "n_" + id
	}
	return id
}

func quoteLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}

func nodeLabel(node string, metrics map[string]graph.NodeMetrics) string {
	m, ok := metrics[node]
	if !ok {
		return node
	}
	return fmt.Sprintf(`%s\n(in=%d out=%d)`, node, m.FanIn, m.FanOut)
}

// edgeLabel lists up to three constants carried by an edge.
func edgeLabel(edge graph.Edge) string {
	shown := edge.Constants[:min(len(edge.Constants), 3)]
	label := strings.Join(shown, ", ")
	if extra := len(edge.Constants) - len(shown); extra > 0 {
		label += fmt.Sprintf(" +%d", extra)
	}
	return label
}
