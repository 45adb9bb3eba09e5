package formats

import (
	"fmt"
	"strconv"
	"strings"

	"constref/internal/engine/graph"
)

// GenerateMermaid renders a flowchart of a reference graph view. Edges whose
// ends are not in nodes are left out.
func GenerateMermaid(nodes []string, edges []graph.Edge, cycles [][]string) string {
	ids := makeIDs(nodes)
	members := newCycleMembers(cycles)

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, node := range nodes {
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", ids[node], quoteLabel(node))
	}

	var links int
	var hot []string
	for _, edge := range edges {
		from, okFrom := ids[edge.From]
		to, okTo := ids[edge.To]
		if !okFrom || !okTo {
			continue
		}
		fmt.Fprintf(&b, "  %s -->|%d| %s\n", from, edge.References, to)
		if members.edge(edge) {
			hot = append(hot, strconv.Itoa(links))
		}
		links++
	}

	b.WriteString("  classDef cycle fill:#ffe4e1,stroke:#d00,stroke-width:2px\n")
	for _, node := range nodes {
		if members.has(node) {
			fmt.Fprintf(&b, "  class %s cycle\n", ids[node])
		}
	}
	if len(hot) > 0 {
		fmt.Fprintf(&b, "  linkStyle %s stroke:#d00,stroke-width:3px\n", strings.Join(hot, ","))
	}
	return b.String()
}
