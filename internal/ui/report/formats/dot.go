package formats

import (
	"fmt"
	"strings"

	"constref/internal/engine/graph"
)

const (
	dotNode      = `  %q [label="%s", color="darkslategrey"];` + "\n"
	dotCycleNode = `  %q [label="%s", style="rounded,filled", fillcolor="mistyrose", color="red", penwidth=2.0];` + "\n"
	dotEdge      = `  %q -> %q [label="%s", color="forestgreen"];` + "\n"
	dotCycleEdge = `  %q -> %q [label="%s", color="red", penwidth=3.0];` + "\n"
)

// GenerateDOT renders a view of the reference graph for Graphviz. Cycle
// members and the edges between them are highlighted.
func GenerateDOT(nodes []string, edges []graph.Edge, cycles [][]string, metrics map[string]graph.NodeMetrics) string {
	members := newCycleMembers(cycles)

	var b strings.Builder
	b.WriteString(`digraph references {
  rankdir=LR;
  node [shape=box, style=rounded, fontname="Helvetica", fontsize=10];
  edge [fontname="Helvetica", fontsize=8, penwidth=1.2];
  overlap=false;

`)
	for _, node := range nodes {
		format := dotNode
		if members.has(node) {
			format = dotCycleNode
		}
		fmt.Fprintf(&b, format, node, quoteLabel(nodeLabel(node, metrics)))
	}
	b.WriteString("\n")
	for _, edge := range edges {
		format := dotEdge
		if members.edge(edge) {
			format = dotCycleEdge
		}
		fmt.Fprintf(&b, format, edge.From, edge.To, quoteLabel(edgeLabel(edge)))
	}
	b.WriteString("}\n")
	return b.String()
}
