package formats

import "constref/internal/engine/graph"

// cycleMembers maps each node that sits on a cycle to the 1-based index of
// its cycle. An edge is a cycle edge when both ends share a cycle.
type cycleMembers map[string]int

func newCycleMembers(cycles [][]string) cycleMembers {
	m := make(cycleMembers)
	for i, cycle := range cycles {
		for _, node := range cycle {
			m[node] = i + 1
		}
	}
	return m
}

func (m cycleMembers) has(node string) bool {
	_, ok := m[node]
	return ok
}

func (m cycleMembers) edge(e graph.Edge) bool {
	group, ok := m[e.From]
	return ok && m[e.To] == group
}
