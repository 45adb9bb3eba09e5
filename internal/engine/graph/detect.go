// # internal/engine/graph/detect.go
package graph

import "sort"

// DetectCycles returns every strongly connected group of nodes that reference
// each other, each sorted, in sorted order.
func (g *Graph) DetectCycles(granularity Granularity) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adjacency := g.adjacencyLocked(granularity)
	_, components := stronglyConnectedComponents(g.nodesLocked(granularity), adjacency)

	cycles := make([][]string, 0)
	for _, component := range components {
		if len(component) > 1 {
			cycles = append(cycles, component)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// FindChain returns the shortest reference chain from one node to another.
// Ties break toward lexically smaller neighbors.
func (g *Graph) FindChain(granularity Granularity, from, to string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	adjacency := g.adjacencyLocked(granularity)
	known := make(map[string]bool)
	for _, node := range g.nodesLocked(granularity) {
		known[node] = true
	}
	if !known[from] || !known[to] {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range adjacency[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				path := []string{to}
				for node := to; node != from; {
					node = prev[node]
					path = append(path, node)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func (g *Graph) adjacencyLocked(granularity Granularity) map[string][]string {
	adjacency := make(map[string][]string)
	for _, edge := range g.edgesLocked(granularity) {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}
	return adjacency
}

func stronglyConnectedComponents(nodes []string, adjacency map[string][]string) (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	componentOf := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}
