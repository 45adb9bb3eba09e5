// # internal/engine/graph/graph.go
package graph

import (
	"sort"
	"strings"
	"sync"

	"constref/internal/engine/resolver"
	"constref/internal/shared/observability"
)

// Granularity selects the node type of a graph view.
type Granularity string

const (
	ByFile      Granularity = "file"
	ByComponent Granularity = "component"
)

// Edge aggregates every reference one node makes to another.
type Edge struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Constants  []string `json:"constants"`
	References int      `json:"references"`
}

type NodeMetrics struct {
	FanIn  int `json:"fan_in"`
	FanOut int `json:"fan_out"`
}

// Graph holds the resolved references of every analyzed file. Views at file
// or component granularity are derived on demand.
type Graph struct {
	mu    sync.RWMutex
	files map[string][]resolver.Reference
}

func NewGraph() *Graph {
	return &Graph{files: make(map[string][]resolver.Reference)}
}

// SetFileReferences replaces everything path contributed before.
func (g *Graph) SetFileReferences(path string, refs []resolver.Reference) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[path] = append([]resolver.Reference(nil), refs...)
	g.updateMetricsLocked()
}

func (g *Graph) RemoveFile(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.files, path)
	g.updateMetricsLocked()
}

func (g *Graph) FileCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.files)
}

// Files returns the analyzed paths in sorted order.
func (g *Graph) Files() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.files))
	for path := range g.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// References returns every reference ordered by file, then source position.
func (g *Graph) References() []resolver.Reference {
	g.mu.RLock()
	defer g.mu.RUnlock()

	paths := make([]string, 0, len(g.files))
	for path := range g.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []resolver.Reference
	for _, path := range paths {
		out = append(out, g.files[path]...)
	}
	return out
}

// Edges returns the aggregated edges of a view sorted by (From, To).
// Component views drop edges that stay inside one component.
func (g *Graph) Edges(granularity Granularity) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesLocked(granularity)
}

func (g *Graph) edgesLocked(granularity Granularity) []Edge {
	type key struct{ from, to string }
	edges := make(map[key]*Edge)
	constants := make(map[key]map[string]bool)

	for _, refs := range g.files {
		for _, ref := range refs {
			from, to := nodeOf(ref.RelativePath, granularity), nodeOf(ref.Constant.Location, granularity)
			if from == to {
				continue
			}
			k := key{from, to}
			edge, ok := edges[k]
			if !ok {
				edge = &Edge{From: from, To: to}
				edges[k] = edge
				constants[k] = make(map[string]bool)
			}
			edge.References++
			if !constants[k][ref.Constant.Name] {
				constants[k][ref.Constant.Name] = true
				edge.Constants = append(edge.Constants, ref.Constant.Name)
			}
		}
	}

	out := make([]Edge, 0, len(edges))
	for _, edge := range edges {
		sort.Strings(edge.Constants)
		out = append(out, *edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From == out[j].From {
			return out[i].To < out[j].To
		}
		return out[i].From < out[j].From
	})
	return out
}

// Nodes returns every node of a view, including files without references.
func (g *Graph) Nodes(granularity Granularity) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodesLocked(granularity)
}

func (g *Graph) nodesLocked(granularity Granularity) []string {
	seen := make(map[string]bool)
	for path, refs := range g.files {
		seen[nodeOf(path, granularity)] = true
		for _, ref := range refs {
			seen[nodeOf(ref.Constant.Location, granularity)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for node := range seen {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Metrics computes fan-in and fan-out per node of a view.
func (g *Graph) Metrics(granularity Granularity) map[string]NodeMetrics {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[string]NodeMetrics)
	for _, node := range g.nodesLocked(granularity) {
		out[node] = NodeMetrics{}
	}
	for _, edge := range g.edgesLocked(granularity) {
		from, to := out[edge.From], out[edge.To]
		from.FanOut++
		to.FanIn++
		out[edge.From], out[edge.To] = from, to
	}
	return out
}

// Dependents returns the nodes that reference target directly and the ones
// that reach it only through others.
func (g *Graph) Dependents(granularity Granularity, target string) (direct, transitive []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	reverse := make(map[string][]string)
	for _, edge := range g.edgesLocked(granularity) {
		reverse[edge.To] = append(reverse[edge.To], edge.From)
	}

	direct = append([]string(nil), reverse[target]...)
	sort.Strings(direct)

	seen := map[string]bool{target: true}
	for _, node := range direct {
		seen[node] = true
	}
	queue := append([]string(nil), direct...)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, next := range reverse[curr] {
			if seen[next] {
				continue
			}
			seen[next] = true
			transitive = append(transitive, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(transitive)
	return direct, transitive
}

func (g *Graph) updateMetricsLocked() {
	observability.GraphNodes.Set(float64(len(g.nodesLocked(ByFile))))
	observability.GraphEdges.Set(float64(len(g.edgesLocked(ByFile))))
}

func nodeOf(path string, granularity Granularity) string {
	if granularity == ByComponent {
		return ComponentOf(path)
	}
	return path
}

// ComponentOf names the component a project-relative path belongs to:
// components/<name>/... maps to <name>, anything else to its first segment.
func ComponentOf(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "./"), "/")
	if len(parts) >= 3 && parts[0] == "components" {
		return parts[1]
	}
	if len(parts) == 1 {
		return "."
	}
	return parts[0]
}
