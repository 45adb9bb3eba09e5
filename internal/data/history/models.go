package history

import (
	"sort"
	"time"

	"constref/internal/engine/resolver"
)

// Run is one saved analysis of a project.
type Run struct {
	ID             string    `json:"id"`
	ProjectKey     string    `json:"project_key"`
	StartedAt      time.Time `json:"started_at"`
	FileCount      int       `json:"file_count"`
	ReferenceCount int       `json:"reference_count"`
	ViolationCount int       `json:"violation_count"`
	CycleCount     int       `json:"cycle_count"`
}

// EdgeKey identifies a dependency independent of where in the file it is
// written, so moving a line does not count as a change.
type EdgeKey struct {
	From     string `json:"from"`
	Constant string `json:"constant"`
	To       string `json:"to"`
}

type Diff struct {
	Added   []EdgeKey `json:"added"`
	Removed []EdgeKey `json:"removed"`
}

func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffReferences compares two reference sets by EdgeKey.
func DiffReferences(baseline, current []resolver.Reference) Diff {
	before := edgeSet(baseline)
	after := edgeSet(current)

	diff := Diff{Added: []EdgeKey{}, Removed: []EdgeKey{}}
	for key := range after {
		if !before[key] {
			diff.Added = append(diff.Added, key)
		}
	}
	for key := range before {
		if !after[key] {
			diff.Removed = append(diff.Removed, key)
		}
	}
	sortKeys(diff.Added)
	sortKeys(diff.Removed)
	return diff
}

func edgeSet(refs []resolver.Reference) map[EdgeKey]bool {
	out := make(map[EdgeKey]bool, len(refs))
	for _, ref := range refs {
		out[EdgeKey{From: ref.RelativePath, Constant: ref.Constant.Name, To: ref.Constant.Location}] = true
	}
	return out
}

func sortKeys(keys []EdgeKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		if keys[i].Constant != keys[j].Constant {
			return keys[i].Constant < keys[j].Constant
		}
		return keys[i].To < keys[j].To
	})
}
