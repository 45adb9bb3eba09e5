package architecture

import (
	"fmt"
	"sort"

	"constref/internal/engine/ast"
	"constref/internal/engine/resolver"
)

type Violation struct {
	Rule      string       `json:"rule"`
	FromLayer string       `json:"from_layer"`
	ToLayer   string       `json:"to_layer"`
	File      string       `json:"file"`
	Constant  string       `json:"constant"`
	Target    string       `json:"target"`
	Location  ast.Location `json:"location"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s:%s: reference to %s crosses %s -> %s (rule %s)",
		v.File, v.Location, v.Constant, v.FromLayer, v.ToLayer, v.Rule)
}

type EvaluationResult struct {
	Violations     []Violation
	EvaluatedFiles int
}

// Evaluate checks every reference whose source and target sit in different
// layers. References within a layer are always allowed.
func (e *Engine) Evaluate(refs []resolver.Reference) EvaluationResult {
	if e == nil || len(e.layers) == 0 {
		return EvaluationResult{}
	}

	files := make(map[string]bool)
	violations := make([]Violation, 0)
	for _, ref := range refs {
		from, ok := e.LayerOf(ref.RelativePath)
		if !ok {
			continue
		}
		files[ref.RelativePath] = true

		to, ok := e.LayerOf(ref.Constant.Location)
		if !ok || to == from {
			continue
		}
		rule, ok := e.rules[from]
		if !ok || rule.allow[to] {
			continue
		}
		violations = append(violations, Violation{
			Rule:      rule.name,
			FromLayer: from,
			ToLayer:   to,
			File:      ref.RelativePath,
			Constant:  ref.Constant.Name,
			Target:    ref.Constant.Location,
			Location:  ref.SourceLocation,
		})
	}

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Location.Line == violations[j].Location.Line {
				return violations[i].Location.Column < violations[j].Location.Column
			}
			return violations[i].Location.Line < violations[j].Location.Line
		}
		return violations[i].File < violations[j].File
	})

	return EvaluationResult{Violations: violations, EvaluatedFiles: len(files)}
}
