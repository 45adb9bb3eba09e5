package architecture

import (
	"fmt"
	"strings"

	"constref/internal/core/errors"
	"constref/internal/shared/util"
)

// Layer is a named set of project paths.
type Layer struct {
	Name  string
	Paths []string
}

// Rule restricts which layers the files of From may reference.
type Rule struct {
	Name  string
	From  string
	Allow []string
}

type compiledLayer struct {
	name  string
	paths util.PatternSet
}

type compiledRule struct {
	name  string
	allow map[string]bool
}

// Engine assigns files to layers and checks references against the rules.
// A file belongs to the first layer that matches it. Files outside every
// layer, and layers without a rule, are unrestricted.
type Engine struct {
	layers []compiledLayer
	rules  map[string]compiledRule
}

func NewEngine(layers []Layer, rules []Rule) (*Engine, error) {
	e := &Engine{rules: make(map[string]compiledRule, len(rules))}
	known := make(map[string]bool, len(layers))
	for _, layer := range layers {
		paths, err := util.CompilePatterns(withDescendants(layer.Paths))
		if err != nil {
			err = errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("layer %q", layer.Name))
			return nil, errors.AddContext(err, errors.CtxSection, "architecture")
		}
		e.layers = append(e.layers, compiledLayer{name: layer.Name, paths: paths})
		known[layer.Name] = true
	}
	for _, rule := range rules {
		if !known[rule.From] {
			err := errors.Newf(errors.CodeValidationError, "rule %q: unknown layer %q", rule.Name, rule.From)
			return nil, errors.AddContext(err, errors.CtxSection, "architecture")
		}
		allow := make(map[string]bool, len(rule.Allow))
		for _, name := range rule.Allow {
			allow[name] = true
		}
		e.rules[rule.From] = compiledRule{name: rule.Name, allow: allow}
	}
	return e, nil
}

// withDescendants lets a wildcard directory pattern such as
// components/*/app/models cover the files below it, as literal paths do.
func withDescendants(patterns []string) []string {
	out := make([]string, 0, len(patterns)*2)
	for _, pattern := range patterns {
		out = append(out, pattern)
		norm := util.NormalizePatternPath(pattern)
		if strings.ContainsAny(norm, "*?[]{}") && !strings.HasSuffix(norm, "**") {
			out = append(out, norm+"/**")
		}
	}
	return out
}

// LayerOf returns the layer of a project-relative path.
func (e *Engine) LayerOf(path string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, layer := range e.layers {
		if layer.paths.Match(path) {
			return layer.name, true
		}
	}
	return "", false
}
