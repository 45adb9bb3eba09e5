package resolver

import (
	"strings"

	"constref/internal/engine/ast"
	"constref/internal/engine/extract"
)

// ConstantContext is a resolved constant and the file expected to define it.
type ConstantContext struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Reference is a cross-file dependency: RelativePath uses Constant at
// SourceLocation.
type Reference struct {
	RelativePath   string          `json:"relative_path"`
	Constant       ConstantContext `json:"constant"`
	SourceLocation ast.Location    `json:"source_location"`
}

// Resolve finds the constant a name denotes from within namespacePath. The
// innermost namespace wins. When no qualification of the full name is
// indexed, trailing segments are peeled off until a defining namespace is
// found; the result keeps the full name and points at that namespace's file,
// which models namespaces that have no file of their own.
func (i *Index) Resolve(name string, namespacePath []string) (ConstantContext, bool) {
	if ast.IsQualified(name) {
		namespacePath = nil
	}
	relative := strings.TrimPrefix(name, ast.RootMarker)
	if relative == "" {
		return ConstantContext{}, false
	}
	return i.resolve(relative, namespacePath, relative)
}

func (i *Index) resolve(name string, namespacePath []string, original string) (ConstantContext, bool) {
	for depth := len(namespacePath); depth >= 0; depth-- {
		if path, ok := i.paths[ast.Qualify(namespacePath[:depth], name)]; ok {
			return ConstantContext{Name: ast.Qualify(namespacePath[:depth], original), Location: path}, true
		}
	}
	cut := strings.LastIndex(name, ast.RootMarker)
	if cut < 0 {
		return ConstantContext{}, false
	}
	return i.resolve(name[:cut], namespacePath, original)
}

// FullyQualified resolves candidates against the index. Unresolvable names
// and names the originating file is itself expected to define are dropped.
func FullyQualified(unresolved []extract.UnresolvedReference, index *Index) []Reference {
	out := make([]Reference, 0, len(unresolved))
	for _, candidate := range unresolved {
		constant, ok := index.Resolve(candidate.ConstantName, candidate.NamespacePath)
		if !ok {
			continue
		}
		if constant.Location == candidate.RelativePath {
			continue
		}
		out = append(out, Reference{
			RelativePath:   candidate.RelativePath,
			Constant:       constant,
			SourceLocation: candidate.SourceLocation,
		})
	}
	return out
}
