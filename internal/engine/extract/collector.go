package extract

import "constref/internal/engine/ast"

// Collector walks a file's tree once and asks each inspector, in order, for a
// referenced name at every node. The first inspector to answer wins.
type Collector struct {
	inspectors []Inspector
}

func NewCollector(inspectors ...Inspector) *Collector {
	return &Collector{inspectors: inspectors}
}

// Collect returns the file's candidate references in source order. Names the
// file defines itself are dropped here.
func (c *Collector) Collect(root ast.Node, relativePath string) []UnresolvedReference {
	if root == nil {
		return nil
	}
	definitions := NewDefinitions(root)
	var refs []UnresolvedReference
	ast.Walk(root, func(n ast.Node, ancestors ast.Ancestors) bool {
		if ref, ok := c.referenceFrom(n, ancestors, relativePath, definitions); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

func (c *Collector) referenceFrom(n ast.Node, ancestors ast.Ancestors, relativePath string, definitions *Definitions) (UnresolvedReference, bool) {
	name, ok := c.constantName(n, ancestors, relativePath)
	if !ok {
		return UnresolvedReference{}, false
	}
	namespacePath, err := ast.EnclosingNamespacePath(n, ancestors)
	if err != nil {
		return UnresolvedReference{}, false
	}
	loc := ast.NameLocation(n)
	if loc.IsZero() {
		loc = ast.LocationOf(n)
	}
	if definitions.IsLocalReference(name, loc, namespacePath) {
		return UnresolvedReference{}, false
	}
	return UnresolvedReference{
		ConstantName:   name,
		NamespacePath:  namespacePath,
		RelativePath:   relativePath,
		SourceLocation: loc,
	}, true
}

func (c *Collector) constantName(n ast.Node, ancestors ast.Ancestors, relativePath string) (string, bool) {
	for _, inspector := range c.inspectors {
		if name, ok := inspector.ConstantName(n, ancestors, relativePath); ok {
			return name, true
		}
	}
	return "", false
}
