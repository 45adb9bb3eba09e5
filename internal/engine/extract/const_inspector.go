package extract

import "constref/internal/engine/ast"

// ConstInspector reports direct constant uses. Only the outermost node of a
// compound path is inspected, so `Spam::Eggs::Thing` is one reference rather
// than three.
type ConstInspector struct{}

func (ConstInspector) ConstantName(node ast.Node, ancestors ast.Ancestors, _ string) (string, bool) {
	if !ast.IsConstant(node) {
		return "", false
	}
	parent := ancestors.Parent()
	if parent != nil && ast.IsConstant(parent) {
		return "", false
	}
	name, err := ast.ConstantName(node)
	if err != nil {
		return "", false
	}
	if parent != nil && definesName(parent, node, name) {
		// The name being defined is already qualified by the definitions
		// around it; resolving it relative to them again would double up.
		qualified, err := ast.ParentModuleName(ancestors)
		if err != nil {
			return "", false
		}
		return ast.RootMarker + qualified, true
	}
	return name, true
}

// definesName reports whether node is the name introduced by definition.
// A superclass or other constant inside the same header is a plain use.
func definesName(definition, node ast.Node, name string) bool {
	switch v := definition.(type) {
	case *ast.ClassDef:
		if v.ConstantPath != node {
			return false
		}
	case *ast.ModuleDef:
		if v.ConstantPath != node {
			return false
		}
	case *ast.ConstantPathWrite:
		if ast.Node(v.Target) != node {
			return false
		}
	case *ast.ConstantWrite:
		return false
	}
	defined, ok, err := ast.ModuleNameFromDefinition(definition)
	return err == nil && ok && defined == name
}
