package extract

import (
	"strings"

	"constref/internal/engine/ast"
)

// Definitions maps each fully-qualified name a file defines to the location of
// the defining identifier. One value is built per file and never merged.
type Definitions struct {
	byName map[string]ast.Location
}

// NewDefinitions records constant writes, class and module definitions in
// root. A compact definition such as `class Sales::Order` registers both
// ::Sales and ::Sales::Order at the location of its name.
func NewDefinitions(root ast.Node) *Definitions {
	d := &Definitions{byName: make(map[string]ast.Location)}
	if root != nil {
		d.visit(root, nil)
	}
	return d
}

func (d *Definitions) visit(n ast.Node, namespace []string) {
	switch v := n.(type) {
	case *ast.ConstantWrite:
		d.add(namespace, v.Name, ast.NameLocation(v))
	case *ast.ConstantPathWrite:
		// self::X or foo::X define nothing we can name statically.
		if name, err := ast.ConstantName(v); err == nil {
			d.add(namespace, name, ast.NameLocation(v))
		}
	case *ast.ClassDef:
		d.visitNamespace(v, v.ConstantPath, v.Body, namespace)
		return
	case *ast.ModuleDef:
		d.visitNamespace(v, v.ConstantPath, v.Body, namespace)
		return
	}
	for _, child := range n.Children() {
		d.visit(child, namespace)
	}
}

func (d *Definitions) visitNamespace(def, constantPath, body ast.Node, namespace []string) {
	name, err := ast.ClassOrModuleName(def)
	if err != nil {
		if body != nil {
			d.visit(body, namespace)
		}
		return
	}
	if ast.IsQualified(name) {
		namespace = nil
	}
	parts := ast.SplitName(name)
	loc := ast.NameLocation(constantPath)
	for i := range parts {
		d.add(namespace, strings.Join(parts[:i+1], ast.RootMarker), loc)
	}
	if body == nil {
		return
	}
	inner := make([]string, 0, len(namespace)+len(parts))
	inner = append(inner, namespace...)
	inner = append(inner, parts...)
	d.visit(body, inner)
}

func (d *Definitions) add(namespace []string, name string, loc ast.Location) {
	if ast.IsQualified(name) {
		d.byName[name] = loc
		return
	}
	d.byName[ast.Qualify(namespace, name)] = loc
}

// Lookup returns where the file defines name, which must be fully qualified.
func (d *Definitions) Lookup(name string) (ast.Location, bool) {
	loc, ok := d.byName[name]
	return loc, ok
}

func (d *Definitions) Len() int {
	return len(d.byName)
}

// IsLocalReference reports whether name, used at location inside
// namespacePath, denotes something this file defines elsewhere. A definition
// is never a local reference to itself.
func (d *Definitions) IsLocalReference(name string, location ast.Location, namespacePath []string) bool {
	for _, candidate := range ast.Qualifications(name, namespacePath) {
		if defined, ok := d.byName[candidate]; ok && defined != location {
			return true
		}
	}
	return false
}
