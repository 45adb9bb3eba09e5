package ast

import (
	"strings"

	"constref/internal/core/errors"
)

// RootMarker prefixes every fully-qualified constant name.
const RootMarker = "::"

// ErrDynamicName reports a constant whose namespace cannot be known without
// running the code, e.g. `self::HEADERS` or `klass.constantize::Row`.
var ErrDynamicName = errors.New(errors.CodeNotSupported, "constant name is not statically known")

// ErrNotApplicable reports a helper called with a node of the wrong shape.
var ErrNotApplicable = errors.New(errors.CodeValidationError, "node does not support this operation")

func IsConstant(n Node) bool {
	switch n.(type) {
	case *ConstantRead, *ConstantPath:
		return true
	}
	return false
}

func IsConstantAssignment(n Node) bool {
	switch n.(type) {
	case *ConstantWrite, *ConstantPathWrite:
		return true
	}
	return false
}

func IsClass(n Node) bool {
	_, ok := n.(*ClassDef)
	return ok
}

func IsModule(n Node) bool {
	_, ok := n.(*ModuleDef)
	return ok
}

func IsCall(n Node) bool {
	_, ok := n.(*Call)
	return ok
}

func IsHash(n Node) bool {
	_, ok := n.(*Hash)
	return ok
}

func IsString(n Node) bool {
	_, ok := n.(*String)
	return ok
}

func IsSymbol(n Node) bool {
	_, ok := n.(*Symbol)
	return ok
}

func IsBlock(n Node) bool {
	_, ok := n.(*Block)
	return ok
}

// LiteralValue returns the value of a string or symbol literal.
func LiteralValue(n Node) (string, error) {
	switch v := n.(type) {
	case *String:
		return v.Value, nil
	case *Symbol:
		return v.Value, nil
	}
	return "", ErrNotApplicable
}

func MethodName(n Node) (string, error) {
	call, ok := n.(*Call)
	if !ok {
		return "", ErrNotApplicable
	}
	return call.Name, nil
}

// MethodArguments returns positional arguments followed by the keyword hash,
// if any, in source order.
func MethodArguments(n Node) ([]Node, error) {
	call, ok := n.(*Call)
	if !ok {
		return nil, ErrNotApplicable
	}
	return call.Arguments, nil
}

// ValueFromHash looks up the value stored under a symbol key. String keys do
// not match: `"class_name" => ...` is a different key from `class_name: ...`.
func ValueFromHash(n Node, key string) (Node, error) {
	hash, ok := n.(*Hash)
	if !ok {
		return nil, ErrNotApplicable
	}
	for _, element := range hash.Elements {
		pair, ok := element.(*Assoc)
		if !ok {
			continue
		}
		sym, ok := pair.Key.(*Symbol)
		if ok && sym.Value == key {
			return pair.Value, nil
		}
	}
	return nil, nil
}

// ConstantName returns the name a constant node denotes, as written. Root
// anchored paths keep their leading "::".
func ConstantName(n Node) (string, error) {
	switch v := n.(type) {
	case *ConstantRead:
		return v.Name, nil
	case *ConstantWrite:
		return v.Name, nil
	case *ConstantPath:
		return scopedName(v.Scope, v.Name)
	case *ConstantPathWrite:
		if v.Target == nil {
			return "", ErrDynamicName
		}
		return scopedName(v.Target.Scope, v.Target.Name)
	}
	return "", ErrDynamicName
}

func scopedName(scope Node, name string) (string, error) {
	if scope == nil {
		return RootMarker + name, nil
	}
	parent, err := ConstantName(scope)
	if err != nil {
		return "", err
	}
	return parent + RootMarker + name, nil
}

// ClassOrModuleName returns the name introduced by a class or module keyword.
func ClassOrModuleName(n Node) (string, error) {
	switch v := n.(type) {
	case *ClassDef:
		return ConstantName(v.ConstantPath)
	case *ModuleDef:
		return ConstantName(v.ConstantPath)
	}
	return "", ErrNotApplicable
}

// ModuleNameFromDefinition returns the name of the class or module n defines,
// covering both the keyword forms and `Name = Class.new` / `Name = Module.new`
// with an optional block. ok is false when n defines no class or module.
func ModuleNameFromDefinition(n Node) (name string, ok bool, err error) {
	switch v := n.(type) {
	case *ClassDef, *ModuleDef:
		name, err = ClassOrModuleName(v)
		return name, err == nil, err
	case *ConstantWrite:
		if isModuleCreation(v.Value) {
			return v.Name, true, nil
		}
	case *ConstantPathWrite:
		if isModuleCreation(v.Value) {
			name, err = ConstantName(v)
			return name, err == nil, err
		}
	}
	return "", false, nil
}

func isModuleCreation(n Node) bool {
	call, ok := n.(*Call)
	if !ok || call.Name != "new" || call.Receiver == nil || !IsConstant(call.Receiver) {
		return false
	}
	name, err := ConstantName(call.Receiver)
	return err == nil && (name == "Class" || name == "Module")
}

// LocationOf returns where n starts.
func LocationOf(n Node) Location {
	if n == nil {
		return Location{}
	}
	return n.Location()
}

// NameLocation returns the location of the identifier token naming n: the
// constant itself, the assigned constant, or a call's method name. The zero
// Location is returned for every other node.
func NameLocation(n Node) Location {
	switch v := n.(type) {
	case *ConstantRead:
		return v.Loc
	case *ConstantPath:
		return v.NameLoc
	case *ConstantWrite:
		return v.NameLoc
	case *ConstantPathWrite:
		if v.Target == nil {
			return Location{}
		}
		return v.Target.NameLoc
	case *Call:
		return v.NameLoc
	}
	return Location{}
}

func ParentClass(n Node) (Node, error) {
	class, ok := n.(*ClassDef)
	if !ok {
		return nil, ErrNotApplicable
	}
	return class.Superclass, nil
}

// EnclosingNamespacePath returns the lexical namespace of n, outermost first.
// A class is not yet open while its own superclass expression is evaluated, so
// such an ancestor contributes nothing. A root anchored definition
// (`class ::Foo`) discards everything outside it.
func EnclosingNamespacePath(n Node, ancestors Ancestors) ([]string, error) {
	var path []string
	for i := len(ancestors) - 1; i >= 0; i-- {
		ancestor := ancestors[i]
		if !IsClass(ancestor) && !IsModule(ancestor) {
			continue
		}
		if class, ok := ancestor.(*ClassDef); ok && contains(class.Superclass, n) {
			continue
		}
		name, err := ClassOrModuleName(ancestor)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, RootMarker) {
			path = path[:0]
			name = strings.TrimPrefix(name, RootMarker)
		}
		path = append(path, name)
	}
	if path == nil {
		path = []string{}
	}
	return path, nil
}

// ParentModuleName returns the namespace a definition at this point lands in:
// enclosing class and module definitions, `X = Class.new do ... end` bodies and
// `X.class_eval do ... end` blocks. It returns "Object" at top level.
func ParentModuleName(ancestors Ancestors) (string, error) {
	var names []string
	for i := len(ancestors) - 1; i >= 0; i-- {
		part, err := namePartFromDefinition(ancestors[i])
		if err != nil {
			return "", err
		}
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, RootMarker) {
			names = names[:0]
			part = strings.TrimPrefix(part, RootMarker)
		}
		names = append(names, part)
	}
	if len(names) == 0 {
		return "Object", nil
	}
	return strings.Join(names, RootMarker), nil
}

func namePartFromDefinition(n Node) (string, error) {
	switch v := n.(type) {
	case *ClassDef, *ModuleDef, *ConstantWrite, *ConstantPathWrite:
		name, _, err := ModuleNameFromDefinition(v)
		return name, err
	case *Call:
		if v.Block == nil || v.Name != "class_eval" || v.Receiver == nil || !IsConstant(v.Receiver) {
			return "", nil
		}
		return ConstantName(v.Receiver)
	}
	return "", nil
}

func contains(root, target Node) bool {
	if root == nil || target == nil {
		return false
	}
	if root == target {
		return true
	}
	for _, child := range root.Children() {
		if contains(child, target) {
			return true
		}
	}
	return false
}
