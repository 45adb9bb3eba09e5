// Package ast models the slice of a Ruby syntax tree that constant reference
// extraction cares about. Parsers convert their native trees into these nodes;
// every other shape is kept as Other so traversal still reaches nested code.
package ast

import "fmt"

// Location is a 1-based line/column position in the source file.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (l Location) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Node is implemented only by the types in this package.
type Node interface {
	Location() Location
	Children() []Node
	node()
}

type base struct {
	Loc Location
}

func (b *base) Location() Location { return b.Loc }
func (b *base) node()              {}

// ConstantRead is a bare constant such as `Order`.
type ConstantRead struct {
	base
	Name string
}

// ConstantPath is a scoped constant such as `Sales::Order` or `::Order`.
// A nil Scope means the path is anchored at the root namespace.
type ConstantPath struct {
	base
	Scope   Node
	Name    string
	NameLoc Location
}

// ConstantWrite is an assignment to a bare constant: `LIMIT = 10`.
type ConstantWrite struct {
	base
	Name    string
	NameLoc Location
	Value   Node
}

// ConstantPathWrite is an assignment to a scoped constant: `Sales::LIMIT = 10`.
type ConstantPathWrite struct {
	base
	Target *ConstantPath
	Value  Node
}

// ClassDef is a `class ... end` definition.
type ClassDef struct {
	base
	ConstantPath Node
	Superclass   Node
	Body         Node
}

// ModuleDef is a `module ... end` definition.
type ModuleDef struct {
	base
	ConstantPath Node
	Body         Node
}

// Call is a method call, with or without receiver, arguments and block.
type Call struct {
	base
	Receiver  Node
	Name      string
	NameLoc   Location
	Arguments []Node
	Block     *Block
}

// Block is a `do ... end` or `{ ... }` block attached to a call.
type Block struct {
	base
	Body []Node
}

// Hash is a braced hash literal or the implicit keyword hash of a call.
type Hash struct {
	base
	Keyword  bool
	Elements []Node
}

// Assoc is a single `key => value` or `key: value` pair.
type Assoc struct {
	base
	Key   Node
	Value Node
}

// String is a string literal without interpolation.
type String struct {
	base
	Value string
}

// Symbol is a symbol literal without interpolation; Value has no leading colon.
type Symbol struct {
	base
	Value string
}

// Self is the `self` keyword.
type Self struct {
	base
}

// Other is any syntax shape the extractor does not inspect directly.
type Other struct {
	base
	Type  string
	Nodes []Node
}

func (n *ConstantRead) Children() []Node { return nil }

func (n *ConstantPath) Children() []Node { return compact(n.Scope) }

func (n *ConstantWrite) Children() []Node { return compact(n.Value) }

func (n *ConstantPathWrite) Children() []Node {
	out := make([]Node, 0, 2)
	if n.Target != nil {
		out = append(out, n.Target)
	}
	return append(out, compact(n.Value)...)
}

func (n *ClassDef) Children() []Node { return compact(n.ConstantPath, n.Superclass, n.Body) }

func (n *ModuleDef) Children() []Node { return compact(n.ConstantPath, n.Body) }

func (n *Call) Children() []Node {
	out := make([]Node, 0, len(n.Arguments)+2)
	if n.Receiver != nil {
		out = append(out, n.Receiver)
	}
	out = append(out, compact(n.Arguments...)...)
	if n.Block != nil {
		out = append(out, n.Block)
	}
	return out
}

func (n *Block) Children() []Node { return compact(n.Body...) }

func (n *Hash) Children() []Node { return compact(n.Elements...) }

func (n *Assoc) Children() []Node { return compact(n.Key, n.Value) }

func (n *String) Children() []Node { return nil }

func (n *Symbol) Children() []Node { return nil }

func (n *Self) Children() []Node { return nil }

func (n *Other) Children() []Node { return compact(n.Nodes...) }

func compact(nodes ...Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || isNilBlock(n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// isNilBlock guards against a typed nil *Block stored in a Node slot.
func isNilBlock(n Node) bool {
	b, ok := n.(*Block)
	return ok && b == nil
}

// Ancestors lists the nodes enclosing the one being visited, innermost first.
// Values are never mutated; Push returns a fresh list.
type Ancestors []Node

func (a Ancestors) Push(n Node) Ancestors {
	out := make(Ancestors, 0, len(a)+1)
	out = append(out, n)
	return append(out, a...)
}

// Parent returns the innermost ancestor, or nil at the root.
func (a Ancestors) Parent() Node {
	if len(a) == 0 {
		return nil
	}
	return a[0]
}

// Walk visits every node depth-first in source order. Returning false from fn
// skips the node's children.
func Walk(root Node, fn func(n Node, ancestors Ancestors) bool) {
	walk(root, nil, fn)
}

func walk(n Node, ancestors Ancestors, fn func(Node, Ancestors) bool) {
	if n == nil {
		return
	}
	if !fn(n, ancestors) {
		return
	}
	inner := ancestors.Push(n)
	for _, child := range n.Children() {
		walk(child, inner, fn)
	}
}
