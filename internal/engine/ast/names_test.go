package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifications(t *testing.T) {
	assert.Equal(t,
		[]string{"::Sales::Order::Item", "::Sales::Item", "::Item"},
		Qualifications("Item", []string{"Sales", "Order"}))

	assert.Equal(t, []string{"::Item"}, Qualifications("Item", nil))
	assert.Equal(t, []string{"::Item"}, Qualifications("::Item", []string{"Sales"}))

	assert.Equal(t,
		[]string{"::Foo::Bar::Sales::Order::Line", "::Foo::Bar::Line", "::Line"},
		Qualifications("Line", []string{"Foo::Bar", "Sales::Order"}))
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, SplitName("::A::B"))
	assert.Equal(t, []string{"A"}, SplitName("A"))
	assert.Nil(t, SplitName("::"))
}

func TestAncestorsPushIsImmutable(t *testing.T) {
	outer := &ModuleDef{}
	inner := &ClassDef{}

	base := Ancestors{}.Push(outer)
	a := base.Push(inner)
	b := base.Push(&Call{Name: "x"})

	assert.Len(t, base, 1)
	assert.Same(t, inner, a.Parent())
	assert.Equal(t, "x", b.Parent().(*Call).Name)
	assert.Same(t, outer, a[1])
	assert.Nil(t, Ancestors{}.Parent())
}

func TestWalkSkipsChildren(t *testing.T) {
	inner := &ConstantRead{Name: "B"}
	root := &Other{Type: "program", Nodes: []Node{
		&ModuleDef{ConstantPath: &ConstantRead{Name: "A"}, Body: inner},
		&ConstantRead{Name: "C"},
	}}

	var seen []string
	Walk(root, func(n Node, _ Ancestors) bool {
		if read, ok := n.(*ConstantRead); ok {
			seen = append(seen, read.Name)
		}
		_, isModule := n.(*ModuleDef)
		return !isModule
	})
	assert.Equal(t, []string{"C"}, seen)
}
