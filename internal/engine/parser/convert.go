package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"constref/internal/engine/ast"
)

// converter maps a tree-sitter-ruby tree onto ast nodes. Unknown shapes become
// ast.Other with their named children converted, so constants nested in any
// expression stay reachable.
type converter struct {
	source []byte
}

func location(n *sitter.Node) ast.Location {
	p := n.StartPosition()
	return ast.Location{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

func (c *converter) text(n *sitter.Node) string {
	return n.Utf8Text(c.source)
}

func (c *converter) convert(n *sitter.Node) ast.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "comment":
		return nil
	case "constant":
		out := &ast.ConstantRead{Name: c.text(n)}
		out.Loc = location(n)
		return out
	case "scope_resolution":
		return c.scopeResolution(n)
	case "assignment", "operator_assignment":
		return c.assignment(n)
	case "class":
		return c.class(n)
	case "module":
		return c.module(n)
	case "call":
		return c.call(n)
	case "block", "do_block":
		return c.block(n)
	case "hash":
		out := &ast.Hash{Elements: c.convertAll(namedChildren(n))}
		out.Loc = location(n)
		return out
	case "pair":
		return c.pair(n)
	case "string":
		return c.str(n)
	case "simple_symbol":
		out := &ast.Symbol{Value: strings.TrimPrefix(c.text(n), ":")}
		out.Loc = location(n)
		return out
	case "hash_key_symbol":
		out := &ast.Symbol{Value: c.text(n)}
		out.Loc = location(n)
		return out
	case "delimited_symbol":
		value, ok := c.literalContent(n)
		if !ok {
			return c.other(n)
		}
		out := &ast.Symbol{Value: value}
		out.Loc = location(n)
		return out
	case "self":
		out := &ast.Self{}
		out.Loc = location(n)
		return out
	}
	return c.other(n)
}

func (c *converter) other(n *sitter.Node) ast.Node {
	out := &ast.Other{Type: n.Kind(), Nodes: c.convertAll(namedChildren(n))}
	out.Loc = location(n)
	return out
}

func (c *converter) convertAll(nodes []*sitter.Node) []ast.Node {
	out := make([]ast.Node, 0, len(nodes))
	for _, child := range nodes {
		if converted := c.convert(child); converted != nil {
			out = append(out, converted)
		}
	}
	return out
}

func (c *converter) scopeResolution(n *sitter.Node) ast.Node {
	name := n.ChildByFieldName("name")
	scope := n.ChildByFieldName("scope")
	if name == nil {
		return c.other(n)
	}
	if name.Kind() != "constant" {
		// Foo::bar is a method call spelled with "::".
		out := &ast.Call{Receiver: c.convert(scope), Name: c.text(name), NameLoc: location(name)}
		out.Loc = location(n)
		return out
	}
	out := &ast.ConstantPath{Scope: c.convert(scope), Name: c.text(name), NameLoc: location(name)}
	out.Loc = location(n)
	return out
}

func (c *converter) assignment(n *sitter.Node) ast.Node {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil {
		return c.other(n)
	}
	switch left.Kind() {
	case "constant":
		out := &ast.ConstantWrite{Name: c.text(left), NameLoc: location(left), Value: c.convert(right)}
		out.Loc = location(n)
		return out
	case "scope_resolution":
		target, ok := c.scopeResolution(left).(*ast.ConstantPath)
		if !ok {
			break
		}
		out := &ast.ConstantPathWrite{Target: target, Value: c.convert(right)}
		out.Loc = location(n)
		return out
	}
	return c.other(n)
}

func (c *converter) class(n *sitter.Node) ast.Node {
	name := n.ChildByFieldName("name")
	superclass := n.ChildByFieldName("superclass")
	out := &ast.ClassDef{
		ConstantPath: c.convert(name),
		Body:         c.body(n, name, superclass),
	}
	if superclass != nil && superclass.NamedChildCount() > 0 {
		out.Superclass = c.convert(superclass.NamedChild(0))
	}
	out.Loc = location(n)
	return out
}

func (c *converter) module(n *sitter.Node) ast.Node {
	name := n.ChildByFieldName("name")
	out := &ast.ModuleDef{
		ConstantPath: c.convert(name),
		Body:         c.body(n, name),
	}
	out.Loc = location(n)
	return out
}

// body gathers every named child of a definition that is not one of the
// header nodes, flattening a body_statement wrapper when the grammar emits one.
func (c *converter) body(n *sitter.Node, header ...*sitter.Node) ast.Node {
	var statements []ast.Node
	var start *sitter.Node
	for _, child := range namedChildren(n) {
		if isOneOf(child, header) {
			continue
		}
		if start == nil {
			start = child
		}
		if child.Kind() == "body_statement" {
			statements = append(statements, c.convertAll(namedChildren(child))...)
			continue
		}
		if converted := c.convert(child); converted != nil {
			statements = append(statements, converted)
		}
	}
	if start == nil {
		return nil
	}
	out := &ast.Other{Type: "body_statement", Nodes: statements}
	out.Loc = location(start)
	return out
}

func (c *converter) call(n *sitter.Node) ast.Node {
	out := &ast.Call{Receiver: c.convert(n.ChildByFieldName("receiver"))}
	out.Loc = location(n)
	if method := n.ChildByFieldName("method"); method != nil {
		out.Name = c.text(method)
		out.NameLoc = location(method)
	} else {
		// receiver.() is sugar for receiver.call()
		out.Name = "call"
		out.NameLoc = out.Loc
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		out.Arguments = c.arguments(args)
	}
	if block := n.ChildByFieldName("block"); block != nil {
		if converted, ok := c.block(block).(*ast.Block); ok {
			out.Block = converted
		}
	}
	return out
}

// arguments converts an argument_list. Bare `key: value` pairs are collected
// into one trailing keyword hash, mirroring how Ruby passes them.
func (c *converter) arguments(n *sitter.Node) []ast.Node {
	var out []ast.Node
	var keywords *ast.Hash
	for _, child := range namedChildren(n) {
		if child.Kind() == "pair" {
			if keywords == nil {
				keywords = &ast.Hash{Keyword: true}
				keywords.Loc = location(child)
			}
			keywords.Elements = append(keywords.Elements, c.pair(child))
			continue
		}
		if converted := c.convert(child); converted != nil {
			out = append(out, converted)
		}
	}
	if keywords != nil {
		out = append(out, keywords)
	}
	return out
}

func (c *converter) block(n *sitter.Node) ast.Node {
	var statements []ast.Node
	for _, child := range namedChildren(n) {
		switch child.Kind() {
		case "body_statement", "block_body":
			statements = append(statements, c.convertAll(namedChildren(child))...)
		default:
			if converted := c.convert(child); converted != nil {
				statements = append(statements, converted)
			}
		}
	}
	out := &ast.Block{Body: statements}
	out.Loc = location(n)
	return out
}

func (c *converter) pair(n *sitter.Node) ast.Node {
	out := &ast.Assoc{
		Key:   c.convert(n.ChildByFieldName("key")),
		Value: c.convert(n.ChildByFieldName("value")),
	}
	out.Loc = location(n)
	return out
}

func (c *converter) str(n *sitter.Node) ast.Node {
	value, ok := c.literalContent(n)
	if !ok {
		return c.other(n)
	}
	out := &ast.String{Value: value}
	out.Loc = location(n)
	return out
}

// literalContent joins the content of a string-like node. It fails when the
// literal interpolates, since its value is then only known at runtime.
func (c *converter) literalContent(n *sitter.Node) (string, bool) {
	var b strings.Builder
	for _, child := range namedChildren(n) {
		switch child.Kind() {
		case "string_content", "escape_sequence":
			b.WriteString(c.text(child))
		case "interpolation":
			return "", false
		}
	}
	return b.String(), true
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if child := n.NamedChild(uint(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}

func isOneOf(n *sitter.Node, candidates []*sitter.Node) bool {
	for _, candidate := range candidates {
		if candidate != nil && candidate.Id() == n.Id() {
			return true
		}
	}
	return false
}
