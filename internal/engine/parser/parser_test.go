package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "constref/internal/core/errors"
	"constref/internal/engine/ast"
)

func find[T ast.Node](root ast.Node) []T {
	var out []T
	ast.Walk(root, func(n ast.Node, _ ast.Ancestors) bool {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

func TestRubyParser_ClassWithSuperclass(t *testing.T) {
	src := "module Sales\n  class Order < Base\n    LIMIT = 10\n  end\nend\n"
	root, err := NewRubyParser().Parse([]byte(src), "order.rb")
	require.NoError(t, err)

	classes := find[*ast.ClassDef](root)
	require.Len(t, classes, 1)
	name, err := ast.ClassOrModuleName(classes[0])
	require.NoError(t, err)
	assert.Equal(t, "Order", name)

	superclass, ok := classes[0].Superclass.(*ast.ConstantRead)
	require.True(t, ok)
	assert.Equal(t, "Base", superclass.Name)
	assert.Equal(t, ast.Location{Line: 2, Column: 17}, superclass.Location())

	writes := find[*ast.ConstantWrite](root)
	require.Len(t, writes, 1)
	assert.Equal(t, "LIMIT", writes[0].Name)
	assert.Equal(t, ast.Location{Line: 3, Column: 5}, writes[0].NameLoc)
}

func TestRubyParser_ConstantPaths(t *testing.T) {
	root, err := NewRubyParser().Parse([]byte("x = ::Spam::Eggs::Thing\n"), "a.rb")
	require.NoError(t, err)

	paths := find[*ast.ConstantPath](root)
	require.NotEmpty(t, paths)
	name, err := ast.ConstantName(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "::Spam::Eggs::Thing", name)
	assert.Equal(t, ast.Location{Line: 1, Column: 19}, paths[0].NameLoc)
}

func TestRubyParser_DynamicScope(t *testing.T) {
	root, err := NewRubyParser().Parse([]byte("self.class::HEADERS\n"), "a.rb")
	require.NoError(t, err)

	paths := find[*ast.ConstantPath](root)
	require.Len(t, paths, 1)
	_, err = ast.ConstantName(paths[0])
	assert.ErrorIs(t, err, ast.ErrDynamicName)
}

func TestRubyParser_AssociationCall(t *testing.T) {
	src := "class Order\n  belongs_to :item, class_name: \"Catalog::Product\"\nend\n"
	root, err := NewRubyParser().Parse([]byte(src), "order.rb")
	require.NoError(t, err)

	var call *ast.Call
	for _, c := range find[*ast.Call](root) {
		if c.Name == "belongs_to" {
			call = c
		}
	}
	require.NotNil(t, call)
	assert.Equal(t, ast.Location{Line: 2, Column: 3}, call.NameLoc)
	require.Len(t, call.Arguments, 2)

	sym, ok := call.Arguments[0].(*ast.Symbol)
	require.True(t, ok)
	assert.Equal(t, "item", sym.Value)

	hash, ok := call.Arguments[1].(*ast.Hash)
	require.True(t, ok)
	assert.True(t, hash.Keyword)
	value, err := ast.ValueFromHash(hash, "class_name")
	require.NoError(t, err)
	literal, err := ast.LiteralValue(value)
	require.NoError(t, err)
	assert.Equal(t, "Catalog::Product", literal)
}

func TestRubyParser_ClassNewWithBlock(t *testing.T) {
	src := "module A\n  B = Class.new do\n    C\n  end\nend\n"
	root, err := NewRubyParser().Parse([]byte(src), "a.rb")
	require.NoError(t, err)

	writes := find[*ast.ConstantWrite](root)
	require.Len(t, writes, 1)
	name, ok, err := ast.ModuleNameFromDefinition(writes[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "B", name)

	call, ok := writes[0].Value.(*ast.Call)
	require.True(t, ok)
	require.NotNil(t, call.Block)
}

func TestRubyParser_OperatorAssignment(t *testing.T) {
	src := "FOO ||= Bar\nSales::LIMIT += 1\ncount ||= 0\n"
	root, err := NewRubyParser().Parse([]byte(src), "a.rb")
	require.NoError(t, err)

	writes := find[*ast.ConstantWrite](root)
	require.Len(t, writes, 1)
	assert.Equal(t, "FOO", writes[0].Name)
	assert.Equal(t, ast.Location{Line: 1, Column: 1}, writes[0].NameLoc)
	value, ok := writes[0].Value.(*ast.ConstantRead)
	require.True(t, ok)
	assert.Equal(t, "Bar", value.Name)

	pathWrites := find[*ast.ConstantPathWrite](root)
	require.Len(t, pathWrites, 1)
	name, err := ast.ConstantName(pathWrites[0].Target)
	require.NoError(t, err)
	assert.Equal(t, "Sales::LIMIT", name)

	for _, read := range find[*ast.ConstantRead](root) {
		assert.NotEqual(t, "FOO", read.Name)
	}
}

func TestRubyParser_InterpolatedStringIsNotLiteral(t *testing.T) {
	root, err := NewRubyParser().Parse([]byte("x = \"#{Order}\"\n"), "a.rb")
	require.NoError(t, err)

	assert.Empty(t, find[*ast.String](root))
	reads := find[*ast.ConstantRead](root)
	require.Len(t, reads, 1)
	assert.Equal(t, "Order", reads[0].Name)
}

func TestRubyParser_SyntaxError(t *testing.T) {
	_, err := NewRubyParser().Parse([]byte("class Order\n  def total(\nend\n"), "broken.rb")
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "broken.rb", perr.File)
	assert.Contains(t, perr.Message, "Syntax error")
	assert.NotNil(t, perr.Location)
	assert.False(t, perr.Ignorable)
}

func TestRubyParser_UnbalancedEnd(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ast.Location
	}{
		{"extra end after class", "class Order\nend\nend\n", ast.Location{Line: 3, Column: 1}},
		{"extra end after method", "def x\nend\nend\n", ast.Location{Line: 3, Column: 1}},
		{"extra end after nested method", "class Order\n  def x\n  end\n  end\nend\n", ast.Location{Line: 5, Column: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := NewRubyParser().Parse([]byte(tt.src), "broken.rb")
			assert.Nil(t, root)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "Syntax error: unexpected 'end'", perr.Message)
			require.NotNil(t, perr.Location)
			assert.Equal(t, tt.want, *perr.Location)
			assert.False(t, perr.Ignorable)
		})
	}
}

func TestRubyParser_KeywordMethodNamesAreValid(t *testing.T) {
	_, err := NewRubyParser().Parse([]byte("range.end\nrange.begin\n"), "ok.rb")
	assert.NoError(t, err)
}

func TestRubyParser_InvalidEncoding(t *testing.T) {
	_, err := NewRubyParser().Parse([]byte("Order\n\xff\n"), "bad.rb")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "invalid byte sequence in UTF-8", perr.Message)
	require.NotNil(t, perr.Location)
	assert.Equal(t, 2, perr.Location.Line)
}

func TestRubyParser_InvalidBytesInsideStringAreAccepted(t *testing.T) {
	_, err := NewRubyParser().Parse([]byte("x = \"\xff\"\n"), "bin.rb")
	assert.NoError(t, err)
}

func TestERBParser_PreservesLocations(t *testing.T) {
	src := "<h1>Orders</h1>\n<% orders.each do |o| %>\n  <%= Sales::Order.label(o) %>\n<% end %>\n"
	root, err := NewERBParser(nil).Parse([]byte(src), "index.html.erb")
	require.NoError(t, err)

	paths := find[*ast.ConstantPath](root)
	require.Len(t, paths, 1)
	assert.Equal(t, "Order", paths[0].Name)
	assert.Equal(t, ast.Location{Line: 3, Column: 14}, paths[0].NameLoc)
}

func TestERBParser_CommentsAreSkipped(t *testing.T) {
	root, err := NewERBParser(nil).Parse([]byte("<%# Order %>\n<%= Item %>\n"), "show.erb")
	require.NoError(t, err)

	reads := find[*ast.ConstantRead](root)
	require.Len(t, reads, 1)
	assert.Equal(t, "Item", reads[0].Name)
}

func TestERBParser_RubyErrorsAreIgnorable(t *testing.T) {
	root, err := NewERBParser(nil).Parse([]byte("<%= Item %>\n<% end %>\n"), "partial.erb")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Ignorable)
	assert.Equal(t, "Syntax error: unexpected 'end'", perr.Message)
	require.NotNil(t, perr.Location)
	assert.Equal(t, ast.Location{Line: 2, Column: 4}, *perr.Location)

	require.NotNil(t, root)
	reads := find[*ast.ConstantRead](root)
	require.Len(t, reads, 1)
	assert.Equal(t, "Item", reads[0].Name)
}

func TestFactory_ForPath(t *testing.T) {
	f := NewFactory()

	for _, path := range []string{"app/models/order.rb", "lib/tasks/db.rake", "config.ru", "app/views/a.html.erb", "Gemfile"} {
		p, err := f.ForPath(path)
		require.NoError(t, err, path)
		assert.NotNil(t, p, path)
	}

	_, err := f.ForPath("README.md")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeNotSupported))

	assert.Equal(t, []string{".erb", ".rake", ".rb", ".ru"}, f.SupportedExtensions())
	assert.Equal(t, FormatERB, f.FormatOf("x.html.erb"))
}
