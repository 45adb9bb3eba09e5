package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constref/internal/engine/ast"
	"constref/internal/engine/parser"
)

type mapClassifier map[string]string

func (m mapClassifier) Classify(name string) string {
	return m[name]
}

func parseRuby(t *testing.T, src string) ast.Node {
	t.Helper()
	root, err := parser.NewRubyParser().Parse([]byte(src), "test.rb")
	require.NoError(t, err)
	return root
}

func collect(t *testing.T, src, relativePath string) []UnresolvedReference {
	t.Helper()
	associations, err := NewAssociationInspector(mapClassifier{"item": "Item", "line_items": "LineItem"}, []string{"has_one_attached_model"}, nil)
	require.NoError(t, err)
	return NewCollector(ConstInspector{}, associations).Collect(parseRuby(t, src), relativePath)
}

func names(refs []UnresolvedReference) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ConstantName)
	}
	return out
}

func TestDefinitions_CompactNamesRegisterEveryPrefix(t *testing.T) {
	defs := NewDefinitions(parseRuby(t, "module Foo\n  class Sales::Order\n    LIMIT = 1\n    Sales::MAX = 2\n  end\nend\n"))

	fooLoc, ok := defs.Lookup("::Foo")
	require.True(t, ok)
	assert.Equal(t, ast.Location{Line: 1, Column: 8}, fooLoc)

	salesLoc, ok := defs.Lookup("::Foo::Sales")
	require.True(t, ok)
	orderLoc, ok := defs.Lookup("::Foo::Sales::Order")
	require.True(t, ok)
	assert.Equal(t, salesLoc, orderLoc)
	assert.Equal(t, ast.Location{Line: 2, Column: 16}, orderLoc)

	_, ok = defs.Lookup("::Foo::Sales::Order::LIMIT")
	assert.True(t, ok)
	_, ok = defs.Lookup("::Foo::Sales::Order::Sales::MAX")
	assert.True(t, ok)
	assert.Equal(t, 5, defs.Len())
}

func TestDefinitions_SkipsDynamicWrites(t *testing.T) {
	defs := NewDefinitions(parseRuby(t, "class Order\n  self::HEADERS = []\nend\n"))
	assert.Equal(t, 1, defs.Len())
}

func TestDefinitions_RootAnchoredClass(t *testing.T) {
	defs := NewDefinitions(parseRuby(t, "module Foo\n  class ::Bar\n    X = 1\n  end\nend\n"))
	_, ok := defs.Lookup("::Bar::X")
	assert.True(t, ok)
	_, ok = defs.Lookup("::Foo::Bar")
	assert.False(t, ok)
}

func TestDefinitions_OperatorAssignmentDefines(t *testing.T) {
	src := "module Sales\n  FOO ||= Bar\n  def x\n    FOO\n  end\nend\n"
	defs := NewDefinitions(parseRuby(t, src))
	loc, ok := defs.Lookup("::Sales::FOO")
	require.True(t, ok)
	assert.Equal(t, ast.Location{Line: 2, Column: 3}, loc)

	for _, name := range names(collect(t, src, "sales.rb")) {
		assert.NotContains(t, name, "FOO")
	}
}

func TestDefinitions_IsLocalReference(t *testing.T) {
	defs := NewDefinitions(parseRuby(t, "module Sales\n  LIMIT = 1\nend\n"))
	at := ast.Location{Line: 9, Column: 1}

	assert.True(t, defs.IsLocalReference("LIMIT", at, []string{"Sales"}))
	assert.True(t, defs.IsLocalReference("Sales::LIMIT", at, nil))
	assert.True(t, defs.IsLocalReference("::Sales::LIMIT", at, []string{"Other"}))
	assert.False(t, defs.IsLocalReference("LIMIT", at, nil))

	own, _ := defs.Lookup("::Sales::LIMIT")
	assert.False(t, defs.IsLocalReference("LIMIT", own, []string{"Sales"}))
}

func TestCollector_SelfDefinitionExcludedAtAnyDepth(t *testing.T) {
	src := "module A\n  module B\n    module C\n      LIMIT = 1\n      def x\n        LIMIT + B::LIMIT_B + A::B::C::LIMIT\n      end\n    end\n    LIMIT_B = 2\n  end\nend\n"
	assert.Equal(t, []string{"::A", "::A::B", "::A::B::C"}, names(collect(t, src, "a.rb")))
}

func TestCollector_CompoundPathIsOneReference(t *testing.T) {
	refs := collect(t, "def call\n  Spam::Eggs::Thing.run\nend\n", "a.rb")
	require.Len(t, refs, 1)
	assert.Equal(t, "Spam::Eggs::Thing", refs[0].ConstantName)
	assert.Equal(t, ast.Location{Line: 2, Column: 15}, refs[0].SourceLocation)
	assert.Equal(t, []string{}, refs[0].NamespacePath)
}

func TestCollector_ClassReferencingItself(t *testing.T) {
	refs := collect(t, "class Order\n  def self.build\n    Order.new\n  end\nend\n", "order.rb")
	require.Len(t, refs, 1)
	assert.Equal(t, "::Order", refs[0].ConstantName)
	assert.Equal(t, ast.Location{Line: 1, Column: 7}, refs[0].SourceLocation)
}

func TestCollector_CompactDefinitionFullyQualified(t *testing.T) {
	refs := collect(t, "module Foo::Bar\n  class Sales::Order\n  end\nend\n", "order.rb")
	assert.Equal(t, []string{"::Foo::Bar", "::Foo::Bar::Sales::Order"}, names(refs))
}

func TestCollector_SuperclassUsesEnclosingNamespace(t *testing.T) {
	refs := collect(t, "module Sales\n  class Order < Base\n    Item\n  end\nend\n", "sales/order.rb")
	require.Len(t, refs, 4)

	assert.Equal(t, "Base", refs[2].ConstantName)
	assert.Equal(t, []string{"Sales"}, refs[2].NamespacePath)
	assert.Equal(t, "Item", refs[3].ConstantName)
	assert.Equal(t, []string{"Sales", "Order"}, refs[3].NamespacePath)
}

func TestCollector_DynamicNamesProduceNothing(t *testing.T) {
	refs := collect(t, "def headers\n  self.class::HEADERS\nend\n", "a.rb")
	assert.Empty(t, refs)
}

func TestCollector_SourceOrderIsDeterministic(t *testing.T) {
	src := "Zed\nAlpha\nMid::Thing\n"
	first := names(collect(t, src, "a.rb"))
	second := names(collect(t, src, "a.rb"))
	assert.Equal(t, []string{"Zed", "Alpha", "Mid::Thing"}, first)
	assert.Equal(t, first, second)
}

func TestAssociationInspector(t *testing.T) {
	tests := []struct {
		name string
		src  string
		path string
		want []string
	}{
		{"belongs_to", "class Order\n  belongs_to :item\nend\n", "components/sales/app/models/order.rb", []string{"::Order", "Item"}},
		{"has_many classified", "class Order\n  has_many :line_items\nend\n", "order.rb", []string{"::Order", "LineItem"}},
		{"class_name override", "class Order\n  belongs_to :item, class_name: \"Catalog::Product\"\nend\n", "order.rb", []string{"::Order", "Catalog::Product"}},
		{"non-string override", "class Order\n  belongs_to :item, class_name: Product\nend\n", "order.rb", []string{"::Order", "Product"}},
		{"custom macro", "class Order\n  has_one_attached_model :item\nend\n", "order.rb", []string{"::Order", "Item"}},
		{"string name is not an association", "class Order\n  belongs_to \"item\"\nend\n", "order.rb", []string{"::Order"}},
		{"factories are excluded", "factory :order do\n  belongs_to :item\nend\n", "spec/factories/orders.rb", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(collect(t, tt.src, tt.path))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssociationInspector_ReportsMethodToken(t *testing.T) {
	refs := collect(t, "class Order\n  belongs_to :item\nend\n", "order.rb")
	require.Len(t, refs, 2)
	assert.Equal(t, ast.Location{Line: 2, Column: 3}, refs[1].SourceLocation)
	assert.Equal(t, []string{"Order"}, refs[1].NamespacePath)
}

func TestNewAssociationInspector_InvalidPattern(t *testing.T) {
	_, err := NewAssociationInspector(mapClassifier{}, nil, []string{"spec/[factories"})
	require.Error(t, err)
}
