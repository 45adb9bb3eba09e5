package architecture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"constref/internal/engine/ast"
	"constref/internal/engine/resolver"
)

func ref(from, constant, to string, line int) resolver.Reference {
	return resolver.Reference{
		RelativePath:   from,
		Constant:       resolver.ConstantContext{Name: constant, Location: to},
		SourceLocation: ast.Location{Line: line, Column: 3},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(
		[]Layer{
			{Name: "models", Paths: []string{"app/models", "components/*/app/models"}},
			{Name: "controllers", Paths: []string{"app/controllers"}},
			{Name: "lib", Paths: []string{"lib"}},
		},
		[]Rule{
			{Name: "models-stay-low", From: "models", Allow: []string{"lib"}},
			{Name: "controllers-use-models", From: "controllers", Allow: []string{"models", "lib"}},
		},
	)
	require.NoError(t, err)
	return e
}

func TestEngine_LayerOf(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		path  string
		layer string
		ok    bool
	}{
		{"app/models/order.rb", "models", true},
		{"components/billing/app/models/billing/invoice.rb", "models", true},
		{"app/controllers/orders_controller.rb", "controllers", true},
		{"app/models_extra/x.rb", "", false},
		{"config/routes.rb", "", false},
	}
	for _, tt := range tests {
		layer, ok := e.LayerOf(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.layer, layer, tt.path)
	}
}

func TestEngine_Evaluate(t *testing.T) {
	e := testEngine(t)

	result := e.Evaluate([]resolver.Reference{
		ref("app/controllers/orders_controller.rb", "::Order", "app/models/order.rb", 2),
		ref("app/models/order.rb", "::OrdersController", "app/controllers/orders_controller.rb", 8),
		ref("app/models/order.rb", "::LineItem", "app/models/line_item.rb", 3),
		ref("app/models/order.rb", "::Money", "lib/money.rb", 4),
		ref("lib/money.rb", "::Order", "app/models/order.rb", 1),
		ref("config/routes.rb", "::OrdersController", "app/controllers/orders_controller.rb", 1),
	})

	require.Len(t, result.Violations, 1)
	v := result.Violations[0]
	assert.Equal(t, "models-stay-low", v.Rule)
	assert.Equal(t, "models", v.FromLayer)
	assert.Equal(t, "controllers", v.ToLayer)
	assert.Equal(t, "::OrdersController", v.Constant)
	assert.Equal(t, 8, v.Location.Line)
	assert.Equal(t, 3, result.EvaluatedFiles)
}

func TestNewEngine_Errors(t *testing.T) {
	_, err := NewEngine([]Layer{{Name: "models", Paths: []string{"app/[models"}}}, nil)
	assert.Error(t, err)

	_, err = NewEngine([]Layer{{Name: "models", Paths: []string{"app/models"}}}, []Rule{{Name: "r", From: "views"}})
	assert.Error(t, err)
}

func TestNilEngineAllowsEverything(t *testing.T) {
	var e *Engine
	assert.Empty(t, e.Evaluate([]resolver.Reference{ref("a.rb", "::B", "b.rb", 1)}).Violations)
}
