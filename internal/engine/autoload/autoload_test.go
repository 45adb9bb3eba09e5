package autoload

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "constref/internal/core/errors"
	"constref/internal/engine/resolver"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("# "+rel+"\n"), 0o644))
	}
}

func TestInflector_Camelize(t *testing.T) {
	inflector := NewInflector(map[string]string{"api": "API", "html_parser": "HTMLParser"})

	tests := map[string]string{
		"order":         "Order",
		"line_item":     "LineItem",
		"api_client":    "APIClient",
		"html_parser":   "HTMLParser",
		"v2":            "V2",
		"mixedCase_bit": "Mixedcase" + "Bit",
	}
	for in, want := range tests {
		assert.Equal(t, want, inflector.Camelize(in), in)
	}
}

func TestInflector_Classify(t *testing.T) {
	inflector := NewInflector(nil)

	tests := map[string]string{
		"items":        "Item",
		"line_items":   "LineItem",
		"item":         "Item",
		"people":       "Person",
		"admin/users":  "Admin::User",
		"schema.posts": "Post",
	}
	for in, want := range tests {
		assert.Equal(t, want, inflector.Classify(in), in)
	}
}

func TestIsConstantName(t *testing.T) {
	assert.True(t, IsConstantName("Order"))
	assert.True(t, IsConstantName("V2_Beta"))
	assert.False(t, IsConstantName("order"))
	assert.False(t, IsConstantName("Order-Item"))
	assert.False(t, IsConstantName(""))
}

func TestLoader_ExpectedPaths(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"app/models/order.rb",
		"app/models/sales/line_item.rb",
		"app/models/concerns/trackable.rb",
		"app/models/.hidden/secret.rb",
		"app/models/README.md",
		"app/views/orders/index.html.erb",
		"app/views/orders/helper.rb",
		"app/services/collapsed/checkout.rb",
		"components/catalog/app/models/catalog/product.rb",
		"components/catalog/app/models/bad-name.rb",
		"lib/tasks/seed.rb",
		"lib/money.rb",
	)

	loader, err := NewLoader(root, Options{
		Roots:    []string{"app/*", "app/*/concerns", "components/*/app/*", "lib"},
		Ignore:   []string{"app/views", "lib/tasks"},
		Collapse: []string{"app/services/collapsed"},
	}, nil)
	require.NoError(t, err)

	dirs, err := loader.RootDirs()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"app/models",
		"app/models/concerns",
		"app/services",
		"components/catalog/app/models",
		"lib",
	}, dirs)

	entries, err := loader.ExpectedPaths(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []resolver.Entry{
		{Path: "app/models/concerns/trackable.rb", Name: "::Trackable"},
		{Path: "app/models/order.rb", Name: "::Order"},
		{Path: "app/models/sales/line_item.rb", Name: "::Sales::LineItem"},
		{Path: "app/services/collapsed/checkout.rb", Name: "::Checkout"},
		{Path: "components/catalog/app/models/catalog/product.rb", Name: "::Catalog::Product"},
		{Path: "lib/money.rb", Name: "::Money"},
	}, entries)

	index, err := resolver.NewIndex(entries)
	require.NoError(t, err)
	ctx, ok := index.Resolve("LineItem", []string{"Sales"})
	require.True(t, ok)
	assert.Equal(t, "app/models/sales/line_item.rb", ctx.Location)
}

func TestLoader_AmbiguousLayout(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"components/sales/app/models/order.rb",
		"components/billing/app/models/order.rb",
	)

	loader, err := NewLoader(root, Options{Roots: []string{"components/*/app/models"}}, nil)
	require.NoError(t, err)

	entries, err := loader.ExpectedPaths(context.Background())
	require.NoError(t, err)
	_, err = resolver.NewIndex(entries)
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
}

func TestLoader_MissingRootsYieldNothing(t *testing.T) {
	loader, err := NewLoader(t.TempDir(), Options{Roots: []string{"app/*"}}, nil)
	require.NoError(t, err)

	entries, err := loader.ExpectedPaths(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoader_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "app/models/order.rb")
	loader, err := NewLoader(root, Options{Roots: []string{"app/*"}}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.ExpectedPaths(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLoader_InvalidPattern(t *testing.T) {
	_, err := NewLoader(t.TempDir(), Options{Ignore: []string{"app/[x"}}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidationError))
}
