package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
)

func rubyPool() *grammarPool {
	return newGrammarPool(sitter.NewLanguage(tree_sitter_ruby.Language()))
}

func TestWithTree(t *testing.T) {
	pool := rubyPool()

	kind, ok := withTree(pool, []byte("class Order\nend\n"), func(root *sitter.Node) string {
		assert.False(t, root.HasError())
		assert.Equal(t, 1, pool.inUse())
		return root.Kind()
	})
	require.True(t, ok)
	assert.Equal(t, "program", kind)
	assert.Zero(t, pool.inUse())
}

func TestWithTreeReusesParsers(t *testing.T) {
	pool := rubyPool()
	sources := [][]byte{
		[]byte("module Sales\n  LIMIT = 10\nend\n"),
		[]byte("Order.new\n"),
	}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				hasError, ok := withTree(pool, sources[i%len(sources)], (*sitter.Node).HasError)
				assert.True(t, ok)
				assert.False(t, hasError)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, pool.inUse())
}
