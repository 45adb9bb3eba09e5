package parser

import (
	"sync"
	"sync/atomic"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// grammarPool recycles tree-sitter parsers bound to one grammar. It is safe
// for concurrent use.
type grammarPool struct {
	lang    *sitter.Language
	parsers sync.Pool
	busy    atomic.Int32
}

func newGrammarPool(lang *sitter.Language) *grammarPool {
	p := &grammarPool{lang: lang}
	p.parsers.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	return p
}

// inUse reports how many parsers are currently checked out.
func (p *grammarPool) inUse() int {
	return int(p.busy.Load())
}

// withTree parses source and calls fn with the root node. The tree is closed
// once fn returns, so fn must not retain any node. ok is false when
// tree-sitter produced no tree at all.
func withTree[T any](p *grammarPool, source []byte, fn func(root *sitter.Node) T) (out T, ok bool) {
	sp := p.parsers.Get().(*sitter.Parser)
	p.busy.Add(1)
	defer func() {
		sp.Reset()
		p.parsers.Put(sp)
		p.busy.Add(-1)
	}()

	tree := sp.Parse(source, nil)
	if tree == nil {
		return out, false
	}
	defer tree.Close()
	return fn(tree.RootNode()), true
}
