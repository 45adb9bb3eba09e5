package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_embedded_template "github.com/tree-sitter/tree-sitter-embedded-template/bindings/go"

	"constref/internal/engine/ast"
)

// ERBParser extracts the Ruby code of `<% %>` and `<%= %>` directives and
// parses it as one Ruby program. Every other byte is blanked and newlines are
// kept, so locations in the resulting tree point into the template.
type ERBParser struct {
	pool *grammarPool
	ruby *RubyParser
}

func NewERBParser(ruby *RubyParser) *ERBParser {
	if ruby == nil {
		ruby = NewRubyParser()
	}
	return &ERBParser{
		pool: newGrammarPool(sitter.NewLanguage(tree_sitter_embedded_template.Language())),
		ruby: ruby,
	}
}

// Parse returns the tree of the embedded Ruby. A Ruby syntax error is returned
// as an ignorable *ParseError together with the partial tree.
func (p *ERBParser) Parse(source []byte, file string) (ast.Node, error) {
	code, perr := p.extractCode(source, file)
	if perr != nil {
		return nil, perr
	}
	root, perr := p.ruby.parse(code, file)
	if perr == nil {
		return root, nil
	}
	if root == nil {
		return nil, perr
	}
	perr.Ignorable = true
	return root, perr
}

func (p *ERBParser) extractCode(source []byte, file string) ([]byte, *ParseError) {
	var perr *ParseError
	code, ok := withTree(p.pool, source, func(root *sitter.Node) []byte {
		if bad := firstErrorNode(root); bad != nil {
			loc := location(bad)
			perr = &ParseError{File: file, Message: "Syntax error: unterminated template directive", Location: &loc}
			return nil
		}
		return rubyOnly(root, source)
	})
	if !ok {
		return nil, &ParseError{File: file, Message: "template parser returned no tree"}
	}
	return code, perr
}

// rubyOnly copies the code segments of every directive into a blanked copy of
// source. Each segment is closed with ';' so adjacent directives on one line
// stay separate statements.
func rubyOnly(root *sitter.Node, source []byte) []byte {
	code := blank(source)
	for _, directive := range namedChildren(root) {
		if kind := directive.Kind(); kind != "directive" && kind != "output_directive" {
			continue
		}
		for _, segment := range namedChildren(directive) {
			if segment.Kind() != "code" {
				continue
			}
			start, end := segment.StartByte(), segment.EndByte()
			copy(code[start:end], source[start:end])
			if int(end) < len(code) && code[end] != '\n' {
				code[end] = ';'
			}
		}
	}
	return code
}

func blank(source []byte) []byte {
	out := make([]byte, len(source))
	for i, b := range source {
		if b == '\n' {
			out[i] = '\n'
			continue
		}
		out[i] = ' '
	}
	return out
}
