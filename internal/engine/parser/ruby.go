package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"constref/internal/engine/ast"
)

// RubyParser parses Ruby source with tree-sitter-ruby.
type RubyParser struct {
	pool *grammarPool
}

func NewRubyParser() *RubyParser {
	return &RubyParser{pool: newGrammarPool(sitter.NewLanguage(tree_sitter_ruby.Language()))}
}

// Parse returns the converted tree, or a *ParseError for syntax errors and
// source that is not valid UTF-8 outside string literals.
func (p *RubyParser) Parse(source []byte, file string) (ast.Node, error) {
	root, perr := p.parse(source, file)
	if perr != nil {
		return nil, perr
	}
	return root, nil
}

// parse keeps the partial tree alongside a syntax error so template parsing
// can continue past fragments that are only valid inside their markup.
func (p *RubyParser) parse(source []byte, file string) (ast.Node, *ParseError) {
	type result struct {
		node ast.Node
		err  *ParseError
	}
	res, ok := withTree(p.pool, source, func(root *sitter.Node) result {
		if perr := encodingError(root, source, file); perr != nil {
			return result{err: perr}
		}
		c := &converter{source: source}
		node := c.convert(root)
		if root.HasError() {
			return result{node: node, err: syntaxError(root, source, file)}
		}
		if stray := strayKeyword(root, source); stray != nil {
			loc := location(stray)
			msg := fmt.Sprintf("Syntax error: unexpected '%s'", stray.Utf8Text(source))
			return result{node: node, err: &ParseError{File: file, Message: msg, Location: &loc}}
		}
		return result{node: node}
	})
	if !ok {
		return nil, &ParseError{File: file, Message: "parser returned no tree"}
	}
	return res.node, res.err
}

func syntaxError(root *sitter.Node, source []byte, file string) *ParseError {
	bad := firstErrorNode(root)
	if bad == nil {
		return &ParseError{File: file, Message: "Syntax error"}
	}
	loc := location(bad)
	if bad.IsMissing() {
		return &ParseError{File: file, Message: fmt.Sprintf("Syntax error: missing %q", bad.Kind()), Location: &loc}
	}
	snippet := strings.TrimSpace(bad.Utf8Text(source))
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return &ParseError{File: file, Message: fmt.Sprintf("Syntax error: unexpected %q", snippet), Location: &loc}
}

// reservedWords cannot start a statement on their own.
var reservedWords = map[string]bool{
	"end": true, "else": true, "elsif": true, "when": true,
	"rescue": true, "ensure": true, "then": true, "do": true,
}

// statementLists are the node kinds whose named children are statements.
var statementLists = map[string]bool{
	"program": true, "body_statement": true, "block_body": true, "then": true,
	"else": true, "do": true, "begin": true, "parenthesized_statements": true,
}

// strayKeyword finds a reserved word in statement position. tree-sitter-ruby
// reads an unbalanced `end` as an identifier instead of an ERROR node.
func strayKeyword(n *sitter.Node, source []byte) *sitter.Node {
	for _, child := range namedChildren(n) {
		if statementLists[n.Kind()] && child.Kind() == "identifier" && reservedWords[child.Utf8Text(source)] {
			return child
		}
		if found := strayKeyword(child, source); found != nil {
			return found
		}
	}
	return nil
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(uint(i))
		if child == nil {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// encodingError reports the first invalid UTF-8 sequence that sits outside a
// string, heredoc or comment body; binary data inside literals is legal Ruby.
func encodingError(root *sitter.Node, source []byte, file string) *ParseError {
	if utf8.Valid(source) {
		return nil
	}
	for offset := 0; offset < len(source); {
		r, size := utf8.DecodeRune(source[offset:])
		if r == utf8.RuneError && size <= 1 {
			holder := root.DescendantForByteRange(uint(offset), uint(offset+1))
			if holder == nil || !insideLiteral(holder) {
				loc := byteLocation(source, offset)
				return &ParseError{File: file, Message: "invalid byte sequence in UTF-8", Location: &loc}
			}
			size = 1
		}
		offset += size
	}
	return nil
}

func insideLiteral(n *sitter.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		switch cur.Kind() {
		case "string_content", "heredoc_content", "heredoc_body", "comment", "string", "uninterpreted":
			return true
		}
	}
	return false
}

func byteLocation(source []byte, offset int) ast.Location {
	line, col := 1, 1
	for _, b := range source[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return ast.Location{Line: line, Column: col}
}
