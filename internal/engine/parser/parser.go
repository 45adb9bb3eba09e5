// Package parser turns Ruby and ERB sources into ast trees using tree-sitter.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"constref/internal/core/errors"
	"constref/internal/engine/ast"
	"constref/internal/shared/util"
)

// Parser is the syntax-tree provider contract.
type Parser interface {
	Parse(source []byte, file string) (ast.Node, error)
}

// Format names the parser a path is routed to.
type Format string

const (
	FormatRuby Format = "ruby"
	FormatERB  Format = "erb"
)

// Factory routes paths to a parser by extension. It owns one parser per
// format; parsers draw from their own pools and are safe to share.
type Factory struct {
	parsers    map[Format]Parser
	extensions map[string]Format
}

func NewFactory() *Factory {
	ruby := NewRubyParser()
	return &Factory{
		parsers: map[Format]Parser{
			FormatRuby: ruby,
			FormatERB:  NewERBParser(ruby),
		},
		extensions: map[string]Format{
			".rb":   FormatRuby,
			".rake": FormatRuby,
			".ru":   FormatRuby,
			".erb":  FormatERB,
		},
	}
}

// FormatOf returns the format for path, or "" when it is not supported.
func (f *Factory) FormatOf(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if base := strings.ToLower(filepath.Base(path)); base == "gemfile" || base == "rakefile" {
		return FormatRuby
	}
	return f.extensions[ext]
}

func (f *Factory) ForPath(path string) (Parser, error) {
	format := f.FormatOf(path)
	if format == "" {
		err := errors.New(errors.CodeNotSupported, fmt.Sprintf("unsupported file type: %q", filepath.Ext(path)))
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return f.parsers[format], nil
}

func (f *Factory) IsSupportedPath(path string) bool {
	return f.FormatOf(path) != ""
}

func (f *Factory) SupportedExtensions() []string {
	return util.SortedStringKeys(f.extensions)
}
