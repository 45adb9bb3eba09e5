// Package autoload reproduces Zeitwerk's file naming convention: which
// constant each Ruby file under the autoload roots is expected to define.
package autoload

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/inflection"

	"constref/internal/engine/ast"
)

// Inflector converts file and association names to constant names.
// Overrides are keyed by basename or by single underscore-separated word,
// e.g. "api" => "API" or "html_parser" => "HTMLParser".
type Inflector struct {
	overrides map[string]string
}

func NewInflector(overrides map[string]string) *Inflector {
	copied := make(map[string]string, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return &Inflector{overrides: copied}
}

// Camelize maps a file basename (without extension) to a constant name:
// "line_item" => "LineItem".
func (i *Inflector) Camelize(basename string) string {
	if override, ok := i.overrides[basename]; ok {
		return override
	}
	var b strings.Builder
	for _, word := range strings.Split(basename, "_") {
		if override, ok := i.overrides[word]; ok {
			b.WriteString(override)
			continue
		}
		b.WriteString(capitalize(word))
	}
	return b.String()
}

// Classify maps an association name to a class name the way Rails does:
// "line_items" => "LineItem", "admin/users" => "Admin::User".
func (i *Inflector) Classify(name string) string {
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	singular := inflection.Singular(name)
	parts := strings.Split(singular, "/")
	for idx, part := range parts {
		parts[idx] = i.Camelize(part)
	}
	return strings.Join(parts, ast.RootMarker)
}

func capitalize(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

// IsConstantName reports whether s is a valid Ruby constant segment.
func IsConstantName(s string) bool {
	if s == "" {
		return false
	}
	for idx, r := range s {
		switch {
		case idx == 0 && !unicode.IsUpper(r):
			return false
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
		default:
			return false
		}
	}
	return true
}
