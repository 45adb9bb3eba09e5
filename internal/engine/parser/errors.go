package parser

import (
	"fmt"

	"constref/internal/engine/ast"
)

// ParseError is returned when a file cannot be turned into a syntax tree.
// Ignorable errors come with a usable partial tree; they are raised for Ruby
// fragments in templates that only make sense inside their markup.
type ParseError struct {
	File      string
	Message   string
	Location  *ast.Location
	Ignorable bool
}

func (e *ParseError) Error() string {
	if e.Location == nil {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s:%s: %s", e.File, e.Location, e.Message)
}
