// Package extract finds candidate constant references in one file's syntax
// tree. Candidates are unresolved: they carry the name as written plus the
// lexical namespace they appear in.
package extract

import "constref/internal/engine/ast"

// UnresolvedReference is a constant use found in RelativePath, not yet mapped
// to the file that defines it.
type UnresolvedReference struct {
	ConstantName   string
	NamespacePath  []string
	RelativePath   string
	SourceLocation ast.Location
}

// Inspector recognizes one referencing idiom. It returns the referenced name
// for node, or false when node is not that idiom.
type Inspector interface {
	ConstantName(node ast.Node, ancestors ast.Ancestors, relativePath string) (string, bool)
}
