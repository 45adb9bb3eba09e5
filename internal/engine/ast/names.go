package ast

import "strings"

// Qualifications lists the fully-qualified names a relative constant could
// denote from within namespacePath, innermost namespace first. Root anchored
// names only ever denote themselves.
//
//	Qualifications("Item", []string{"Sales", "Order"})
//	// ["::Sales::Order::Item", "::Sales::Item", "::Item"]
func Qualifications(name string, namespacePath []string) []string {
	if strings.HasPrefix(name, RootMarker) {
		return []string{name}
	}
	out := make([]string, 0, len(namespacePath)+1)
	for depth := len(namespacePath); depth >= 0; depth-- {
		out = append(out, Qualify(namespacePath[:depth], name))
	}
	return out
}

// Qualify joins a namespace path and a relative name into a root anchored name.
func Qualify(namespacePath []string, name string) string {
	var b strings.Builder
	for _, segment := range namespacePath {
		b.WriteString(RootMarker)
		b.WriteString(strings.TrimPrefix(segment, RootMarker))
	}
	b.WriteString(RootMarker)
	b.WriteString(strings.TrimPrefix(name, RootMarker))
	return b.String()
}

// SplitName breaks "A::B::C" (root anchored or not) into its segments.
func SplitName(name string) []string {
	trimmed := strings.TrimPrefix(name, RootMarker)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, RootMarker)
}

// IsQualified reports whether name is root anchored.
func IsQualified(name string) bool {
	return strings.HasPrefix(name, RootMarker)
}
