package model

import "strings"

// FoldName is the case-insensitive form of a type name. Stores index type
// names by it.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// SameName reports whether two type names match case-insensitively.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
