package shellparse

import (
	"regexp"
	"strings"
)

// Patterns for shell constructs this parser does not attempt to emulate.
// Both operate on the raw string before structural parsing, so quoting
// cannot hide them; the permission engine checks them earliest and fails
// closed.
var (
	variableExpansionRe = regexp.MustCompile(`\$\{[^}]*\}|\$[A-Za-z_][A-Za-z0-9_]*`)
)

// HasCommandSubstitution reports whether the raw string contains "$(" or a
// backtick anywhere. Substituted content cannot be analyzed safely, so the
// permission engine always denies on it.
func HasCommandSubstitution(raw string) bool {
	return strings.Contains(raw, "$(") || strings.Contains(raw, "`")
}

// HasVariableExpansion reports whether the raw string contains "${...}" or
// a bare "$NAME" expansion.
func HasVariableExpansion(raw string) bool {
	return variableExpansionRe.MatchString(raw)
}
