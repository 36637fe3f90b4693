// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package naming converts declared Go-side names into the identifiers sent to
// the database and decides when those identifiers need quoting.
package naming

import (
	"strings"
	"unicode"
)

// SnakeCase converts a camelCase name to snake_case by inserting an underscore
// before every interior upper case letter and lower casing it.
func SnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NeedsQuotes reports whether ident must be double quoted when used as a
// table or column reference.
func NeedsQuotes(ident string) bool {
	return reservedKeywords[strings.ToLower(ident)] || !isSimple(ident)
}

// AliasNeedsQuotes reports whether ident must be double quoted when used as
// an output alias.
func AliasNeedsQuotes(ident string) bool {
	return NeedsQuotes(ident) || aliasKeywords[strings.ToLower(ident)]
}

// Quote returns ident ready to be used as a table or column reference.
func Quote(ident string) string {
	if NeedsQuotes(ident) {
		return `"` + ident + `"`
	}
	return ident
}

// QuoteAlias returns ident ready to be used as an output alias.
func QuoteAlias(ident string) string {
	if AliasNeedsQuotes(ident) {
		return `"` + ident + `"`
	}
	return ident
}

// TableReference renders a table in a FROM-like position. An aliased table
// renders as "source alias".
func TableReference(name, alias string) string {
	if alias == "" || alias == name {
		return Quote(name)
	}
	return Quote(name) + " " + Quote(alias)
}

// ColumnReference renders a column qualified by its table.
func ColumnReference(table, column string) string {
	if table == "" {
		return Quote(column)
	}
	return Quote(table) + "." + Quote(column)
}

// isSimple reports whether ident is a plain lower case identifier.
func isSimple(ident string) bool {
	if ident == "" {
		return false
	}
	for i, r := range ident {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
