// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package naming

// reservedKeywords are the PostgreSQL key words that can never be used as a
// bare identifier.
var reservedKeywords = map[string]bool{
	"all":               true,
	"analyse":           true,
	"analyze":           true,
	"and":               true,
	"any":               true,
	"array":             true,
	"as":                true,
	"asc":               true,
	"asymmetric":        true,
	"authorization":     true,
	"binary":            true,
	"both":              true,
	"case":              true,
	"cast":              true,
	"check":             true,
	"collate":           true,
	"collation":         true,
	"column":            true,
	"concurrently":      true,
	"constraint":        true,
	"create":            true,
	"cross":             true,
	"current_catalog":   true,
	"current_date":      true,
	"current_role":      true,
	"current_schema":    true,
	"current_time":      true,
	"current_timestamp": true,
	"current_user":      true,
	"default":           true,
	"deferrable":        true,
	"desc":              true,
	"distinct":          true,
	"do":                true,
	"else":              true,
	"end":               true,
	"except":            true,
	"false":             true,
	"fetch":             true,
	"for":               true,
	"foreign":           true,
	"freeze":            true,
	"from":              true,
	"full":              true,
	"grant":             true,
	"group":             true,
	"having":            true,
	"ilike":             true,
	"in":                true,
	"initially":         true,
	"inner":             true,
	"intersect":         true,
	"into":              true,
	"is":                true,
	"isnull":            true,
	"join":              true,
	"lateral":           true,
	"leading":           true,
	"left":              true,
	"like":              true,
	"limit":             true,
	"localtime":         true,
	"localtimestamp":    true,
	"natural":           true,
	"not":               true,
	"notnull":           true,
	"null":              true,
	"offset":            true,
	"on":                true,
	"only":              true,
	"or":                true,
	"order":             true,
	"outer":             true,
	"overlaps":          true,
	"placing":           true,
	"primary":           true,
	"references":        true,
	"returning":         true,
	"right":             true,
	"select":            true,
	"session_user":      true,
	"similar":           true,
	"some":              true,
	"symmetric":         true,
	"system_user":       true,
	"table":             true,
	"tablesample":       true,
	"then":              true,
	"to":                true,
	"trailing":          true,
	"true":              true,
	"union":             true,
	"unique":            true,
	"user":              true,
	"using":             true,
	"variadic":          true,
	"verbose":           true,
	"when":              true,
	"where":             true,
	"window":            true,
	"with":              true,
}

// aliasKeywords are only quoted when they are used as an output alias. As a
// column reference they are accepted by the server unquoted.
var aliasKeywords = map[string]bool{
	"name":      true,
	"timestamp": true,
}
