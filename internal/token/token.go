// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package token holds the fragments a statement is assembled from and renders
// them to SQL text and an ordered list of query parameters.
//
// Every statement is a sequence of tokens. Tokens are values and are never
// modified once built, so a sequence can be shared between statements.
package token

import (
	"fmt"
	"strings"
)

// A Token represents a fragment of a SQL statement.
type Token interface {
	// String returns a representation of the token for debugging and
	// testing purposes.
	String() string

	// token is a marker method.
	token()
}

// Literal is SQL text emitted verbatim, typically a key word or an already
// quoted identifier.
type Literal string

func (t Literal) String() string {
	return "Literal[" + string(t) + "]"
}

// Marker function for Token.
func (t Literal) token() {}

// Parameter is a value bound to the statement. It renders as a positional
// placeholder. Slices are bound as a single parameter.
type Parameter struct {
	Value any
}

func (t Parameter) String() string {
	return fmt.Sprintf("Parameter[%#v]", t.Value)
}

// Marker function for Token.
func (t Parameter) token() {}

// Separator renders each of its items and joins the non-empty ones with the
// delimiter.
type Separator struct {
	Delimiter string
	Items     []Token
}

func (t Separator) String() string {
	return "Separator[" + t.Delimiter + " " + listString(t.Items) + "]"
}

// Marker function for Token.
func (t Separator) token() {}

// Group renders its items wrapped in parentheses. An empty group renders
// nothing and a group holding a single group is not wrapped twice.
type Group struct {
	Items []Token
}

func (t Group) String() string {
	return "Group" + listString(t.Items)
}

// Marker function for Token.
func (t Group) token() {}

// Collection renders its items one after the other. It is used to build a
// single item of a Separator out of several tokens.
type Collection []Token

func (t Collection) String() string {
	return "Collection" + listString(t)
}

// Marker function for Token.
func (t Collection) token() {}

// Source is anything that can provide a complete token sequence, such as a
// statement.
type Source interface {
	Tokens() []Token
}

// Subquery embeds a complete statement as a single unit of text. Its
// parameters are numbered after the ones of the enclosing statement that
// precede it.
type Subquery struct {
	Source Source
}

func (t Subquery) String() string {
	return "Subquery" + listString(t.Source.Tokens())
}

// Marker function for Token.
func (t Subquery) token() {}

// Join is a convenience constructor for a comma separated list.
func Join(items ...Token) Separator {
	return Separator{Delimiter: ",", Items: items}
}

func listString(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
