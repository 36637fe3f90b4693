// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package token

// List is an immutable, append-only sequence of tokens. Appending to a List
// returns a new List that refers to the original one as its prefix, so
// statements derived from a common prefix share it instead of copying it.
//
// The nil *List is the empty sequence.
type List struct {
	prev  *List
	items []Token
	size  int
}

// NewList returns a list holding the given tokens.
func NewList(items ...Token) *List {
	return (*List)(nil).Append(items...)
}

// Append returns a new list made of l followed by items.
func (l *List) Append(items ...Token) *List {
	if len(items) == 0 {
		return l
	}
	// The items are copied so that the caller cannot change them afterwards.
	own := make([]Token, len(items))
	copy(own, items)
	return &List{prev: l, items: own, size: l.Len() + len(own)}
}

// Len returns the number of tokens in the list.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return l.size
}

// Tokens returns the tokens of the list in order.
func (l *List) Tokens() []Token {
	out := make([]Token, l.Len())
	end := len(out)
	for n := l; n != nil; n = n.prev {
		end -= len(n.items)
		copy(out[end:], n.items)
	}
	return out
}
