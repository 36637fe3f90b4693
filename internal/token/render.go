// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package token

import (
	"strconv"
	"strings"
)

// Rendered is a statement ready to be sent to the database.
type Rendered struct {
	// Text is the SQL, using $1, $2, ... as placeholders.
	Text string
	// Params holds the value of placeholder $n at index n-1.
	Params []any
}

// Render walks the tokens depth first, left to right, and returns the SQL text
// and the parameters in the order their placeholders appear.
func Render(tokens []Token) Rendered {
	var r renderer
	text := r.fragments(tokens)
	return Rendered{Text: strings.Join(text, " "), Params: r.params}
}

// renderer holds the parameters collected so far. Nested tokens are rendered
// with the same renderer so numbering continues across them.
type renderer struct {
	params []any
}

// fragments renders tokens into text fragments which are later joined by a
// single space.
func (r *renderer) fragments(tokens []Token) []string {
	var out []string
	for _, t := range tokens {
		switch t := t.(type) {
		case Literal:
			out = append(out, string(t))
		case Parameter:
			r.params = append(r.params, t.Value)
			out = append(out, "$"+strconv.Itoa(len(r.params)))
		case Collection:
			out = append(out, r.fragments(t)...)
		case Separator:
			var parts []string
			for _, item := range t.Items {
				text := strings.Join(r.fragments([]Token{item}), " ")
				if text == "" {
					continue
				}
				parts = append(parts, text)
			}
			if len(parts) > 0 {
				out = append(out, strings.Join(parts, t.Delimiter+" "))
			}
		case Group:
			items := t.Items
			for len(items) == 1 {
				inner, ok := items[0].(Group)
				if !ok {
					break
				}
				items = inner.Items
			}
			text := strings.Join(r.fragments(items), " ")
			if text == "" {
				continue
			}
			out = append(out, "("+text+")")
		case Subquery:
			text := strings.Join(r.fragments(t.Source.Tokens()), " ")
			if text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}
