// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"fmt"

	"github.com/canonical/sqlquery/internal/token"
)

// CaseBuilder builds a CASE expression. Start one with [Case].
type CaseBuilder struct {
	tokens   []token.Token
	dataType DataType
	err      error
}

// CaseWhen is a CASE expression waiting for the result of its last WHEN.
type CaseWhen struct {
	builder CaseBuilder
}

// Case starts a CASE expression.
func Case() CaseBuilder {
	return CaseBuilder{tokens: []token.Token{token.Literal("CASE")}, dataType: Any}
}

// When adds a condition.
func (b CaseBuilder) When(cond Expr) CaseWhen {
	ex := cond.expression()
	b.tokens = concat(b.tokens, token.Literal("WHEN"), ex.tokens)
	b.err = firstErr(b.err, ex.err)
	return CaseWhen{builder: b}
}

// Then sets the result of the preceding condition.
func (w CaseWhen) Then(result any) CaseBuilder {
	b := w.builder
	tokens, err := operand(result)
	b.tokens = concat(b.tokens, token.Literal("THEN"), tokens)
	b.err = firstErr(b.err, err)
	if b.dataType == Any {
		b.dataType = typeOf(result)
	}
	return b
}

// Else sets the result used when no condition holds and completes the
// expression.
func (b CaseBuilder) Else(result any) Expression {
	tokens, err := operand(result)
	b.tokens = concat(b.tokens, token.Literal("ELSE"), tokens)
	b.err = firstErr(b.err, err)
	return b.End()
}

// End completes the expression.
func (b CaseBuilder) End() Expression {
	e := newExpression("case", b.dataType, append(clone(b.tokens), token.Literal("END"))...)
	e.err = b.err
	if len(b.tokens) == 1 {
		e.err = firstErr(e.err, fmt.Errorf("cannot build CASE: no WHEN clause"))
	}
	return e
}
