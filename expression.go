// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"fmt"
	"reflect"
	"unicode"

	"github.com/canonical/sqlquery/internal/naming"
	"github.com/canonical/sqlquery/internal/rowshape"
	"github.com/canonical/sqlquery/internal/token"
)

// unnamed is the output name the database gives to an expression without an
// alias.
const unnamed = "?column?"

// Expr is implemented by every value that can be used as an operand in an
// expression: expressions, columns and SELECT statements.
//
// Values passed as operands that do not implement Expr are bound as
// parameters.
type Expr interface {
	expression() Expression
}

// logic records the boolean connective an expression was composed with.
type logic int

const (
	logicNone logic = iota
	logicAnd
	logicOr
)

// Expression is an immutable fragment of SQL with an output name. Every
// operation returns a new Expression and leaves the receiver untouched.
//
// Errors made while building an expression, such as an invalid IN operand,
// are carried by the expression and reported when the statement using it is
// rendered or run.
type Expression struct {
	tokens   []token.Token
	name     string
	aliased  bool
	logic    logic
	notNull  bool
	dataType DataType
	err      error
}

func newExpression(name string, dataType DataType, tokens ...token.Token) Expression {
	return Expression{tokens: tokens, name: name, dataType: dataType}
}

func (e Expression) expression() Expression {
	return e
}

// Name returns the output name of the expression.
func (e Expression) Name() string {
	return e.name
}

// Err returns the first error made while building the expression.
func (e Expression) Err() error {
	return e.err
}

// As names the expression in a projection.
func (e Expression) As(alias string) Expression {
	e.name = alias
	e.aliased = true
	return e
}

// named reports whether the projection of e carries an alias, making its
// output name known.
func (e Expression) named() bool {
	return e.aliased || hasUpper(e.name)
}

func (e Expression) projection(from []sourceTable) []token.Token {
	if !e.named() {
		return e.tokens
	}
	tokens := e.tokens
	if len(tokens) > 2 {
		if _, ok := tokens[1].(token.Group); !ok {
			tokens = []token.Token{token.Group{Items: tokens}}
		}
	}
	return append(clone(tokens), token.Literal(naming.QuoteAlias(e.name)))
}

func (e Expression) outputShape(from []sourceTable) rowshape.Shape {
	return rowshape.Shape{{Name: e.name, Type: e.dataType, Nullable: !e.notNull, Unchecked: !e.named()}}
}

func (e Expression) buildErr() error {
	return e.err
}

// derive returns an expression built from the receiver. It carries the
// receiver's error, or err if the receiver has none.
func (e Expression) derive(name string, dataType DataType, err error, tokens ...token.Token) Expression {
	d := newExpression(name, dataType, tokens...)
	d.err = firstErr(e.err, err)
	return d
}

func (e Expression) binary(op string, dataType DataType, value any) Expression {
	rhs, err := operand(value)
	return e.derive(unnamed, dataType, err, concat(e.tokens, token.Literal(op), rhs)...)
}

func (e Expression) suffix(op string) Expression {
	return e.derive(unnamed, Boolean, nil, concat(e.tokens, token.Literal(op), nil)...)
}

// Eq compares the expression to value with =.
func (e Expression) Eq(value any) Expression { return e.binary("=", Boolean, value) }

// Ne compares the expression to value with <>.
func (e Expression) Ne(value any) Expression { return e.binary("<>", Boolean, value) }

// Gt compares the expression to value with >.
func (e Expression) Gt(value any) Expression { return e.binary(">", Boolean, value) }

// Gte compares the expression to value with >=.
func (e Expression) Gte(value any) Expression { return e.binary(">=", Boolean, value) }

// Lt compares the expression to value with <.
func (e Expression) Lt(value any) Expression { return e.binary("<", Boolean, value) }

// Lte compares the expression to value with <=.
func (e Expression) Lte(value any) Expression { return e.binary("<=", Boolean, value) }

// Like matches the expression against the pattern value.
func (e Expression) Like(value any) Expression { return e.binary("LIKE", Boolean, value) }

// NotLike checks that the expression does not match the pattern value.
func (e Expression) NotLike(value any) Expression { return e.binary("NOT LIKE", Boolean, value) }

// ILike matches the expression against the pattern value ignoring case.
func (e Expression) ILike(value any) Expression { return e.binary("ILIKE", Boolean, value) }

// NotILike checks that the expression does not match the pattern value, ignoring case.
func (e Expression) NotILike(value any) Expression { return e.binary("NOT ILIKE", Boolean, value) }

// IsDistinctFrom compares the expression to value, treating NULL as a value.
func (e Expression) IsDistinctFrom(value any) Expression {
	return e.binary("IS DISTINCT FROM", Boolean, value)
}

// IsNotDistinctFrom is the NULL-safe equality of the expression and value.
func (e Expression) IsNotDistinctFrom(value any) Expression {
	return e.binary("IS NOT DISTINCT FROM", Boolean, value)
}

// IsNull checks that the expression is NULL.
func (e Expression) IsNull() Expression { return e.suffix("IS NULL") }

// IsNotNull checks that the expression is not NULL.
func (e Expression) IsNotNull() Expression { return e.suffix("IS NOT NULL") }

// IsTrue checks that the expression is true.
func (e Expression) IsTrue() Expression { return e.suffix("IS TRUE") }

// IsNotTrue checks that the expression is false or NULL.
func (e Expression) IsNotTrue() Expression { return e.suffix("IS NOT TRUE") }

// IsFalse checks that the expression is false.
func (e Expression) IsFalse() Expression { return e.suffix("IS FALSE") }

// IsNotFalse checks that the expression is true or NULL.
func (e Expression) IsNotFalse() Expression { return e.suffix("IS NOT FALSE") }

// IsUnknown checks that the boolean expression is NULL.
func (e Expression) IsUnknown() Expression { return e.suffix("IS UNKNOWN") }

// IsNotUnknown checks that the boolean expression is not NULL.
func (e Expression) IsNotUnknown() Expression { return e.suffix("IS NOT UNKNOWN") }

// Plus adds value to the expression.
func (e Expression) Plus(value any) Expression { return e.binary("+", e.dataType, value) }

// Minus subtracts value from the expression.
func (e Expression) Minus(value any) Expression { return e.binary("-", e.dataType, value) }

// Multiply multiplies the expression by value.
func (e Expression) Multiply(value any) Expression { return e.binary("*", e.dataType, value) }

// Divide divides the expression by value.
func (e Expression) Divide(value any) Expression { return e.binary("/", e.dataType, value) }

// Modulo returns the remainder of dividing the expression by value.
func (e Expression) Modulo(value any) Expression { return e.binary("%", e.dataType, value) }

// Concat appends value to the expression with ||.
func (e Expression) Concat(value any) Expression { return e.binary("||", Text, value) }

func (e Expression) between(op string, low, high any) Expression {
	lowTokens, lowErr := operand(low)
	highTokens, highErr := operand(high)
	tokens := concat(e.tokens, token.Literal(op), lowTokens)
	tokens = concat(tokens, token.Literal("AND"), highTokens)
	return e.derive(unnamed, Boolean, firstErr(lowErr, highErr), tokens...)
}

// Between checks that the expression lies between low and high.
func (e Expression) Between(low, high any) Expression {
	return e.between("BETWEEN", low, high)
}

// BetweenSymmetric is like Between but accepts the bounds in either order.
func (e Expression) BetweenSymmetric(low, high any) Expression {
	return e.between("BETWEEN SYMMETRIC", low, high)
}

// NotBetween checks that the expression lies outside low and high.
func (e Expression) NotBetween(low, high any) Expression {
	return e.between("NOT BETWEEN", low, high)
}

// And combines the expression and other with AND. The right hand side is
// parenthesized when it is a composition with OR or is longer than a single
// comparison.
func (e Expression) And(other Expr) Expression {
	return e.compose(logicAnd, other.expression())
}

// Or combines the expression and other with OR. The right hand side is
// parenthesized when it is a composition with AND or is longer than a single
// comparison.
func (e Expression) Or(other Expr) Expression {
	return e.compose(logicOr, other.expression())
}

func (e Expression) compose(op logic, rhs Expression) Expression {
	lhsTokens := e.tokens
	if e.logic != logicNone && e.logic != op {
		lhsTokens = []token.Token{token.Group{Items: lhsTokens}}
	}
	rhsTokens := rhs.tokens
	if (rhs.logic != logicNone && rhs.logic != op) || len(rhsTokens) > 3 {
		rhsTokens = []token.Token{token.Group{Items: rhsTokens}}
	}
	keyword := "AND"
	if op == logicOr {
		keyword = "OR"
	}
	d := e.derive(unnamed, Boolean, rhs.err, concat(lhsTokens, token.Literal(keyword), rhsTokens)...)
	d.logic = op
	return d
}

// AndExists combines the expression with EXISTS (q) using AND.
func (e Expression) AndExists(q *SelectQuery) Expression {
	return e.compose(logicAnd, Exists(q))
}

// AndNotExists combines the expression with NOT EXISTS (q) using AND.
func (e Expression) AndNotExists(q *SelectQuery) Expression {
	return e.compose(logicAnd, NotExists(q))
}

// OrExists combines the expression with EXISTS (q) using OR.
func (e Expression) OrExists(q *SelectQuery) Expression {
	return e.compose(logicOr, Exists(q))
}

// OrNotExists combines the expression with NOT EXISTS (q) using OR.
func (e Expression) OrNotExists(q *SelectQuery) Expression {
	return e.compose(logicOr, NotExists(q))
}

// In checks membership of the expression in values, which is either a
// non-empty slice or array, or a statement returning rows.
func (e Expression) In(values any) Expression {
	return e.membership("IN", values)
}

// NotIn is the negation of In.
func (e Expression) NotIn(values any) Expression {
	return e.membership("NOT IN", values)
}

func (e Expression) membership(op string, values any) Expression {
	group, err := membershipGroup(values)
	if err != nil {
		err = fmt.Errorf("cannot build %s: %w", op, err)
	}
	return e.derive(unnamed, Boolean, err, concat(e.tokens, token.Literal(op), group)...)
}

func membershipGroup(values any) ([]token.Token, error) {
	if s, ok := values.(Statement); ok {
		if s.resultMode() != ResultRows {
			return nil, fmt.Errorf("statement does not return rows")
		}
		return []token.Token{token.Group{Items: []token.Token{subquery(s)}}}, s.buildErr()
	}
	v := reflect.ValueOf(values)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) || isBytes(v) {
		return nil, fmt.Errorf("need slice, array or statement, got %T", values)
	}
	if v.Len() == 0 {
		return nil, fmt.Errorf("empty list of values")
	}
	items := make([]token.Token, v.Len())
	for i := range items {
		items[i] = token.Parameter{Value: v.Index(i).Interface()}
	}
	return []token.Token{token.Group{Items: []token.Token{token.Join(items...)}}}, nil
}

// Asc orders by the expression in ascending order.
func (e Expression) Asc() Expression { return e.ordering("ASC") }

// Desc orders by the expression in descending order.
func (e Expression) Desc() Expression { return e.ordering("DESC") }

// NullsFirst places NULL values first in the ordering.
func (e Expression) NullsFirst() Expression { return e.ordering("NULLS FIRST") }

// NullsLast places NULL values last in the ordering.
func (e Expression) NullsLast() Expression { return e.ordering("NULLS LAST") }

func (e Expression) ordering(keyword string) Expression {
	d := e.derive(e.name, e.dataType, nil, concat(e.tokens, token.Literal(keyword), nil)...)
	d.notNull = e.notNull
	return d
}

// OrderBy attaches an ORDER BY to the expression. It is used for the
// argument of ordered aggregates such as [ArrayAgg].
func (e Expression) OrderBy(items ...Expr) Expression {
	order, err := orderTokens(items)
	d := e.derive(e.name, e.dataType, err, concat(e.tokens, token.Literal("ORDER BY"), order)...)
	d.notNull = e.notNull
	return d
}

// orderTokens renders a list of ordering items. Aliased expressions are
// referred to by their alias.
func orderTokens(items []Expr) ([]token.Token, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no ordering given")
	}
	var err error
	parts := make([]token.Token, len(items))
	for i, item := range items {
		ex := item.expression()
		err = firstErr(err, ex.err)
		if ex.aliased {
			parts[i] = token.Literal(naming.QuoteAlias(ex.name))
			continue
		}
		parts[i] = token.Collection(ex.tokens)
	}
	return []token.Token{token.Join(parts...)}, err
}

// operand returns the tokens for a value used as an operand. Expressions
// composed with AND or OR are parenthesized and every other value is bound
// as a parameter.
func operand(value any) ([]token.Token, error) {
	x, ok := value.(Expr)
	if !ok {
		return []token.Token{token.Parameter{Value: value}}, nil
	}
	ex := x.expression()
	if ex.logic != logicNone {
		return []token.Token{token.Group{Items: ex.tokens}}, ex.err
	}
	return ex.tokens, ex.err
}

func concat(head []token.Token, mid token.Token, tail []token.Token) []token.Token {
	out := make([]token.Token, 0, len(head)+1+len(tail))
	out = append(out, head...)
	out = append(out, mid)
	return append(out, tail...)
}

func clone(tokens []token.Token) []token.Token {
	out := make([]token.Token, len(tokens))
	copy(out, tokens)
	return out
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}
