// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlquery

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/canonical/sqlquery/internal/token"
)

// call builds name (arg, ...) with every argument converted like an operand.
func call(fn, name string, dataType DataType, args ...any) Expression {
	var err error
	items := make([]token.Token, len(args))
	for i, arg := range args {
		tokens, argErr := operand(arg)
		err = firstErr(err, argErr)
		items[i] = token.Collection(tokens)
	}
	e := newExpression(name, dataType, token.Literal(fn), token.Group{Items: []token.Token{token.Join(items...)}})
	e.err = err
	return e
}

func typeOf(arg any) DataType {
	if x, ok := arg.(Expr); ok {
		return x.expression().dataType
	}
	return Any
}

// Count counts rows. Without arguments it renders COUNT(*).
func Count(expr ...Expr) Expression {
	if len(expr) == 0 {
		e := newExpression("count", Integer, token.Literal("COUNT(*)"))
		e.notNull = true
		return e
	}
	args := make([]any, len(expr))
	for i, x := range expr {
		args[i] = x
	}
	e := call("COUNT", "count", Integer, args...)
	e.notNull = true
	return e
}

// Sum adds up the values of expr.
func Sum(expr Expr) Expression { return call("SUM", "sum", typeOf(expr), expr) }

// Min returns the smallest value of expr.
func Min(expr Expr) Expression { return call("MIN", "min", typeOf(expr), expr) }

// Max returns the largest value of expr.
func Max(expr Expr) Expression { return call("MAX", "max", typeOf(expr), expr) }

// Avg returns the mean of the values of expr.
func Avg(expr Expr) Expression { return call("AVG", "avg", Numeric, expr) }

// ArrayAgg collects the values of expr into an array. Use
// [Expression.OrderBy] on expr to order the elements.
func ArrayAgg(expr Expr) Expression {
	return call("array_agg", "arrayAgg", Any, expr)
}

// StringAgg concatenates the values of expr separated by delimiter.
func StringAgg(expr Expr, delimiter any, orderBy ...Expr) Expression {
	e := call("string_agg", "stringAgg", Text, expr, delimiter)
	if len(orderBy) == 0 {
		return e
	}
	order, err := orderTokens(orderBy)
	args := e.tokens[1].(token.Group).Items
	e.tokens = []token.Token{e.tokens[0], token.Group{Items: concat(args, token.Literal("ORDER BY"), order)}}
	e.err = firstErr(e.err, err)
	return e
}

// BitAnd returns the bitwise AND of the values of expr.
func BitAnd(expr Expr) Expression { return call("bit_and", "bitAnd", Integer, expr) }

// BitOr returns the bitwise OR of the values of expr.
func BitOr(expr Expr) Expression { return call("bit_or", "bitOr", Integer, expr) }

// BoolAnd is true if every value of expr is true.
func BoolAnd(expr Expr) Expression { return call("bool_and", "boolAnd", Boolean, expr) }

// BoolOr is true if any value of expr is true.
func BoolOr(expr Expr) Expression { return call("bool_or", "boolOr", Boolean, expr) }

// Every is the standard spelling of BoolAnd.
func Every(expr Expr) Expression { return call("every", "every", Boolean, expr) }

// XMLAgg concatenates the XML values of expr.
func XMLAgg(expr Expr) Expression { return call("xmlagg", "xmlagg", Text, expr) }

// StddevPop returns the population standard deviation of expr.
func StddevPop(expr Expr) Expression { return call("stddev_pop", "stddevPop", Numeric, expr) }

// VarPop returns the population variance of expr.
func VarPop(expr Expr) Expression { return call("var_pop", "varPop", Numeric, expr) }

// Coalesce returns the first of its arguments that is not NULL.
func Coalesce(args ...any) Expression {
	if len(args) == 0 {
		e := newExpression("coalesce", Any)
		e.err = fmt.Errorf("cannot build coalesce: no arguments")
		return e
	}
	e := call("coalesce", "coalesce", typeOf(args[0]), args...)
	for _, arg := range args {
		if _, ok := arg.(Expr); !ok && arg != nil {
			e.notNull = true
		}
	}
	return e
}

// NullIf returns NULL if a equals b, otherwise a.
func NullIf(a, b any) Expression { return call("nullif", "nullif", typeOf(a), a, b) }

// Greatest returns the largest of its arguments.
func Greatest(args ...any) Expression { return call("greatest", "greatest", firstType(args), args...) }

// Least returns the smallest of its arguments.
func Least(args ...any) Expression { return call("least", "least", firstType(args), args...) }

func firstType(args []any) DataType {
	if len(args) == 0 {
		return Any
	}
	return typeOf(args[0])
}

// Now returns the start time of the current transaction.
func Now() Expression {
	e := newExpression("now", Timestamp, token.Literal("now()"))
	e.notNull = true
	return e
}

// AnyOf compares against every element of array, which is bound as a single
// parameter: foo.id = ANY ($1).
func AnyOf(array any) Expression {
	v := reflect.ValueOf(array)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		e := newExpression(unnamed, Any, token.Literal("ANY"))
		e.err = fmt.Errorf("cannot build ANY: need slice or array, got %T", array)
		return e
	}
	return newExpression(unnamed, Any, token.Literal("ANY"), token.Group{Items: []token.Token{token.Parameter{Value: array}}})
}

// Group parenthesizes expr.
func Group(expr Expr) Expression {
	ex := expr.expression()
	return ex.derive(ex.name, ex.dataType, nil, token.Group{Items: ex.tokens})
}

// Not negates expr.
func Not(expr Expr) Expression {
	ex := expr.expression()
	return ex.derive(unnamed, Boolean, nil, token.Literal("NOT"), token.Group{Items: ex.tokens})
}

// Exists checks that q returns at least one row.
func Exists(q *SelectQuery) Expression {
	e := newExpression("exists", Boolean, token.Literal("EXISTS"), token.Group{Items: []token.Token{subquery(q)}})
	e.err = q.buildErr()
	return e
}

// NotExists checks that q returns no rows.
func NotExists(q *SelectQuery) Expression {
	e := Exists(q)
	e.name = unnamed
	e.tokens = append([]token.Token{token.Literal("NOT")}, e.tokens...)
	return e
}

// Raw builds an expression from SQL text. Every ? in sql is replaced by the
// next argument, bound as a parameter, and ?? stands for a literal ?, as
// needed by the jsonb operators. The text is otherwise emitted as is.
func Raw(sql string, args ...any) Expression {
	pieces := splitPlaceholders(sql)
	if len(pieces)-1 != len(args) {
		e := newExpression(unnamed, Any)
		e.err = fmt.Errorf("cannot build raw expression: %d placeholders but %d arguments", len(pieces)-1, len(args))
		return e
	}
	var tokens []token.Token
	for i, piece := range pieces {
		if piece = strings.TrimSpace(piece); piece != "" {
			tokens = append(tokens, token.Literal(piece))
		}
		if i < len(args) {
			tokens = append(tokens, token.Parameter{Value: args[i]})
		}
	}
	return newExpression(unnamed, Any, tokens...)
}

// splitPlaceholders splits sql around its ? placeholders, unescaping ??.
func splitPlaceholders(sql string) []string {
	var pieces []string
	var b strings.Builder
	for i := 0; i < len(sql); i++ {
		if sql[i] != '?' {
			b.WriteByte(sql[i])
			continue
		}
		if i+1 < len(sql) && sql[i+1] == '?' {
			b.WriteByte('?')
			i++
			continue
		}
		pieces = append(pieces, b.String())
		b.Reset()
	}
	return append(pieces, b.String())
}
