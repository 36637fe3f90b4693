// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonical/sqlquery"
)

type renderOptions struct {
	table   string
	columns []string
	where   []string
	orderBy []string
	limit   int
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the SQL and parameters of a SELECT statement",
		Example: `  sqlquery render --table person --columns id,fullName --where id=1 --order-by fullName --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.statement()
			if err != nil {
				return err
			}
			text, params, err := q.ToSQL()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, text)
			for i, p := range params {
				fmt.Fprintf(out, "$%d = %#v\n", i+1, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.table, "table", "", "table to select from")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "columns to select (default all)")
	cmd.Flags().StringArrayVar(&opts.where, "where", nil, "column=value equality condition, repeatable")
	cmd.Flags().StringSliceVar(&opts.orderBy, "order-by", nil, "columns to order by, prefix with - for descending")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of rows")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// statement builds the SELECT described by the flags. Every column named in
// the flags is declared on the table.
func (o *renderOptions) statement() (*sqlquery.SelectQuery, error) {
	type condition struct{ column, value string }
	var conds []condition
	for _, w := range o.where {
		column, value, ok := strings.Cut(w, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid --where %q: need column=value", w)
		}
		conds = append(conds, condition{column, value})
	}

	seen := map[string]bool{}
	var defs []sqlquery.ColumnDef
	declare := func(name string) {
		if !seen[name] {
			seen[name] = true
			defs = append(defs, sqlquery.Def(name, sqlquery.Any))
		}
	}
	for _, name := range o.columns {
		declare(name)
	}
	for _, cond := range conds {
		declare(cond.column)
	}
	for _, name := range o.orderBy {
		declare(strings.TrimPrefix(name, "-"))
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no columns given")
	}
	table := sqlquery.DefineTable(o.table, defs...)

	db := sqlquery.NewDB(nil)
	var q *sqlquery.SelectQuery
	if len(o.columns) == 0 {
		q = db.Select(sqlquery.Star()).From(table)
	} else {
		items := make([]sqlquery.Selectable, len(o.columns))
		for i, name := range o.columns {
			items[i] = table.C(name)
		}
		q = db.Select(items...).From(table)
	}
	if len(conds) > 0 {
		where := table.C(conds[0].column).Eq(conds[0].value)
		for _, cond := range conds[1:] {
			where = where.And(table.C(cond.column).Eq(cond.value))
		}
		q = q.Where(where)
	}
	if len(o.orderBy) > 0 {
		order := make([]sqlquery.Expr, len(o.orderBy))
		for i, name := range o.orderBy {
			if strings.HasPrefix(name, "-") {
				order[i] = table.C(name[1:]).Desc()
			} else {
				order[i] = table.C(name)
			}
		}
		q = q.OrderBy(order...)
	}
	if o.limit > 0 {
		q = q.Limit(o.limit)
	}
	return q, nil
}
