/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// Builder renders complete statements from table names and Options. It is a
// pure function of its inputs and the escaper and is safe for concurrent use.
type Builder struct {
	*Escaper
}

// New returns a builder for the given dialect, defaulting to MySQL.
func New(d schema.Dialect) *Builder {
	return &Builder{Escaper: NewEscaper(d)}
}

// SelectColumns renders "SELECT <columns> FROM <table>". No columns, or the
// single column "*", selects everything.
func (b *Builder) SelectColumns(table string, columns []string) string {
	buf := make([]byte, 0, 64)
	buf = append(buf, "SELECT "...)
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		buf = append(buf, '*')
	} else {
		for i, col := range columns {
			if i > 0 {
				buf = append(buf, ", "...)
			}
			buf = b.AppendIdent(buf, col)
		}
	}
	buf = append(buf, " FROM "...)
	buf = b.AppendIdent(buf, table)
	return string(buf)
}

// Where renders " WHERE a = 1 AND b IN (2, 3)" in condition order, or "" for
// an empty condition list.
func (b *Builder) Where(where Where) string {
	if len(where) == 0 {
		return ""
	}
	buf := make([]byte, 0, 32*len(where))
	buf = append(buf, " WHERE "...)
	for i, cond := range where {
		if i > 0 {
			buf = append(buf, " AND "...)
		}
		buf = b.AppendIdent(buf, cond.Column)
		if items, ok := sequence(cond.Value); ok {
			buf = append(buf, " IN ("...)
			buf = b.appendList(buf, items)
			buf = append(buf, ')')
		} else {
			buf = append(buf, " = "...)
			buf = b.AppendValue(buf, cond.Value)
		}
	}
	return string(buf)
}

// Orders renders " ORDER BY a, b DESC", or "" when there is nothing to sort on.
func (b *Builder) Orders(orders ...Order) string {
	buf := make([]byte, 0, 32)
	n := 0
	for _, o := range orders {
		if o.Column == "" {
			continue
		}
		if n == 0 {
			buf = append(buf, " ORDER BY "...)
		} else {
			buf = append(buf, ", "...)
		}
		buf = b.AppendIdent(buf, o.Column)
		if d := o.direction(); d != "" {
			buf = append(buf, ' ')
			buf = append(buf, d...)
		}
		n++
	}
	return string(buf)
}

// Limit renders " LIMIT <offset>, <limit>", or "" when limit is not positive.
// Postgres gets " LIMIT <limit> OFFSET <offset>", without OFFSET when it is 0.
func (b *Builder) Limit(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	if b.Dialect().Name() == dialect.PG {
		if offset == 0 {
			return " LIMIT " + strconv.Itoa(limit)
		}
		return " LIMIT " + strconv.Itoa(limit) + " OFFSET " + strconv.Itoa(offset)
	}
	return " LIMIT " + strconv.Itoa(offset) + ", " + strconv.Itoa(limit)
}

// Select renders a SELECT with its WHERE, ORDER BY and LIMIT clauses, in that
// order.
func (b *Builder) Select(table string, opts *Options) string {
	o := opts.clone()
	return b.SelectColumns(table, o.Columns) +
		b.Where(o.Where) +
		b.Orders(o.Orders...) +
		b.Limit(o.Limit, o.Offset)
}

// Get renders a single-row Select. The caller's options are not modified.
func (b *Builder) Get(table string, where Where, opts *Options) string {
	o := opts.clone()
	o.Where = where
	o.Limit = 1
	o.Offset = 0
	return b.Select(table, &o)
}

// Count renders "SELECT COUNT(*) AS count FROM <table>" plus the WHERE clause.
func (b *Builder) Count(table string, where Where) string {
	return "SELECT COUNT(*) AS count FROM " + b.EscapeID(table) + b.Where(where)
}

// Insert renders a multi-row INSERT. Columns come from opts.Columns or, when
// unset, from the sorted keys of the first row; keys missing from a row are
// written as NULL.
func (b *Builder) Insert(table string, rows []Row, opts *Options) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: insert into %s needs at least one row", ErrInvalidArgument, table)
	}
	columns := opts.clone().Columns
	if len(columns) == 0 {
		columns = rows[0].Columns()
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: insert into %s has no columns", ErrInvalidArgument, table)
	}

	buf := make([]byte, 0, 64+16*len(columns)*len(rows))
	buf = append(buf, "INSERT INTO "...)
	buf = b.AppendIdent(buf, table)
	buf = append(buf, '(')
	for i, col := range columns {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = b.AppendIdent(buf, col)
	}
	buf = append(buf, ") VALUES "...)
	for i, row := range rows {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, '(')
		for j, col := range columns {
			if j > 0 {
				buf = append(buf, ", "...)
			}
			buf = b.AppendValue(buf, row[col])
		}
		buf = append(buf, ')')
	}
	return string(buf), nil
}

// Update renders "UPDATE <table> SET ... WHERE ...". Without opts.Where the
// row's "id" is used as the condition; without either it fails with
// ErrInvalidArgument. Columns used in the condition are never SET.
func (b *Builder) Update(table string, row Row, opts *Options) (string, error) {
	o := opts.clone()
	if len(o.Columns) == 0 {
		o.Columns = row.Columns()
	}
	if len(o.Where) == 0 {
		id, ok := row["id"]
		if !ok {
			return "", fmt.Errorf("%w: can not detect update condition for %s, set Options.Where or make sure row id exists",
				ErrInvalidArgument, table)
		}
		o.Where = Where{Eq("id", id)}
	}

	sets := make([]string, 0, len(o.Columns))
	for _, col := range o.Columns {
		if o.Where.Has(col) {
			continue
		}
		sets = append(sets, b.EscapeID(col)+" = "+b.Escape(row[col]))
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("%w: update of %s has no columns to set", ErrInvalidArgument, table)
	}
	return "UPDATE " + b.EscapeID(table) + " SET " + strings.Join(sets, ", ") + b.Where(o.Where), nil
}

// Delete renders "DELETE FROM <table>" plus the WHERE clause. An empty
// condition list deletes every row.
func (b *Builder) Delete(table string, where Where) string {
	return "DELETE FROM " + b.EscapeID(table) + b.Where(where)
}
