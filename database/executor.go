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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/uptrace/bun"

	"github.com/tomoncle/rdb/builder"
)

// Executor runs finished SQL. *bun.DB, bun.Conn and bun.Tx all satisfy it.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var _ Executor = (bun.IDB)(nil)

// Operator runs statements rendered by a builder.Builder against an
// Executor. The same Operator code serves the pool, a leased connection and a
// transaction.
type Operator struct {
	builder *builder.Builder
	exec    Executor
}

// NewOperator binds a builder to an executor.
func NewOperator(b *builder.Builder, exec Executor) *Operator {
	if b == nil {
		b = builder.New(nil)
	}
	return &Operator{builder: b, exec: exec}
}

// Builder returns the statement builder.
func (o *Operator) Builder() *builder.Builder {
	return o.builder
}

// Format substitutes params into query. See builder.Escaper.Format.
func (o *Operator) Format(query string, params builder.Params) string {
	return o.builder.Format(query, params)
}

// Escape renders v as a SQL value.
func (o *Operator) Escape(v any) string {
	return o.builder.Escape(v)
}

// EscapeID renders name as a quoted identifier.
func (o *Operator) EscapeID(name string) string {
	return o.builder.EscapeID(name)
}

// Query formats query with params, runs it and returns every row.
func (o *Operator) Query(ctx context.Context, query string, params builder.Params) ([]builder.Row, error) {
	if params != nil {
		query = o.builder.Format(query, params)
	}
	rows, err := o.exec.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// QueryOne is Query returning the first row, or nil when there is none.
func (o *Operator) QueryOne(ctx context.Context, query string, params builder.Params) (builder.Row, error) {
	rows, err := o.Query(ctx, query, params)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Exec formats query with params and runs it as a statement.
func (o *Operator) Exec(ctx context.Context, query string, params builder.Params) (sql.Result, error) {
	if params != nil {
		query = o.builder.Format(query, params)
	}
	return o.exec.ExecContext(ctx, query)
}

func (o *Operator) Select(ctx context.Context, table string, opts *builder.Options) ([]builder.Row, error) {
	return o.Query(ctx, o.builder.Select(table, opts), nil)
}

// Get returns the first matching row, or nil when nothing matches.
func (o *Operator) Get(ctx context.Context, table string, where builder.Where, opts *builder.Options) (builder.Row, error) {
	return o.QueryOne(ctx, o.builder.Get(table, where, opts), nil)
}

// Count returns the number of matching rows. An absent aggregate counts as 0.
func (o *Operator) Count(ctx context.Context, table string, where builder.Where) (int64, error) {
	row, err := o.QueryOne(ctx, o.builder.Count(table, where), nil)
	if err != nil {
		return 0, err
	}
	return toInt64(row["count"])
}

func (o *Operator) Insert(ctx context.Context, table string, rows []builder.Row, opts *builder.Options) (sql.Result, error) {
	query, err := o.builder.Insert(table, rows, opts)
	if err != nil {
		return nil, err
	}
	return o.exec.ExecContext(ctx, query)
}

// InsertRow inserts a single row.
func (o *Operator) InsertRow(ctx context.Context, table string, row builder.Row) (sql.Result, error) {
	return o.Insert(ctx, table, []builder.Row{row}, nil)
}

// Update writes row. See builder.Builder.Update for how the condition is
// chosen; an update without one fails before reaching the database.
func (o *Operator) Update(ctx context.Context, table string, row builder.Row, opts *builder.Options) (sql.Result, error) {
	query, err := o.builder.Update(table, row, opts)
	if err != nil {
		return nil, err
	}
	return o.exec.ExecContext(ctx, query)
}

func (o *Operator) Delete(ctx context.Context, table string, where builder.Where) (sql.Result, error) {
	return o.exec.ExecContext(ctx, o.builder.Delete(table, where))
}

func scanRows(rows *sql.Rows) ([]builder.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := make([]builder.Row, 0)
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(builder.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return parseCount(n)
	case []byte:
		return parseCount(string(n))
	}
	return 0, fmt.Errorf("rdb: unexpected count value %v (%T)", v, v)
}

func parseCount(s string) (int64, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rdb: invalid count value %q: %w", s, err)
	}
	return i, nil
}
