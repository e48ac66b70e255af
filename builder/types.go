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
	"sort"
	"strings"
)

// Literal is raw SQL text that is emitted as-is wherever a value is expected,
// e.g. a function call such as now().
type Literal string

// Now renders the current timestamp function.
const Now Literal = "now()"

// String returns the raw SQL text.
func (l Literal) String() string { return string(l) }

// Params selects the placeholder substitution mode used by Format.
// It is implemented by Values and Named only.
type Params interface {
	params()
}

// Values substitutes "?" (value) and "??" (identifier) placeholders in
// appearance order.
type Values []any

// Named substitutes ":name" placeholders. Placeholders without a matching key
// are left untouched.
type Named map[string]any

func (Values) params() {}

func (Named) params() {}

// List is a sequence value. In value position it renders as a comma separated
// list; in a Where condition it renders as an IN test.
type List []any

// Row is a single record keyed by column name.
type Row map[string]any

// Columns returns the row keys in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Cond is a single WHERE term. A sequence Value renders as "col IN (...)",
// anything else as "col = value".
type Cond struct {
	Column string
	Value  any
}

// Where is an ordered list of conditions joined with AND.
type Where []Cond

// Eq returns an equality condition.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// In returns a membership condition.
func In(column string, values ...any) Cond {
	return Cond{Column: column, Value: List(values)}
}

// WhereOf converts a map into a Where with keys in sorted order.
func WhereOf(m map[string]any) Where {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w := make(Where, 0, len(keys))
	for _, k := range keys {
		w = append(w, Cond{Column: k, Value: m[k]})
	}
	return w
}

// Has reports whether column takes part in the condition list.
func (w Where) Has(column string) bool {
	for _, c := range w {
		if c.Column == column {
			return true
		}
	}
	return false
}

const (
	DirectionAsc  = "ASC"
	DirectionDesc = "DESC"
)

// Order is one ORDER BY entry. Direction is matched case-insensitively
// against ASC and DESC; any other value is dropped.
type Order struct {
	Column    string
	Direction string
}

// By orders on column without an explicit direction.
func By(column string) Order { return Order{Column: column} }

// Asc orders on column ascending.
func Asc(column string) Order { return Order{Column: column, Direction: DirectionAsc} }

// Desc orders on column descending.
func Desc(column string) Order { return Order{Column: column, Direction: DirectionDesc} }

// ParseOrder reads "name" or "name desc" into an Order.
func ParseOrder(s string) Order {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return Order{}
	case 1:
		return Order{Column: fields[0]}
	default:
		return Order{Column: fields[0], Direction: strings.ToUpper(fields[1])}
	}
}

func (o Order) direction() string {
	d := strings.ToUpper(strings.TrimSpace(o.Direction))
	if d == DirectionAsc || d == DirectionDesc {
		return d
	}
	return ""
}

// Options controls the shape of generated select, insert and update
// statements.
type Options struct {
	// Where filters rows; empty means no WHERE clause.
	Where Where
	// Columns lists the selected or written columns; empty means "*" for
	// selects and inference from the rows for writes.
	Columns []string
	// Orders sorts the result.
	Orders []Order
	// Limit caps the number of rows; zero or less means no limit.
	Limit int
	// Offset skips rows; it only applies together with Limit.
	Offset int
}

func (o *Options) clone() Options {
	if o == nil {
		return Options{}
	}
	return *o
}
