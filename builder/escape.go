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
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/schema"
)

var namedPlaceholder = regexp.MustCompile(`:(\w+)`)

// Escaper turns values and identifiers into SQL-safe text for one dialect.
// Literal and schema.Safe values are always emitted verbatim.
type Escaper struct {
	dialect schema.Dialect
}

// NewEscaper returns an escaper for the given dialect, defaulting to MySQL.
func NewEscaper(d schema.Dialect) *Escaper {
	if d == nil {
		d = mysqldialect.New()
	}
	return &Escaper{dialect: d}
}

// Dialect returns the dialect used for quoting.
func (e *Escaper) Dialect() schema.Dialect {
	return e.dialect
}

// Escape renders v as a SQL value.
func (e *Escaper) Escape(v any) string {
	return string(e.AppendValue(nil, v))
}

// EscapeID renders name as a quoted identifier. Qualified names are quoted
// per part and "*" is left bare.
func (e *Escaper) EscapeID(name string) string {
	return string(e.AppendIdent(nil, name))
}

// AppendIdent appends the quoted identifier to b.
func (e *Escaper) AppendIdent(b []byte, name string) []byte {
	q := e.dialect.IdentQuote()
	for i, part := range strings.Split(name, ".") {
		if i > 0 {
			b = append(b, '.')
		}
		if part == "*" {
			b = append(b, '*')
			continue
		}
		b = append(b, q)
		for j := 0; j < len(part); j++ {
			if part[j] == q {
				b = append(b, q, q)
			} else {
				b = append(b, part[j])
			}
		}
		b = append(b, q)
	}
	return b
}

// AppendValue appends the escaped form of v to b.
func (e *Escaper) AppendValue(b []byte, v any) []byte {
	switch v := v.(type) {
	case nil:
		return append(b, "NULL"...)
	case Literal:
		return append(b, v...)
	case schema.Safe:
		return append(b, v...)
	case schema.Ident:
		return e.AppendIdent(b, string(v))
	case string:
		return e.dialect.AppendString(b, v)
	case []byte:
		if v == nil {
			return append(b, "NULL"...)
		}
		return e.dialect.AppendBytes(b, v)
	case bool:
		return e.dialect.AppendBool(b, v)
	case int:
		return strconv.AppendInt(b, int64(v), 10)
	case int8:
		return strconv.AppendInt(b, int64(v), 10)
	case int16:
		return strconv.AppendInt(b, int64(v), 10)
	case int32:
		return strconv.AppendInt(b, int64(v), 10)
	case int64:
		return strconv.AppendInt(b, v, 10)
	case uint:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint8:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint16:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint32:
		return strconv.AppendUint(b, uint64(v), 10)
	case uint64:
		return strconv.AppendUint(b, v, 10)
	case float32:
		return e.appendFloat(b, float64(v), 32)
	case float64:
		return e.appendFloat(b, v, 64)
	case time.Time:
		return e.dialect.AppendTime(b, v)
	case List:
		return e.appendList(b, v)
	case []any:
		return e.appendList(b, v)
	case Named:
		return e.appendPairs(b, v)
	case map[string]any:
		return e.appendPairs(b, v)
	case driver.Valuer:
		return e.appendDriverValue(b, v)
	}
	return e.appendReflect(b, reflect.ValueOf(v))
}

// appendFloat rejects NaN and infinities, which have no portable SQL literal.
func (e *Escaper) appendFloat(b []byte, f float64, bitSize int) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return e.appendError(b, fmt.Errorf("rdb: unsupported float value %v", f))
	}
	return strconv.AppendFloat(b, f, 'f', -1, bitSize)
}

func (e *Escaper) appendDriverValue(b []byte, v driver.Valuer) []byte {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return append(b, "NULL"...)
	}
	value, err := v.Value()
	if err != nil {
		return e.appendError(b, err)
	}
	if _, ok := value.(driver.Valuer); ok {
		return e.appendError(b, fmt.Errorf("driver.Valuer %T returned another Valuer", v))
	}
	return e.AppendValue(b, value)
}

func (e *Escaper) appendReflect(b []byte, rv reflect.Value) []byte {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(b, "NULL"...)
		}
		return e.AppendValue(b, rv.Elem().Interface())
	case reflect.Bool:
		return e.dialect.AppendBool(b, rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(b, rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.AppendUint(b, rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return e.appendFloat(b, rv.Float(), rv.Type().Bits())
	case reflect.String:
		return e.dialect.AppendString(b, rv.String())
	case reflect.Slice, reflect.Array:
		if items, ok := sequence(rv.Interface()); ok {
			return e.appendList(b, items)
		}
		buf := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(buf), rv)
		return e.dialect.AppendBytes(b, buf)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return e.appendPairs(b, m)
		}
	}
	return e.dialect.AppendString(b, fmt.Sprint(rv.Interface()))
}

func (e *Escaper) appendList(b []byte, items []any) []byte {
	if len(items) == 0 {
		return append(b, "NULL"...)
	}
	for i, item := range items {
		if i > 0 {
			b = append(b, ", "...)
		}
		if nested, ok := sequence(item); ok {
			b = append(b, '(')
			b = e.appendList(b, nested)
			b = append(b, ')')
			continue
		}
		b = e.AppendValue(b, item)
	}
	return b
}

func (e *Escaper) appendPairs(b []byte, m map[string]any) []byte {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = e.AppendIdent(b, k)
		b = append(b, " = "...)
		b = e.AppendValue(b, m[k])
	}
	return b
}

// appendIdentValue renders the argument of a "??" placeholder.
func (e *Escaper) appendIdentValue(b []byte, v any) []byte {
	switch v := v.(type) {
	case string:
		return e.AppendIdent(b, v)
	case schema.Ident:
		return e.AppendIdent(b, string(v))
	case Literal:
		return append(b, v...)
	case []string:
		for i, name := range v {
			if i > 0 {
				b = append(b, ", "...)
			}
			b = e.AppendIdent(b, name)
		}
		return b
	}
	if items, ok := sequence(v); ok {
		for i, item := range items {
			if i > 0 {
				b = append(b, ", "...)
			}
			b = e.appendIdentValue(b, item)
		}
		return b
	}
	return e.AppendIdent(b, fmt.Sprint(v))
}

// Format substitutes params into query. Named params replace ":name"
// placeholders; Values replace "?" with escaped values and "??" with escaped
// identifiers, one entry per placeholder.
func (e *Escaper) Format(query string, params Params) string {
	switch p := params.(type) {
	case Named:
		return e.formatNamed(query, p)
	case Values:
		return e.formatPositional(query, p)
	}
	return query
}

func (e *Escaper) formatNamed(query string, values Named) string {
	if len(values) == 0 {
		return query
	}
	return namedPlaceholder.ReplaceAllStringFunc(query, func(m string) string {
		v, ok := values[m[1:]]
		if !ok {
			return m
		}
		return e.Escape(v)
	})
}

func (e *Escaper) formatPositional(query string, values Values) string {
	if len(values) == 0 {
		return query
	}
	b := make([]byte, 0, len(query)+16*len(values))
	idx, last := 0, 0
	for i := 0; i < len(query); {
		if query[i] != '?' {
			i++
			continue
		}
		j := i
		for j < len(query) && query[j] == '?' {
			j++
		}
		if n := j - i; n <= 2 {
			if idx >= len(values) {
				break
			}
			b = append(b, query[last:i]...)
			if n == 2 {
				b = e.appendIdentValue(b, values[idx])
			} else {
				b = e.AppendValue(b, values[idx])
			}
			idx++
			last = j
		}
		i = j
	}
	b = append(b, query[last:]...)
	return string(b)
}

// sequence reports whether v is a list-like value and returns its items.
// Byte slices and strings are scalars.
func sequence(v any) ([]any, bool) {
	switch v := v.(type) {
	case nil, Literal, string, []byte, schema.Safe, schema.Ident:
		return nil, false
	case List:
		return v, true
	case []any:
		return v, true
	case driver.Valuer:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// appendError poisons the statement so the database rejects it instead of
// running it with a silently dropped value. The message is emitted as a
// quoted string so it can never extend the statement.
func (e *Escaper) appendError(b []byte, err error) []byte {
	b = append(b, "?!("...)
	b = e.dialect.AppendString(b, err.Error())
	b = append(b, ')')
	return b
}
