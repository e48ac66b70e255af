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
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

func mysqlBuilder() *Builder {
	return New(nil)
}

func assertSQL(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("sql mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFormatNamed(t *testing.T) {
	b := mysqlBuilder()
	tests := []struct {
		name   string
		query  string
		params Named
		want   string
	}{
		{"substitutes key", "SELECT * FROM t WHERE a = :x", Named{"x": 5}, "SELECT * FROM t WHERE a = 5"},
		{"missing key left intact", "SELECT * FROM t WHERE a = :missing", Named{"x": 5}, "SELECT * FROM t WHERE a = :missing"},
		{"repeated key", "a = :v OR b = :v", Named{"v": "z"}, "a = 'z' OR b = 'z'"},
		{"literal", "UPDATE t SET at = :at", Named{"at": Now}, "UPDATE t SET at = now()"},
		{"list", "id IN (:ids)", Named{"ids": []int{1, 2, 3}}, "id IN (1, 2, 3)"},
		{"nil", "a = :a", Named{"a": nil}, "a = NULL"},
		{"empty params", "a = :a", Named{}, "a = :a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSQL(t, b.Format(tt.query, tt.params), tt.want)
		})
	}
}

func TestFormatPositional(t *testing.T) {
	b := mysqlBuilder()
	tests := []struct {
		name   string
		query  string
		params Params
		want   string
	}{
		{"value and identifier", "SELECT * FROM ?? WHERE ?? = ?", Values{"users", "id", 7}, "SELECT * FROM `users` WHERE `id` = 7"},
		{"identifier list", "SELECT ?? FROM t", Values{[]string{"a", "b"}}, "SELECT `a`, `b` FROM t"},
		{"in list", "a IN (?)", Values{List{1, "x"}}, "a IN (1, 'x')"},
		{"nested list", "VALUES ?", Values{List{List{1, 2}, List{3, 4}}}, "VALUES (1, 2), (3, 4)"},
		{"literal", "SET a = ?", Values{Literal("now()")}, "SET a = now()"},
		{"pairs", "SET ?", Values{Named{"b": 2, "a": "x"}}, "SET `a` = 'x', `b` = 2"},
		{"too few values", "a = ? AND b = ?", Values{1}, "a = 1 AND b = ?"},
		{"triple marks untouched", "a ??? b = ?", Values{1}, "a ??? b = 1"},
		{"nil params", "a = ?", nil, "a = ?"},
		{"no values", "a = ?", Values{}, "a = ?"},
		{"qualified identifier", "SELECT ?? FROM t", Values{"t.col"}, "SELECT `t`.`col` FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSQL(t, b.Format(tt.query, tt.params), tt.want)
		})
	}
}

func TestEscapeID(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.EscapeID("user"), "`user`")
	assertSQL(t, b.EscapeID("db.user"), "`db`.`user`")
	assertSQL(t, b.EscapeID("we`ird"), "`we``ird`")
	assertSQL(t, b.EscapeID("t.*"), "`t`.*")

	lite := New(sqlitedialect.New())
	assertSQL(t, lite.EscapeID("user"), `"user"`)
}

func TestEscapeValues(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.Escape(nil), "NULL")
	assertSQL(t, b.Escape(42), "42")
	assertSQL(t, b.Escape(int64(-3)), "-3")
	assertSQL(t, b.Escape(uint8(9)), "9")
	assertSQL(t, b.Escape(1.5), "1.5")
	assertSQL(t, b.Escape("abc"), "'abc'")
	assertSQL(t, b.Escape(Literal("CURRENT_DATE")), "CURRENT_DATE")
	assertSQL(t, b.Escape(schema.Safe("x + 1")), "x + 1")
	assertSQL(t, b.Escape(schema.Ident("col")), "`col`")

	var np *int
	assertSQL(t, b.Escape(np), "NULL")
	n := 5
	assertSQL(t, b.Escape(&n), "5")

	type status int
	assertSQL(t, b.Escape(status(2)), "2")

	if got := b.Escape("O'Brien"); got == "'O'Brien'" {
		t.Fatalf("quote was not escaped: %s", got)
	}
}

type failingValuer struct {
	msg string
}

func (v failingValuer) Value() (driver.Value, error) {
	return nil, errors.New(v.msg)
}

func TestEscapeRejectsUnrenderableValues(t *testing.T) {
	b := New(sqlitedialect.New())
	type ratio float64
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nan", math.NaN(), `?!('rdb: unsupported float value NaN')`},
		{"positive infinity", math.Inf(1), `?!('rdb: unsupported float value +Inf')`},
		{"float32 infinity", float32(math.Inf(-1)), `?!('rdb: unsupported float value -Inf')`},
		{"named float", ratio(math.NaN()), `?!('rdb: unsupported float value NaN')`},
		{"valuer error", failingValuer{msg: "boom"}, `?!('boom')`},
		{"valuer error is quoted", failingValuer{msg: "x') OR 1=1 --"}, `?!('x'') OR 1=1 --')`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSQL(t, b.Escape(tt.value), tt.want)
		})
	}

	assertSQL(t, b.Where(Where{Eq("score", math.NaN())}), ` WHERE "score" = ?!('rdb: unsupported float value NaN')`)
}

func TestWhere(t *testing.T) {
	b := mysqlBuilder()
	tests := []struct {
		name  string
		where Where
		want  string
	}{
		{"empty", nil, ""},
		{"scalar", Where{Eq("id", 1)}, " WHERE `id` = 1"},
		{"sequence", Where{In("id", 1, 2)}, " WHERE `id` IN (1, 2)"},
		{"typed slice", Where{Eq("name", []string{"a", "b"})}, " WHERE `name` IN ('a', 'b')"},
		{"order preserved", Where{Eq("b", 2), Eq("a", "x")}, " WHERE `b` = 2 AND `a` = 'x'"},
		{"literal", Where{Eq("at", Now)}, " WHERE `at` = now()"},
		{"empty sequence", Where{In("id")}, " WHERE `id` IN (NULL)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSQL(t, b.Where(tt.where), tt.want)
		})
	}
}

func TestWhereTermCount(t *testing.T) {
	b := mysqlBuilder()
	for n := 1; n <= 6; n++ {
		w := make(Where, 0, n)
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				w = append(w, Eq(string(rune('a'+i)), i))
			} else {
				w = append(w, In(string(rune('a'+i)), i, i+1))
			}
		}
		got := b.Where(w)
		if terms := strings.Count(got, " AND ") + 1; terms != n {
			t.Fatalf("n=%d: got %d terms in %q", n, terms, got)
		}
		if ins := strings.Count(got, " IN ("); ins != n/2 {
			t.Fatalf("n=%d: got %d IN terms in %q", n, ins, got)
		}
	}
}

func TestWhereOf(t *testing.T) {
	w := WhereOf(map[string]any{"b": 1, "a": 2})
	if len(w) != 2 || w[0].Column != "a" || w[1].Column != "b" {
		t.Fatalf("unexpected where: %#v", w)
	}
	if WhereOf(nil) != nil {
		t.Fatal("expected nil where for empty map")
	}
}

func TestOrders(t *testing.T) {
	b := mysqlBuilder()
	tests := []struct {
		name   string
		orders []Order
		want   string
	}{
		{"none", nil, ""},
		{"bare column", []Order{By("name")}, " ORDER BY `name`"},
		{"directions", []Order{Asc("a"), Desc("b")}, " ORDER BY `a` ASC, `b` DESC"},
		{"lower case", []Order{{Column: "a", Direction: "desc"}}, " ORDER BY `a` DESC"},
		{"invalid direction dropped", []Order{{Column: "a", Direction: "sideways"}}, " ORDER BY `a`"},
		{"parsed", []Order{ParseOrder("id desc"), ParseOrder("name")}, " ORDER BY `id` DESC, `name`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertSQL(t, b.Orders(tt.orders...), tt.want)
		})
	}
}

func TestLimit(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.Limit(0, 0), "")
	assertSQL(t, b.Limit(10, 0), " LIMIT 0, 10")
	assertSQL(t, b.Limit(10, 20), " LIMIT 20, 10")
	assertSQL(t, b.Limit(10, -5), " LIMIT 0, 10")
	assertSQL(t, b.Limit(-1, 5), "")

	lite := New(sqlitedialect.New())
	assertSQL(t, lite.Limit(10, 20), " LIMIT 20, 10")
}

func TestLimitPostgres(t *testing.T) {
	b := New(pgdialect.New())
	assertSQL(t, b.Limit(0, 20), "")
	assertSQL(t, b.Limit(10, 0), " LIMIT 10")
	assertSQL(t, b.Limit(10, 20), " LIMIT 10 OFFSET 20")
	assertSQL(t, b.Limit(10, -5), " LIMIT 10")

	assertSQL(t, b.Select("users", &Options{Limit: 10, Offset: 20}), `SELECT * FROM "users" LIMIT 10 OFFSET 20`)
	assertSQL(t, b.Get("users", Where{Eq("id", 3)}, nil), `SELECT * FROM "users" WHERE "id" = 3 LIMIT 1`)
}

func TestSelect(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.Select("users", nil), "SELECT * FROM `users`")
	assertSQL(t, b.SelectColumns("users", []string{"*"}), "SELECT * FROM `users`")

	got := b.Select("users", &Options{
		Columns: []string{"id", "name"},
		Where:   Where{Eq("type", "admin"), In("status", 1, 2)},
		Orders:  []Order{Desc("id")},
		Limit:   10,
		Offset:  5,
	})
	assertSQL(t, got, "SELECT `id`, `name` FROM `users` WHERE `type` = 'admin' AND `status` IN (1, 2) ORDER BY `id` DESC LIMIT 5, 10")
}

func TestGetForcesSingleRow(t *testing.T) {
	b := mysqlBuilder()
	opts := &Options{Limit: 50, Offset: 10, Orders: []Order{Asc("id")}}
	got := b.Get("users", Where{Eq("id", 3)}, opts)
	assertSQL(t, got, "SELECT * FROM `users` WHERE `id` = 3 ORDER BY `id` ASC LIMIT 0, 1")
	if opts.Limit != 50 || opts.Offset != 10 || opts.Where != nil {
		t.Fatalf("caller options modified: %#v", opts)
	}
}

func TestCount(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.Count("users", nil), "SELECT COUNT(*) AS count FROM `users`")
	assertSQL(t, b.Count("users", Where{Eq("a", 1)}), "SELECT COUNT(*) AS count FROM `users` WHERE `a` = 1")
}

func TestInsert(t *testing.T) {
	b := mysqlBuilder()

	got, err := b.Insert("users", []Row{{"name": "a", "age": 1}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQL(t, got, "INSERT INTO `users`(`age`, `name`) VALUES (1, 'a')")

	got, err = b.Insert("users", []Row{
		{"name": "a", "created_at": Now},
		{"name": "b"},
	}, &Options{Columns: []string{"name", "created_at"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQL(t, got, "INSERT INTO `users`(`name`, `created_at`) VALUES ('a', now()), ('b', NULL)")

	if _, err := b.Insert("users", nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := b.Insert("users", []Row{{}}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	b := mysqlBuilder()

	got, err := b.Update("t", Row{"id": 1, "name": "a"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQL(t, got, "UPDATE `t` SET `name` = 'a' WHERE `id` = 1")

	got, err = b.Update("t", Row{"name": "a", "type": "x", "updated_at": Now}, &Options{Where: Where{Eq("type", "x")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQL(t, got, "UPDATE `t` SET `name` = 'a', `updated_at` = now() WHERE `type` = 'x'")

	got, err = b.Update("t", Row{"id": 1, "name": "a", "age": 3}, &Options{Columns: []string{"name"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQL(t, got, "UPDATE `t` SET `name` = 'a' WHERE `id` = 1")
}

func TestUpdateRequiresCondition(t *testing.T) {
	b := mysqlBuilder()
	if _, err := b.Update("t", Row{"name": "a"}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := b.Update("t", Row{"id": 1}, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty SET, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	b := mysqlBuilder()
	assertSQL(t, b.Delete("t", nil), "DELETE FROM `t`")
	assertSQL(t, b.Delete("t", Where{In("id", 1, 2)}), "DELETE FROM `t` WHERE `id` IN (1, 2)")
}

func TestLiteralNeverQuoted(t *testing.T) {
	b := mysqlBuilder()
	lit := Literal("now()")
	outputs := []string{
		b.Format("a = ?", Values{lit}),
		b.Format("a = :a", Named{"a": lit}),
		b.Where(Where{Eq("a", lit)}),
	}
	ins, err := b.Insert("t", []Row{{"a": lit}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	upd, err := b.Update("t", Row{"id": 1, "a": lit}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outputs = append(outputs, ins, upd)
	for _, out := range outputs {
		if !strings.Contains(out, "now()") || strings.Contains(out, "'now()'") {
			t.Fatalf("literal was escaped: %s", out)
		}
	}
}
