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

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/tomoncle/rdb/builder"
	"github.com/tomoncle/rdb/database"
	"github.com/tomoncle/rdb/types"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		_ = sqldb.Close()
	})
	return database.NewDB(bun.NewDB(sqldb, sqlitedialect.New())), mock
}

func TestRepositoryGetOne(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepositoryWithKey(db, "users", "uid")

	mock.ExpectQuery(`SELECT * FROM "users" WHERE "uid" = 'u1' LIMIT 0, 1`).
		WillReturnRows(sqlmock.NewRows([]string{"uid", "name"}).AddRow("u1", "alice"))

	row, err := repo.GetOne(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOne: %v", err)
	}
	if row["name"] != "alice" {
		t.Errorf("unexpected row %v", row)
	}
}

func TestRepositoryWrites(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO "users"("id", "name") VALUES (1, 'a')`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE "users" SET "name" = 'b' WHERE "id" = 1`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = 1`).WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := repo.Create(ctx, builder.Row{"id": 1, "name": "a"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Update(ctx, builder.Row{"id": 1, "name": "b"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := repo.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestRepositoryRejectsUnboundedWrites(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewRepository(db, "users")
	ctx := context.Background()

	if _, err := repo.Update(ctx, builder.Row{"name": "b"}); !errors.Is(err, builder.ErrInvalidArgument) {
		t.Errorf("Update without key: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := repo.UpdateWhere(ctx, builder.Row{"name": "b"}, nil); !errors.Is(err, builder.ErrInvalidArgument) {
		t.Errorf("UpdateWhere without condition: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := repo.DeleteWhere(ctx, nil); !errors.Is(err, builder.ErrInvalidArgument) {
		t.Errorf("DeleteWhere without condition: expected ErrInvalidArgument, got %v", err)
	}
}

func TestRepositoryUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")

	mock.ExpectExec(`INSERT INTO "users"("id", "name") VALUES (1, 'a') ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if _, err := repo.Upsert(context.Background(), []string{"name"}, nil, builder.Row{"id": 1, "name": "a"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestRepositoryPage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")
	page := types.NewPageRequest(2, 2, builder.Where{builder.Eq("active", 1)}, []builder.Order{builder.Asc("id")})

	mock.ExpectQuery(`SELECT COUNT(*) AS count FROM "users" WHERE "active" = 1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT * FROM "users" WHERE "active" = 1 ORDER BY "id" ASC LIMIT 2, 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	result, err := repo.Page(context.Background(), page)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if result.Total != 3 || result.Page != 2 || result.Pages() != 2 || len(result.Items) != 1 {
		t.Errorf("unexpected page %+v", result)
	}
}

func TestRepositoryPageEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")

	mock.ExpectQuery(`SELECT COUNT(*) AS count FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	result, err := repo.Page(context.Background(), types.NewDefaultPageRequest(1, 10))
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if result.Total != 0 || result.Items == nil || len(result.Items) != 0 {
		t.Errorf("unexpected page %+v", result)
	}
}

func TestRepositoryJoinsScopeFromContext(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"("id") VALUES (1)`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = 2`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := db.BeginTransactionScope(context.Background(), func(ctx context.Context, tx *database.Transaction) (any, error) {
		if _, err := repo.Create(ctx, builder.Row{"id": 1}); err != nil {
			return nil, err
		}
		return repo.WithTx(tx).Delete(ctx, 2)
	}, nil)
	if err != nil {
		t.Fatalf("BeginTransactionScope: %v", err)
	}
}

func TestRepositoryRefusesRolledBackScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := db.BeginTransactionScope(context.Background(), func(ctx context.Context, _ *database.Transaction) (any, error) {
		_, innerErr := db.BeginTransactionScope(ctx, func(context.Context, *database.Transaction) (any, error) {
			return nil, boom
		}, nil)
		if !errors.Is(innerErr, boom) {
			t.Errorf("expected inner error %v, got %v", boom, innerErr)
		}

		if _, err := repo.Create(ctx, builder.Row{"id": 7}); !errors.Is(err, database.ErrTransactionRolledBack) {
			t.Errorf("Create: expected ErrTransactionRolledBack, got %v", err)
		}
		if _, err := repo.DeleteWhere(ctx, builder.Where{builder.Eq("id", 7)}); !errors.Is(err, database.ErrTransactionRolledBack) {
			t.Errorf("DeleteWhere: expected ErrTransactionRolledBack, got %v", err)
		}
		if _, err := repo.Count(ctx, nil); !errors.Is(err, database.ErrTransactionRolledBack) {
			t.Errorf("Count: expected ErrTransactionRolledBack, got %v", err)
		}
		if _, err := repo.Page(ctx, nil); !errors.Is(err, database.ErrTransactionRolledBack) {
			t.Errorf("Page: expected ErrTransactionRolledBack, got %v", err)
		}
		return nil, nil
	}, nil)
	if !errors.Is(err, database.ErrTransactionRolledBack) {
		t.Fatalf("expected ErrTransactionRolledBack, got %v", err)
	}
}

func TestRepositoryScopeUsableAfterNewTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db, "users")
	scope := database.NewTxScope()
	ctx := database.WithTxScope(context.Background(), scope)

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"("id") VALUES (8)`).WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	_, err := db.BeginTransactionScope(ctx, func(context.Context, *database.Transaction) (any, error) {
		return nil, errors.New("boom")
	}, nil)
	if err == nil {
		t.Fatal("expected scope error")
	}
	if !scope.RolledBack() {
		t.Fatal("expected scope to report rollback")
	}
	if _, err := repo.Create(ctx, builder.Row{"id": 8}); !errors.Is(err, database.ErrTransactionRolledBack) {
		t.Fatalf("expected ErrTransactionRolledBack outside a new transaction, got %v", err)
	}

	_, err = db.BeginTransactionScope(ctx, func(ctx context.Context, _ *database.Transaction) (any, error) {
		return repo.Create(ctx, builder.Row{"id": 8})
	}, nil)
	if err != nil {
		t.Fatalf("BeginTransactionScope: %v", err)
	}
	if scope.RolledBack() {
		t.Error("expected rollback flag cleared by the new transaction")
	}
}
