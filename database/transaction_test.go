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
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tomoncle/rdb/builder"
)

func TestTransactionCommit(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "logs"("msg") VALUES ('hi')`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if _, err := tx.InsertRow(ctx, "logs", builder.Row{"msg": "hi"}); err != nil {
		t.Fatalf("InsertRow: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !tx.Closed() {
		t.Error("transaction should be closed after commit")
	}
	checkExpectations(t, mock)
}

func TestTransactionClosedAfterFinish(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := db.BeginTransaction(ctx)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if _, err := tx.Query(ctx, "SELECT 1", nil); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Query: expected ErrTransactionClosed, got %v", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM t", nil); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Exec: expected ErrTransactionClosed, got %v", err)
	}
	if _, err := tx.Count(ctx, "t", nil); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Count: expected ErrTransactionClosed, got %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Commit: expected ErrTransactionClosed, got %v", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrTransactionClosed) {
		t.Errorf("Rollback: expected ErrTransactionClosed, got %v", err)
	}
	checkExpectations(t, mock)
}

func TestBeginTransactionReleasesConnectionOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("begin failed")

	mock.ExpectBegin().WillReturnError(boom)

	if _, err := db.BeginTransaction(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if inUse := db.Stats().InUse; inUse != 0 {
		t.Errorf("expected no leased connections, got %d", inUse)
	}
	checkExpectations(t, mock)
}

func TestConnectionPinsStatements(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectExec(`SET @a = 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT @a AS a`).WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(int64(1)))

	conn, err := db.GetConnection(ctx)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if db.Stats().InUse != 1 {
		t.Errorf("expected one leased connection")
	}
	if _, err := conn.Exec(ctx, "SET @a = 1", nil); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	row, err := conn.QueryOne(ctx, "SELECT @a AS a", nil)
	if err != nil {
		t.Fatalf("QueryOne: %v", err)
	}
	if row["a"] != int64(1) {
		t.Errorf("unexpected row: %v", row)
	}
	if err := conn.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if db.Stats().InUse != 0 {
		t.Errorf("expected connection to be released")
	}
	checkExpectations(t, mock)
}
