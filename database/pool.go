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

	"github.com/uptrace/bun"

	"github.com/tomoncle/rdb/builder"
)

// DB is the pooled entry point. Statements issued directly on DB run on any
// free pooled connection; use GetConnection or BeginTransaction to pin work
// to one connection.
type DB struct {
	*Operator
	db      *bun.DB
	manager AbstractDatabaseManager
	logger  Logger
}

// NewDB wraps an open Bun database. Values are escaped with the database's
// dialect.
func NewDB(db *bun.DB) *DB {
	b := builder.New(db.Dialect())
	return &DB{
		Operator: NewOperator(b, db),
		db:       db,
		logger:   GetLogger(),
	}
}

// Bun returns the underlying Bun database.
func (db *DB) Bun() *bun.DB {
	return db.db
}

// GetConnection leases a connection from the pool.
func (db *DB) GetConnection(ctx context.Context) (*Connection, error) {
	conn, err := db.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newConnection(db.builder, conn), nil
}

// BeginTransaction leases a connection and begins a transaction on it. The
// connection is released again if BEGIN fails.
func (db *DB) BeginTransaction(ctx context.Context) (*Transaction, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx is BeginTransaction with explicit transaction options.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Transaction, error) {
	conn, err := db.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTransaction(ctx, opts)
	if err != nil {
		if releaseErr := conn.Release(); releaseErr != nil {
			db.logger.Warn("Failed to release connection after begin error", "error", releaseErr)
		}
		return nil, err
	}
	return tx, nil
}

// Ping verifies the pool can reach the database.
func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// HealthCheck pings the database and reports pool usage.
func (db *DB) HealthCheck(ctx context.Context) *HealthStatus {
	return checkHealth(ctx, db.db)
}

// Stats returns connection pool statistics.
func (db *DB) Stats() *DBStats {
	return statsOf(db.db)
}

// End closes the pool. Leased connections must be released first.
func (db *DB) End() error {
	if db.manager != nil {
		return db.manager.Disconnect()
	}
	return db.db.Close()
}
