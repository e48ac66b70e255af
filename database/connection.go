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

// Connection is a single connection leased from the pool. It runs at most
// one statement at a time and must be released when no longer needed.
type Connection struct {
	*Operator
	conn bun.Conn
}

func newConnection(b *builder.Builder, conn bun.Conn) *Connection {
	return &Connection{Operator: NewOperator(b, conn), conn: conn}
}

// BeginTransaction starts a transaction on this connection. The returned
// Transaction takes ownership of the connection and releases it on commit or
// rollback. On failure the connection stays with the caller.
func (c *Connection) BeginTransaction(ctx context.Context, opts *sql.TxOptions) (*Transaction, error) {
	tx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newTransaction(c.builder, c.conn, tx), nil
}

// Release returns the connection to the pool.
func (c *Connection) Release() error {
	return c.conn.Close()
}
