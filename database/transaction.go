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
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/rdb/builder"
)

type txState int

const (
	txActive txState = iota
	txCommitted
	txRolledBack
)

func (s txState) String() string {
	switch s {
	case txCommitted:
		return "committed"
	case txRolledBack:
		return "rolled back"
	default:
		return "active"
	}
}

// Transaction owns one leased connection for its lifetime. Once committed or
// rolled back it releases the connection and every further call fails with
// ErrTransactionClosed.
type Transaction struct {
	*Operator
	conn   bun.Conn
	tx     bun.Tx
	logger Logger

	mu    sync.Mutex
	state txState
}

func newTransaction(b *builder.Builder, conn bun.Conn, tx bun.Tx) *Transaction {
	t := &Transaction{conn: conn, tx: tx, logger: GetLogger()}
	t.Operator = NewOperator(b, txExecutor{t: t})
	t.logger.Debug("Transaction started")
	return t
}

func (t *Transaction) check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return ErrTransactionClosed
	}
	return nil
}

// Closed reports whether the transaction reached a terminal state.
func (t *Transaction) Closed() bool {
	return t.check() != nil
}

// Commit commits and releases the connection. The transaction is terminal
// afterwards even if the commit itself failed.
func (t *Transaction) Commit() error {
	return t.finish(txCommitted, t.tx.Commit)
}

// Rollback rolls back and releases the connection. The transaction is
// terminal afterwards even if the rollback itself failed.
func (t *Transaction) Rollback() error {
	return t.finish(txRolledBack, t.tx.Rollback)
}

func (t *Transaction) finish(state txState, end func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txActive {
		return ErrTransactionClosed
	}

	err := end()
	t.state = state
	if closeErr := t.conn.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		t.logger.Warn("Transaction finished with error", "state", state, "error", err)
	} else {
		t.logger.Debug("Transaction finished", "state", state)
	}
	return err
}

// txExecutor rejects statements once the transaction is terminal, before the
// connection is touched.
type txExecutor struct {
	t *Transaction
}

func (e txExecutor) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := e.t.check(); err != nil {
		return nil, err
	}
	return e.t.tx.QueryContext(ctx, query, args...)
}

func (e txExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := e.t.check(); err != nil {
		return nil, err
	}
	return e.t.tx.ExecContext(ctx, query, args...)
}
