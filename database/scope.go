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
)

// TxScope shares one transaction between nested BeginTransactionScope calls.
// The outermost call begins and finishes the transaction; inner calls reuse
// it. A failure at any depth rolls the shared transaction back once.
//
// A TxScope is not safe for concurrent use.
type TxScope struct {
	tx         *Transaction
	depth      int
	rolledBack bool
}

// NewTxScope returns an empty scope.
func NewTxScope() *TxScope {
	return &TxScope{}
}

// Transaction returns the transaction currently bound to the scope, or nil.
func (s *TxScope) Transaction() *Transaction {
	return s.tx
}

// Depth reports how many scope calls are currently running.
func (s *TxScope) Depth() int {
	return s.depth
}

// RolledBack reports whether the last transaction of the scope was rolled
// back by a failure. It stays set until the scope begins a new transaction.
func (s *TxScope) RolledBack() bool {
	return s.rolledBack
}

func (s *TxScope) reset() {
	s.tx = nil
	s.depth = 0
}

func (s *TxScope) fail() {
	s.reset()
	s.rolledBack = true
}

type txScopeKey struct{}

// WithTxScope returns a copy of ctx carrying scope.
func WithTxScope(ctx context.Context, scope *TxScope) context.Context {
	return context.WithValue(ctx, txScopeKey{}, scope)
}

// TxScopeFrom returns the scope carried by ctx, if any.
func TxScopeFrom(ctx context.Context) (*TxScope, bool) {
	scope, ok := ctx.Value(txScopeKey{}).(*TxScope)
	return scope, ok && scope != nil
}

// ScopeFunc is a unit of work run inside a transaction scope. The context it
// receives carries the scope, so nested calls join the same transaction.
type ScopeFunc func(ctx context.Context, tx *Transaction) (any, error)

// BeginTransactionScope runs fn inside the transaction bound to scope,
// beginning one when the scope is empty. A nil scope falls back to the one
// carried by ctx, then to a fresh scope.
//
// When fn fails, the shared transaction is rolled back and fn's error is
// returned. When fn succeeds but a nested call already rolled the
// transaction back, ErrTransactionRolledBack is returned. The outermost call
// commits and returns any commit error.
func (db *DB) BeginTransactionScope(ctx context.Context, fn ScopeFunc, scope *TxScope) (result any, err error) {
	if scope == nil {
		if carried, ok := TxScopeFrom(ctx); ok {
			scope = carried
		} else {
			scope = NewTxScope()
		}
	}

	if scope.tx == nil {
		tx, err := db.BeginTransaction(ctx)
		if err != nil {
			return nil, err
		}
		scope.tx = tx
		scope.depth = 1
		scope.rolledBack = false
	} else {
		scope.depth++
	}
	tran := scope.tx

	defer func() {
		if r := recover(); r != nil {
			if scope.tx == tran {
				scope.fail()
				db.rollbackScope(tran)
			}
			panic(r)
		}
	}()

	result, err = fn(WithTxScope(ctx, scope), tran)
	if err != nil {
		if scope.tx == tran {
			scope.fail()
			db.rollbackScope(tran)
		}
		return nil, err
	}

	if scope.tx != tran {
		return nil, ErrTransactionRolledBack
	}

	scope.depth--
	if scope.depth > 0 {
		return result, nil
	}
	scope.reset()
	if err := tran.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (db *DB) rollbackScope(tx *Transaction) {
	if err := tx.Rollback(); err != nil {
		db.logger.Error("Failed to rollback transaction scope", "error", err)
	}
}

// InTransactionScope is the typed form of DB.BeginTransactionScope using the
// scope carried by ctx.
func InTransactionScope[T any](ctx context.Context, db *DB, fn func(ctx context.Context, tx *Transaction) (T, error)) (T, error) {
	var zero T
	result, err := db.BeginTransactionScope(ctx, func(ctx context.Context, tx *Transaction) (any, error) {
		return fn(ctx, tx)
	}, nil)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	return result.(T), nil
}
