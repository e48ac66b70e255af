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
	"database/sql"

	"github.com/tomoncle/rdb/builder"
	"github.com/tomoncle/rdb/database"
	"github.com/tomoncle/rdb/types"
)

// Executor is the statement surface shared by database.DB,
// database.Connection and database.Transaction.
type Executor interface {
	Builder() *builder.Builder
	Exec(ctx context.Context, query string, params builder.Params) (sql.Result, error)
	Select(ctx context.Context, table string, opts *builder.Options) ([]builder.Row, error)
	Get(ctx context.Context, table string, where builder.Where, opts *builder.Options) (builder.Row, error)
	Count(ctx context.Context, table string, where builder.Where) (int64, error)
	Insert(ctx context.Context, table string, rows []builder.Row, opts *builder.Options) (sql.Result, error)
	Update(ctx context.Context, table string, row builder.Row, opts *builder.Options) (sql.Result, error)
	Delete(ctx context.Context, table string, where builder.Where) (sql.Result, error)
}

var (
	_ Executor = (*database.DB)(nil)
	_ Executor = (*database.Connection)(nil)
	_ Executor = (*database.Transaction)(nil)
)

// CrudRepository defines basic CRUD operations on one table.
type CrudRepository interface {
	GetOne(ctx context.Context, id any) (builder.Row, error)

	FindOne(ctx context.Context, where builder.Where) (builder.Row, error)

	GetAll(ctx context.Context) ([]builder.Row, error)

	List(ctx context.Context, opts *builder.Options) ([]builder.Row, error)

	Count(ctx context.Context, where builder.Where) (int64, error)

	Create(ctx context.Context, rows ...builder.Row) (sql.Result, error)

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, rows ...builder.Row) (sql.Result, error)

	Update(ctx context.Context, row builder.Row) (sql.Result, error)

	UpdateWhere(ctx context.Context, row builder.Row, where builder.Where) (sql.Result, error)

	Delete(ctx context.Context, id any) (sql.Result, error)

	DeleteWhere(ctx context.Context, where builder.Where) (sql.Result, error)
}

// TransactionRepository binds a repository to an open transaction.
type TransactionRepository interface {
	WithTx(tx *database.Transaction) Repository
}

// PageQueryRepository defines pagination over a table.
type PageQueryRepository interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[builder.Row], error)
}

// Repository combines CRUD, pagination and transactional operations on one
// table.
type Repository interface {
	CrudRepository
	PageQueryRepository
	TransactionRepository
	Table() string
	PrimaryKey() string
	Builder() *builder.Builder
}
