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
	"fmt"

	"github.com/tomoncle/rdb/builder"
	"github.com/tomoncle/rdb/database"
	"github.com/tomoncle/rdb/types"
)

const defaultPrimaryKey = "id"

type baseRepositoryImpl struct {
	db    Executor
	table string
	pk    string
}

// NewRepository returns a repository for table keyed by "id".
func NewRepository(db Executor, table string) Repository {
	return NewRepositoryWithKey(db, table, defaultPrimaryKey)
}

// NewRepositoryWithKey returns a repository for table keyed by pk.
func NewRepositoryWithKey(db Executor, table, pk string) Repository {
	if pk == "" {
		pk = defaultPrimaryKey
	}
	return &baseRepositoryImpl{db: db, table: table, pk: pk}
}

func (r *baseRepositoryImpl) Table() string { return r.table }

func (r *baseRepositoryImpl) PrimaryKey() string { return r.pk }

func (r *baseRepositoryImpl) Builder() *builder.Builder { return r.db.Builder() }

func (r *baseRepositoryImpl) WithTx(tx *database.Transaction) Repository {
	return &baseRepositoryImpl{db: tx, table: r.table, pk: r.pk}
}

// exec picks the transaction of a scope carried by ctx, if any. A scope whose
// transaction was rolled back fails every call instead of falling back to
// the pool, so nothing commits on its own after a nested failure.
func (r *baseRepositoryImpl) exec(ctx context.Context) (Executor, error) {
	if scope, ok := database.TxScopeFrom(ctx); ok {
		if tx := scope.Transaction(); tx != nil {
			return tx, nil
		}
		if scope.RolledBack() {
			return nil, database.ErrTransactionRolledBack
		}
	}
	return r.db, nil
}

func (r *baseRepositoryImpl) GetOne(ctx context.Context, id any) (builder.Row, error) {
	return r.FindOne(ctx, builder.Where{builder.Eq(r.pk, id)})
}

func (r *baseRepositoryImpl) FindOne(ctx context.Context, where builder.Where) (builder.Row, error) {
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Get(ctx, r.table, where, nil)
}

func (r *baseRepositoryImpl) GetAll(ctx context.Context) ([]builder.Row, error) {
	return r.List(ctx, nil)
}

func (r *baseRepositoryImpl) List(ctx context.Context, opts *builder.Options) ([]builder.Row, error) {
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Select(ctx, r.table, opts)
}

func (r *baseRepositoryImpl) Count(ctx context.Context, where builder.Where) (int64, error) {
	exec, err := r.exec(ctx)
	if err != nil {
		return 0, err
	}
	return exec.Count(ctx, r.table, where)
}

func (r *baseRepositoryImpl) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[builder.Row], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultPageSize)
	}
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[builder.Row](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := exec.Count(ctx, r.table, pageRequest.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	rows, err := exec.Select(ctx, r.table, pageRequest.Options())
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = rows
	return pagination, nil
}

func (r *baseRepositoryImpl) Create(ctx context.Context, rows ...builder.Row) (sql.Result, error) {
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Insert(ctx, r.table, rows, nil)
}

func (r *baseRepositoryImpl) Upsert(ctx context.Context, fields []string, duplicateKeys []string, rows ...builder.Row) (sql.Result, error) {
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{r.pk}
	}
	query, err := exec.Builder().Upsert(r.table, rows, fields, duplicateKeys)
	if err != nil {
		return nil, err
	}
	return exec.Exec(ctx, query, nil)
}

// Update writes every column of row except the primary key, matched on the
// primary key.
func (r *baseRepositoryImpl) Update(ctx context.Context, row builder.Row) (sql.Result, error) {
	id, ok := row[r.pk]
	if !ok {
		return nil, fmt.Errorf("%w: update of %s needs %s", builder.ErrInvalidArgument, r.table, r.pk)
	}
	return r.UpdateWhere(ctx, row, builder.Where{builder.Eq(r.pk, id)})
}

func (r *baseRepositoryImpl) UpdateWhere(ctx context.Context, row builder.Row, where builder.Where) (sql.Result, error) {
	if len(where) == 0 {
		return nil, fmt.Errorf("%w: update of %s without condition", builder.ErrInvalidArgument, r.table)
	}
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Update(ctx, r.table, row, &builder.Options{Where: where})
}

func (r *baseRepositoryImpl) Delete(ctx context.Context, id any) (sql.Result, error) {
	return r.DeleteWhere(ctx, builder.Where{builder.Eq(r.pk, id)})
}

func (r *baseRepositoryImpl) DeleteWhere(ctx context.Context, where builder.Where) (sql.Result, error) {
	if len(where) == 0 {
		return nil, fmt.Errorf("%w: delete from %s without condition", builder.ErrInvalidArgument, r.table)
	}
	exec, err := r.exec(ctx)
	if err != nil {
		return nil, err
	}
	return exec.Delete(ctx, r.table, where)
}
