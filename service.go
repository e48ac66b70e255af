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

package rdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/tomoncle/rdb/builder"
	"github.com/tomoncle/rdb/database"
	"github.com/tomoncle/rdb/repository"
	"github.com/tomoncle/rdb/types"
)

type Service interface {
	// Get returns the row with the given primary key, or nil.
	Get(ctx context.Context, id any) (builder.Row, error)

	// Find returns the first row matching where, or nil.
	Find(ctx context.Context, where builder.Where) (builder.Row, error)

	// All returns every row of the table.
	All(ctx context.Context) ([]builder.Row, error)

	// List returns the rows selected by opts.
	List(ctx context.Context, opts *builder.Options) ([]builder.Row, error)

	// Count returns the number of rows matching where.
	Count(ctx context.Context, where builder.Where) (int64, error)

	// Page returns one page of rows.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[builder.Row], error)

	// Save inserts one or more rows.
	Save(ctx context.Context, rows ...builder.Row) (sql.Result, error)

	// SaveOrUpdate upserts rows, overwriting fields on duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, rows ...builder.Row) (sql.Result, error)

	// Update writes row matched on its primary key.
	Update(ctx context.Context, row builder.Row) (sql.Result, error)

	// Delete removes the row with the given primary key.
	Delete(ctx context.Context, id any) (sql.Result, error)

	// InScope runs fn inside a transaction scope. Service and repository
	// calls made with the context passed to fn join the scope's transaction,
	// including calls on other services.
	InScope(ctx context.Context, fn func(ctx context.Context) error) error

	// Repository returns the underlying table repository.
	Repository() (repository.Repository, error)
}

type baseServiceImpl struct {
	table string
	pk    string

	mu   sync.Mutex
	db   *database.DB
	repo repository.Repository
}

// NewService returns a Service for table keyed by "id", bound on first use to
// the global database set up by database.InitDB.
func NewService(table string) Service {
	return &baseServiceImpl{table: table, pk: "id"}
}

// NewServiceWithKey is NewService with a custom primary key column.
func NewServiceWithKey(table, pk string) Service {
	return &baseServiceImpl{table: table, pk: pk}
}

// NewServiceWithDB returns a Service bound to db instead of the global one.
func NewServiceWithDB(db *database.DB, table string) Service {
	return &baseServiceImpl{table: table, pk: "id", db: db}
}

func (s *baseServiceImpl) bind() (*database.DB, repository.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		if s.db == nil {
			s.db = database.GetDB()
		}
		if s.db == nil {
			return nil, nil, database.ErrNotConnected
		}
		s.repo = repository.NewRepositoryWithKey(s.db, s.table, s.pk)
	}
	return s.db, s.repo, nil
}

func (s *baseServiceImpl) Repository() (repository.Repository, error) {
	_, repo, err := s.bind()
	return repo, err
}

func (s *baseServiceImpl) Get(ctx context.Context, id any) (builder.Row, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetOne(ctx, id)
}

func (s *baseServiceImpl) Find(ctx context.Context, where builder.Where) (builder.Row, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.FindOne(ctx, where)
}

func (s *baseServiceImpl) All(ctx context.Context) ([]builder.Row, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl) List(ctx context.Context, opts *builder.Options) ([]builder.Row, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, opts)
}

func (s *baseServiceImpl) Count(ctx context.Context, where builder.Where) (int64, error) {
	repo, err := s.Repository()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, where)
}

func (s *baseServiceImpl) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[builder.Row], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl) Save(ctx context.Context, rows ...builder.Row) (sql.Result, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, rows...)
}

func (s *baseServiceImpl) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, rows ...builder.Row) (sql.Result, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, rows...)
}

func (s *baseServiceImpl) Update(ctx context.Context, row builder.Row) (sql.Result, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Update(ctx, row)
}

func (s *baseServiceImpl) Delete(ctx context.Context, id any) (sql.Result, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Delete(ctx, id)
}

func (s *baseServiceImpl) InScope(ctx context.Context, fn func(ctx context.Context) error) error {
	db, _, err := s.bind()
	if err != nil {
		return err
	}
	_, err = db.BeginTransactionScope(ctx, func(ctx context.Context, _ *database.Transaction) (any, error) {
		return nil, fn(ctx)
	}, nil)
	return err
}
