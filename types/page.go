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

package types

import "github.com/tomoncle/rdb/builder"

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// PageRequest describes a page of rows: 1-based page number, page size,
// filter conditions and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   builder.Where
	orders   []builder.Order
}

// GetPageSize returns the page size, DefaultPageSize when unset.
func (p *PageRequest) GetPageSize() int {
	if p.pageSize < 1 {
		return DefaultPageSize
	}
	return p.pageSize
}

// GetPage returns the page number, DefaultPage when unset.
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		return DefaultPage
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() builder.Where {
	return p.filter
}

func (p *PageRequest) GetOrders() []builder.Order {
	return p.orders
}

// Options returns the select options for the requested page.
func (p *PageRequest) Options(columns ...string) *builder.Options {
	return &builder.Options{
		Where:   p.filter,
		Columns: columns,
		Orders:  p.orders,
		Limit:   p.GetPageSize(),
		Offset:  p.GetOffset(),
	}
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter builder.Where, orders []builder.Order) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithFilter constructs a PageRequest with a filter only.
func NewPageRequestWithFilter(page int, pageSize int, filter builder.Where) *PageRequest {
	return NewPageRequest(page, pageSize, filter, nil)
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only. Orders
// are given as "column [ASC|DESC]".
func NewPageRequestWithOrders(page int, pageSize int, orders ...string) *PageRequest {
	parsed := make([]builder.Order, 0, len(orders))
	for _, o := range orders {
		parsed = append(parsed, builder.ParseOrder(o))
	}
	return NewPageRequest(page, pageSize, nil, parsed)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, nil)
}

// Pagination holds one page of items along with the total count.
type Pagination[T any] struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
	Items    []T   `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{Page: page, PageSize: pageSize, Items: make([]T, 0)}
}

// Pages returns the number of pages needed for Total items.
func (p *Pagination[T]) Pages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PageSize) - 1) / int64(p.PageSize))
}
