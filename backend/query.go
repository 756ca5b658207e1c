// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"
	"net/url"
)

// Query describes one point-in-time read against the hosted backend's
// PostgREST-style API: a table, a set of column filters, and optional
// ordering and row limit. Encode produces the query string the API
// expects (filters as "column=op.value" pairs).
type Query struct {
	// Table is the table to read.
	Table string

	// Filters are ANDed column conditions.
	Filters []Filter

	// OrderBy is the column to sort on; empty means backend order.
	OrderBy string

	// Descending sorts OrderBy descending when set.
	Descending bool

	// Limit caps the number of rows returned. Zero means no limit.
	Limit int
}

// Filter is one column condition.
type Filter struct {
	// Column is the column name.
	Column string

	// Op is the PostgREST operator: "eq", "neq", "gt", "lt", "is".
	Op string

	// Value is the right-hand side, rendered verbatim.
	Value string
}

// Eq builds an equality filter, the common case.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: "eq", Value: value}
}

// Encode renders the query string for the read endpoint.
func (q Query) Encode() string {
	values := url.Values{}
	for _, filter := range q.Filters {
		values.Set(filter.Column, filter.Op+"."+filter.Value)
	}
	if q.OrderBy != "" {
		order := q.OrderBy
		if q.Descending {
			order += ".desc"
		}
		values.Set("order", order)
	}
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	return values.Encode()
}
