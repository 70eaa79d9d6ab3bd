// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tushare

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/tushare/date"
)

// Query is a builder for a Request. Builder methods always create a copy of
// the query, leaving the original intact.
type Query struct {
	api    string
	params map[string]string
	fields []string
	limit  int
	offset int
}

// NewQuery creates a new query for the API, e.g. "stock_basic".
func NewQuery(api string) *Query {
	return &Query{api: api, params: map[string]string{}}
}

// Copy creates a deep copy of the query.
func (q *Query) Copy() *Query {
	q2 := Query{api: q.api, limit: q.limit, offset: q.offset}
	q2.params = make(map[string]string, len(q.params))
	for k, v := range q.params {
		q2.params[k] = v
	}
	if q.fields != nil {
		q2.fields = append([]string{}, q.fields...)
	}
	return &q2
}

// API name of the query.
func (q *Query) API() string {
	return q.api
}

// Param sets a request parameter. An empty value removes the parameter.
func (q *Query) Param(key, value string) *Query {
	q2 := q.Copy()
	if value == "" {
		delete(q2.params, key)
	} else {
		q2.params[key] = value
	}
	return q2
}

// Equal requires the column to be one of the values. Tushare accepts a comma
// separated list only for some parameters, e.g. ts_code.
func (q *Query) Equal(key string, values ...string) *Query {
	return q.Param(key, strings.Join(values, ","))
}

// Date sets a date parameter in the YYYYMMDD format. The zero date removes the
// parameter.
func (q *Query) Date(key string, d date.Date) *Query {
	if d.IsZero() {
		return q.Param(key, "")
	}
	return q.Param(key, d.Compact())
}

// Fields constrains the response to these columns.
func (q *Query) Fields(columns ...string) *Query {
	q2 := q.Copy()
	q2.fields = append([]string{}, columns...)
	return q2
}

// Limit sets the maximum number of rows in a single response, which also
// enables paging in Read. Non-positive value means the server default.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		n = 0
	}
	q2 := q.Copy()
	q2.limit = n
	return q2
}

// Offset sets the number of rows to skip.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		n = 0
	}
	q2 := q.Copy()
	q2.offset = n
	return q2
}

// Request creates a new Request for the query. The caller is free to modify
// it without affecting the query.
func (q *Query) Request() *Request {
	r := &Request{API: q.api, Params: make(map[string]string, len(q.params)+2)}
	for k, v := range q.params {
		r.Params[k] = v
	}
	if q.limit > 0 {
		r.Params["limit"] = strconv.Itoa(q.limit)
	}
	if q.offset > 0 {
		r.Params["offset"] = strconv.Itoa(q.offset)
	}
	if q.fields != nil {
		r.Fields = append([]string{}, q.fields...)
	}
	return r
}

// RowIterator iterates over query results row by row. Paging is handled
// transparently when the query has a Limit.
type RowIterator[T any] struct {
	context   context.Context
	client    *Client
	query     *Query
	schema    *Schema[T]
	page      Table
	binding   *Binding[T]
	index     int  // the row for Next() to return
	rows      int  // rows returned from the previous pages
	pageCount int  // which page number we're on, for logging
	started   bool // if at least one Next call was ever made
}

// Read sets up the iterator over the result rows, which will execute the query
// as needed. If the query has no Fields, the schema columns are requested.
func Read[T any](ctx context.Context, c *Client, q *Query, s *Schema[T]) *RowIterator[T] {
	if q.fields == nil {
		q = q.Fields(s.Columns()...)
	}
	return &RowIterator[T]{context: ctx, client: c, query: q, schema: s}
}

// nextPage fetches and populates the iterator with the next page of data. When
// there are no more pages to load, or loading a page results in an error, the
// first return value becomes false.
func (it *RowIterator[T]) nextPage() (bool, error) {
	if it.started {
		if !it.page.HasMore || it.query.limit == 0 || len(it.page.Items) == 0 {
			return false, nil
		}
		it.rows += len(it.page.Items)
		it.query = it.query.Offset(it.query.offset + len(it.page.Items))
	}
	it.started = true
	it.page = Table{}
	resp, err := it.client.Do(it.context, it.query.Request())
	if err != nil {
		return false, errors.Annotate(err, "failed to query page %d", it.pageCount+1)
	}
	if resp.Code != CodeOK {
		return false, &DataUnavailableError{Code: resp.Code, Message: resp.Message}
	}
	if resp.Data != nil {
		it.page = *resp.Data
	}
	it.binding = it.schema.Bind(it.page.Fields)
	it.index = 0
	it.pageCount++
	logging.Debugf(it.context, "tushare: %s: fetched page %d with %d rows; has_more=%v",
		it.query.api, it.pageCount, len(it.page.Items), it.page.HasMore)
	return true, nil
}

// Next loads the next row into rec. If there are no more rows, the first value
// is false. A malformed row returns (true, err) and the iteration may continue;
// other errors, including a failed enum lookup, end the iteration.
func (it *RowIterator[T]) Next(rec *T) (bool, error) {
	if it.query == nil {
		return false, nil
	}
	for !it.started || it.index >= len(it.page.Items) {
		if ok, err := it.nextPage(); !ok {
			it.query = nil
			return false, err
		}
	}
	var r T
	err := it.binding.load(it.page.Items[it.index], &r)
	*rec = r
	it.index++
	if err != nil {
		err.Row = it.rows + it.index - 1
		if err.Fatal {
			it.query = nil
			return false, err
		}
		return true, err
	}
	return true, nil
}

// ReadAll reads all the rows of the query. Malformed rows are dropped, and the
// remaining records are returned with MalformedRowsError. Otherwise, the error
// semantics are those of Materialize.
func ReadAll[T any](ctx context.Context, c *Client, q *Query, s *Schema[T]) ([]T, error) {
	it := Read(ctx, c, q, s)
	res := []T{}
	var rowErrs MalformedRowsError
	for {
		var rec T
		ok, err := it.Next(&rec)
		if !ok {
			if err != nil {
				return nil, err
			}
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, err.(*MalformedFieldError))
			continue
		}
		res = append(res, rec)
	}
	if len(rowErrs) > 0 {
		return res, rowErrs
	}
	return res, nil
}

// TestResponse generates the JSON string of a successful response with the
// given table. For use in tests.
func TestResponse(fields []string, items [][]Cell, hasMore bool) (string, error) {
	bytes, err := json.Marshal(&Response{
		Code: CodeOK,
		Data: &Table{Fields: fields, Items: items, HasMore: hasMore},
	})
	return string(bytes), err
}

// TestErrorResponse generates the JSON string of a failed response. For use in
// tests.
func TestErrorResponse(code int, msg string) (string, error) {
	bytes, err := json.Marshal(&Response{Code: code, Message: msg})
	return string(bytes), err
}
