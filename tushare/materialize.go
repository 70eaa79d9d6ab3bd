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
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/stockparfait/errors"
)

type boundField[T any] struct {
	pos   int // position of the column in the row
	field Field[T]
}

// Binding is the mapping of a Schema onto a specific list of table columns.
// Columns absent from the table leave their fields at the zero value, and
// table columns unknown to the schema are ignored.
type Binding[T any] struct {
	fields []boundField[T]
	width  int // expected row length
}

// Bind the schema to the table columns. For duplicate table columns, the first
// one wins.
func (s *Schema[T]) Bind(columns []string) *Binding[T] {
	b := &Binding[T]{width: len(columns)}
	for _, f := range s.fields {
		if i := slices.Index(columns, f.Column); i >= 0 {
			b.fields = append(b.fields, boundField[T]{pos: i, field: f})
		}
	}
	return b
}

// Columns actually mapped by the binding, in schema order.
func (b *Binding[T]) Columns() []string {
	res := make([]string, len(b.fields))
	for i, f := range b.fields {
		res[i] = f.field.Column
	}
	return res
}

// load a row into rec. A fatal error takes precedence over the row-level one.
func (b *Binding[T]) load(row []Cell, rec *T) *MalformedFieldError {
	if len(row) != b.width {
		return &MalformedFieldError{
			Value: fmt.Sprintf("%v", row),
			Err: errors.Reason("row has %d values, expected %d",
				len(row), b.width),
		}
	}
	var rowErr *MalformedFieldError
	for _, f := range b.fields {
		if err := f.field.assign(rec, row[f.pos]); err != nil {
			if err.Fatal {
				return err
			}
			if rowErr == nil {
				rowErr = err
			}
		}
	}
	return rowErr
}

// Load a single row into rec. The returned error, if any, is
// *MalformedFieldError, and rec may be partially updated.
func (b *Binding[T]) Load(row []Cell, rec *T) error {
	if err := b.load(row, rec); err != nil {
		return err
	}
	return nil
}

// Materialize converts the response table into records, one per row in the
// original order.
//
// A non-OK response code results in *DataUnavailableError and no records. A
// cell that fails an enum lookup results in a fatal *MalformedFieldError and
// no records. Any other malformed cell drops its row; the remaining records are
// returned together with MalformedRowsError listing the dropped rows.
func Materialize[T any](s *Schema[T], r *Response) ([]T, error) {
	if r == nil {
		return nil, errors.Reason("nil response")
	}
	if r.Code != CodeOK {
		return nil, &DataUnavailableError{Code: r.Code, Message: r.Message}
	}
	res := []T{}
	if r.Data == nil {
		return res, nil
	}
	b := s.Bind(r.Data.Fields)
	var rowErrs MalformedRowsError
	for i, row := range r.Data.Items {
		var rec T
		if err := b.load(row, &rec); err != nil {
			err.Row = i
			if err.Fatal {
				return nil, err
			}
			rowErrs = append(rowErrs, err)
			continue
		}
		res = append(res, rec)
	}
	if len(rowErrs) > 0 {
		return res, rowErrs
	}
	return res, nil
}
