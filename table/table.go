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

// Package table writes raw Tushare tables in CSV format.
package table

import (
	"encoding/csv"
	"io"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/tushare/tushare"
)

// Table of raw cells with optional column names.
type Table struct {
	Header []string // optional, may be nil
	Rows   [][]tushare.Cell
}

// NewTable creates a new Table instance with optional column headers. It is
// expected that, when present, the number of column headers is the same as the
// number of cells in each row.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// FromTushare creates a Table from the response payload. A nil payload is an
// empty table.
func FromTushare(t *tushare.Table) *Table {
	if t == nil {
		return NewTable()
	}
	tbl := NewTable(t.Fields...)
	tbl.AddRow(t.Items...)
	return tbl
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...[]tushare.Cell) {
	t.Rows = append(t.Rows, rows...)
}

// Params for CSV export of Table data.
type Params struct {
	Rows     int    // max. number of rows to write; 0 = unlimited (default)
	NoHeader bool   // whether to print the header, default - yes
	Null     string // representation of null cells, default - empty string
}

func (p Params) row(cells []tushare.Cell) []string {
	res := make([]string, len(cells))
	for i, c := range cells {
		if c.Valid {
			res[i] = c.Value
		} else {
			res[i] = p.Null
		}
	}
	return res
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if len(t.Header) > 0 && len(r) != len(t.Header) {
			return errors.Reason("row %d has %d cells, expected %d", i, len(r), len(t.Header))
		}
		if err := cw.Write(p.row(r)); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}
