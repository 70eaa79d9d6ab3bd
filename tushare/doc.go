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

// Package tushare implements the generic table API of Tushare Pro.
//
// Every Tushare Pro call is a JSON POST naming the API, a flat map of string
// parameters and the list of requested columns. The response carries a status
// code, an optional error message and a table: a list of column names and a
// list of rows, each row a list of cells.
//
// The central piece is the mapping of such tables onto typed records. A record
// type declares its Schema once, as an ordered list of fields, each naming its
// column and the coercion applied to the cell: plain string, YYYYMMDD date,
// floating point, integer, or an enumeration resolved by the position of the
// cell value in an alias table. Materialize then converts a Response into a
// slice of records, and RowIterator does the same row by row while paging
// through large tables transparently.
//
// APIs for specific Tushare products, such as the Shanghai and Shenzhen stock
// data, are implemented in separate packages.
package tushare
