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
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/tushare/date"
)

// Coercion is the conversion rule from a cell to a record field.
type Coercion uint8

// Values of Coercion.
const (
	PlainString Coercion = iota
	CompactDate
	FloatingPoint
	Integer
	EnumByAlias
)

func (c Coercion) String() string {
	switch c {
	case PlainString:
		return "string"
	case CompactDate:
		return "date"
	case FloatingPoint:
		return "float"
	case Integer:
		return "integer"
	case EnumByAlias:
		return "enum"
	}
	return "unknown"
}

// Aliases is the ordered list of strings representing an enumeration. The
// position of the alias is the enumeration value, so the order must match the
// order of the enum constants.
type Aliases []string

// Index of the alias s, or -1 if none matches exactly.
func (a Aliases) Index(s string) int {
	return slices.Index(a, s)
}

// Alias for the enumeration value, e.g. for use as a request parameter.
func (a Aliases) Alias(ordinal int) (string, error) {
	if ordinal < 0 || ordinal >= len(a) {
		return "", errors.Reason("enum value %d is out of range [0..%d)", ordinal, len(a))
	}
	return a[ordinal], nil
}

// Descriptor is the static metadata of a single record field.
type Descriptor struct {
	Column   string   // the column name in the table
	Coercion Coercion //
	Aliases  Aliases  // only for EnumByAlias
}

// Field of a record type T: its Descriptor and the assignment of a coerced
// cell value to a record.
type Field[T any] struct {
	Descriptor
	Name   string // Go field name, for Untagged fields
	tagged bool
	assign func(rec *T, c Cell) *MalformedFieldError
}

func malformed(d Descriptor, c Cell, err error) *MalformedFieldError {
	return &MalformedFieldError{
		Column:   d.Column,
		Value:    c.Value,
		Coercion: d.Coercion,
		Fatal:    d.Coercion == EnumByAlias,
		Err:      err,
	}
}

// String declares a field copied from the cell as is. A null cell is "".
func String[T any](column string, set func(*T, string)) Field[T] {
	d := Descriptor{Column: column, Coercion: PlainString}
	return Field[T]{
		Descriptor: d,
		tagged:     true,
		assign: func(rec *T, c Cell) *MalformedFieldError {
			set(rec, c.Value)
			return nil
		},
	}
}

// Date declares a YYYYMMDD field. A null cell is the zero Date.
func Date[T any](column string, set func(*T, date.Date)) Field[T] {
	d := Descriptor{Column: column, Coercion: CompactDate}
	return Field[T]{
		Descriptor: d,
		tagged:     true,
		assign: func(rec *T, c Cell) *MalformedFieldError {
			if !c.Valid {
				set(rec, date.Date{})
				return nil
			}
			v, err := date.NewDateFromString(c.Value)
			if err != nil {
				return malformed(d, c, err)
			}
			set(rec, v)
			return nil
		},
	}
}

// Float declares a floating point field. A null cell is malformed.
func Float[T any, F constraints.Float](column string, set func(*T, F)) Field[T] {
	d := Descriptor{Column: column, Coercion: FloatingPoint}
	return Field[T]{
		Descriptor: d,
		tagged:     true,
		assign: func(rec *T, c Cell) *MalformedFieldError {
			v, err := parseFloat(c)
			if err != nil {
				return malformed(d, c, err)
			}
			if math.IsInf(float64(F(v)), 0) {
				return malformed(d, c, errors.Reason("%s overflows the field", c.Value))
			}
			set(rec, F(v))
			return nil
		},
	}
}

// Int declares an integer field. Integral decimals like "12.0" are accepted,
// since Tushare often sends integer columns as floats. A null cell is
// malformed.
func Int[T any, I constraints.Integer](column string, set func(*T, I)) Field[T] {
	d := Descriptor{Column: column, Coercion: Integer}
	return Field[T]{
		Descriptor: d,
		tagged:     true,
		assign: func(rec *T, c Cell) *MalformedFieldError {
			v, err := parseInt(c)
			if err != nil {
				return malformed(d, c, err)
			}
			if int64(I(v)) != v || (v < 0 && ^I(0) > 0) {
				return malformed(d, c, errors.Reason("%d is out of the field range", v))
			}
			set(rec, I(v))
			return nil
		},
	}
}

// Enum declares an enumeration field whose value is the position of the cell
// in aliases. A null cell is looked up as "". A value with no alias is a fatal
// error for the whole table.
func Enum[T any, E constraints.Integer](column string, aliases Aliases, set func(*T, E)) Field[T] {
	d := Descriptor{Column: column, Coercion: EnumByAlias, Aliases: aliases}
	return Field[T]{
		Descriptor: d,
		tagged:     true,
		assign: func(rec *T, c Cell) *MalformedFieldError {
			i := aliases.Index(c.Value)
			if i < 0 {
				return malformed(d, c, errors.Reason(
					"unexpected value in enumeration field: '%s' not in %v", c.Value, []string(aliases)))
			}
			set(rec, E(i))
			return nil
		},
	}
}

// Untagged declares a record member with no column. Schema discovery stops at
// the first such field: neither it nor any field declared after it is mapped.
func Untagged[T any](name string) Field[T] {
	return Field[T]{Name: name}
}

// parseFloat accepts only finite decimal numbers.
func parseFloat(c Cell) (float64, error) {
	if !c.Valid {
		return 0, errors.Reason("expected a number, got null")
	}
	digits := strings.TrimLeft(c.Value, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, errors.Reason("expected a decimal number, got %s", c.Value)
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0, errors.Annotate(err, "expected a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Reason("expected a finite number, got %s", c.Value)
	}
	return v, nil
}

func parseInt(c Cell) (int64, error) {
	if !c.Valid {
		return 0, errors.Reason("expected an integer, got null")
	}
	if v, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
		return v, nil
	}
	f, err := parseFloat(c)
	if err != nil {
		return 0, errors.Annotate(err, "expected an integer")
	}
	if f != math.Trunc(f) {
		return 0, errors.Reason("expected an integer, got %s", c.Value)
	}
	// float64(math.MaxInt64) rounds up to 2^63.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errors.Reason("%s is out of the int64 range", c.Value)
	}
	return int64(f), nil
}

// Schema is the ordered set of mapped fields of a record type T. It is
// immutable once created and safe for concurrent use.
type Schema[T any] struct {
	fields []Field[T]
}

// NewSchema discovers the mapped fields of T from the declaration, in order.
// Discovery stops at the first Untagged field. It panics on a duplicate
// column or an enumeration without aliases, as these are programming errors.
//
// A typical use:
//
//   type Day struct {
//     Date   date.Date
//     IsOpen Status
//   }
//
//   var DaySchema = tushare.NewSchema(
//     tushare.Date("cal_date", func(r *Day, v date.Date) { r.Date = v }),
//     tushare.Enum("is_open", StatusAliases, func(r *Day, v Status) { r.IsOpen = v }),
//   )
func NewSchema[T any](fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{}
	seen := make(map[string]struct{})
	for _, f := range fields {
		if !f.tagged {
			break
		}
		if _, ok := seen[f.Column]; ok {
			panic(errors.Reason("duplicate column '%s' in schema", f.Column))
		}
		if f.Coercion == EnumByAlias && len(f.Aliases) == 0 {
			panic(errors.Reason("enum column '%s' has no aliases", f.Column))
		}
		seen[f.Column] = struct{}{}
		s.fields = append(s.fields, f)
	}
	return s
}

// Len is the number of mapped fields.
func (s *Schema[T]) Len() int {
	return len(s.fields)
}

// Descriptors of the mapped fields in declaration order.
func (s *Schema[T]) Descriptors() []Descriptor {
	res := make([]Descriptor, len(s.fields))
	for i, f := range s.fields {
		res[i] = f.Descriptor
	}
	return res
}

// Columns is the list of column names to request for T.
func (s *Schema[T]) Columns() []string {
	res := make([]string, len(s.fields))
	for i, f := range s.fields {
		res[i] = f.Column
	}
	return res
}
