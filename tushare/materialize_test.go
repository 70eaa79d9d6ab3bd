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
	"encoding/json"
	"testing"

	"github.com/stockparfait/tushare/date"

	. "github.com/smartystreets/goconvey/convey"
)

type testStatus uint8

const (
	testListed testStatus = iota
	testDelisted
	testPaused
)

var testStatusAliases = Aliases{"L", "D", "P"}

type testRecord struct {
	Code    string
	Name    string
	Listed  date.Date
	Price   float64
	Volume  int64
	Status  testStatus
	Comment string // not in the schema
	Extra   string // declared after Comment, never mapped
}

var testSchema = NewSchema(
	String("ts_code", func(r *testRecord, v string) { r.Code = v }),
	String("name", func(r *testRecord, v string) { r.Name = v }),
	Date("list_date", func(r *testRecord, v date.Date) { r.Listed = v }),
	Float("price", func(r *testRecord, v float64) { r.Price = v }),
	Int("vol", func(r *testRecord, v int64) { r.Volume = v }),
	Enum("list_status", testStatusAliases, func(r *testRecord, v testStatus) { r.Status = v }),
	Untagged[testRecord]("Comment"),
	String("extra", func(r *testRecord, v string) { r.Extra = v }),
)

func cells(values ...interface{}) []Cell {
	res := make([]Cell, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		res[i] = NewCell(v.(string))
	}
	return res
}

func TestCell(t *testing.T) {
	t.Parallel()

	Convey("Cell decodes all the scalar JSON values", t, func() {
		var row []Cell
		So(json.Unmarshal([]byte(`["abc", null, 12.50, 7, true, "中小板"]`), &row), ShouldBeNil)
		So(row, ShouldResemble, []Cell{
			NewCell("abc"), {}, NewCell("12.50"), NewCell("7"), NewCell("true"), NewCell("中小板"),
		})
	})

	Convey("Cell rejects non-scalars", t, func() {
		var row []Cell
		So(json.Unmarshal([]byte(`[{"a": 1}]`), &row), ShouldNotBeNil)
		So(json.Unmarshal([]byte(`[[1]]`), &row), ShouldNotBeNil)
	})

	Convey("Cell encodes as string or null", t, func() {
		b, err := json.Marshal([]Cell{NewCell("12"), {}})
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `["12",null]`)
		So(Cell{}.String(), ShouldEqual, "<null>")
		So(NewCell("x").String(), ShouldEqual, "x")
	})
}

func TestSchema(t *testing.T) {
	t.Parallel()

	Convey("NewSchema", t, func() {
		Convey("stops at the first untagged field", func() {
			So(testSchema.Len(), ShouldEqual, 6)
			So(testSchema.Columns(), ShouldResemble, []string{
				"ts_code", "name", "list_date", "price", "vol", "list_status"})
		})

		Convey("keeps descriptors in declaration order", func() {
			d := testSchema.Descriptors()
			So(len(d), ShouldEqual, 6)
			So(d[0], ShouldResemble, Descriptor{Column: "ts_code", Coercion: PlainString})
			So(d[2].Coercion, ShouldEqual, CompactDate)
			So(d[3].Coercion, ShouldEqual, FloatingPoint)
			So(d[4].Coercion, ShouldEqual, Integer)
			So(d[5], ShouldResemble, Descriptor{
				Column: "list_status", Coercion: EnumByAlias, Aliases: testStatusAliases})
		})

		Convey("with an untagged first field is empty", func() {
			s := NewSchema(
				Untagged[testRecord]("Comment"),
				String("name", func(r *testRecord, v string) { r.Name = v }),
			)
			So(s.Len(), ShouldEqual, 0)
			So(s.Columns(), ShouldResemble, []string{})
		})

		Convey("panics on duplicate columns", func() {
			So(func() {
				NewSchema(
					String("name", func(r *testRecord, v string) { r.Name = v }),
					String("name", func(r *testRecord, v string) { r.Code = v }),
				)
			}, ShouldPanic)
		})

		Convey("panics on an enum without aliases", func() {
			So(func() {
				NewSchema(Enum("s", Aliases{}, func(r *testRecord, v testStatus) { r.Status = v }))
			}, ShouldPanic)
		})
	})

	Convey("Aliases", t, func() {
		So(testStatusAliases.Index("D"), ShouldEqual, 1)
		So(testStatusAliases.Index("d"), ShouldEqual, -1)
		So(testStatusAliases.Index(""), ShouldEqual, -1)
		a, err := testStatusAliases.Alias(int(testPaused))
		So(err, ShouldBeNil)
		So(a, ShouldEqual, "P")
		_, err = testStatusAliases.Alias(3)
		So(err, ShouldNotBeNil)
	})

	Convey("Coercion names", t, func() {
		So(PlainString.String(), ShouldEqual, "string")
		So(EnumByAlias.String(), ShouldEqual, "enum")
		So(Coercion(42).String(), ShouldEqual, "unknown")
	})
}

func TestMaterialize(t *testing.T) {
	t.Parallel()

	columns := []string{"ts_code", "name", "list_date", "price", "vol", "list_status"}
	row1 := cells("000001.SZ", "平安银行", "19910403", "12.5", "1000", "L")
	row2 := cells("600000.SH", "浦发银行", "19991110", "8.25", "12.0", "D")
	rec1 := testRecord{
		Code:   "000001.SZ",
		Name:   "平安银行",
		Listed: date.NewDate(1991, 4, 3),
		Price:  12.5,
		Volume: 1000,
		Status: testListed,
	}
	rec2 := testRecord{
		Code:   "600000.SH",
		Name:   "浦发银行",
		Listed: date.NewDate(1999, 11, 10),
		Price:  8.25,
		Volume: 12,
		Status: testDelisted,
	}

	response := func(fields []string, items ...[]Cell) *Response {
		return &Response{Code: CodeOK, Data: &Table{Fields: fields, Items: items}}
	}

	Convey("Materialize", t, func() {
		Convey("converts rows in order", func() {
			res, err := Materialize(testSchema, response(columns, row1, row2))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{rec1, rec2})
		})

		Convey("does not depend on the column order", func() {
			perm := []int{5, 3, 0, 4, 2, 1}
			cols := make([]string, len(perm))
			r1 := make([]Cell, len(perm))
			r2 := make([]Cell, len(perm))
			for i, p := range perm {
				cols[i] = columns[p]
				r1[i] = row1[p]
				r2[i] = row2[p]
			}
			res, err := Materialize(testSchema, response(cols, r1, r2))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{rec1, rec2})
		})

		Convey("leaves missing columns at default and ignores unknown columns", func() {
			res, err := Materialize(testSchema, response(
				[]string{"name", "comment", "extra", "ts_code"},
				cells("平安银行", "ignored", "ignored", "000001.SZ")))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{{Code: "000001.SZ", Name: "平安银行"}})
		})

		Convey("uses the first of duplicate columns", func() {
			res, err := Materialize(testSchema, response(
				[]string{"name", "name"}, cells("first", "second")))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{{Name: "first"}})
		})

		Convey("handles nulls", func() {
			res, err := Materialize(testSchema, response(
				[]string{"name", "list_date", "list_status"}, cells(nil, nil, "P")))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{{Status: testPaused}})
			So(res[0].Listed.IsZero(), ShouldBeTrue)
		})

		Convey("returns empty list for empty data", func() {
			res, err := Materialize(testSchema, response(columns))
			So(err, ShouldBeNil)
			So(res, ShouldResemble, []testRecord{})

			res, err = Materialize(testSchema, &Response{Code: CodeOK})
			So(err, ShouldBeNil)
			So(len(res), ShouldEqual, 0)
		})

		Convey("fails on a non-OK code regardless of data", func() {
			r := response(columns, row1)
			r.Code = CodeNoPermission
			r.Message = "抱歉，您没有访问该接口的权限"
			res, err := Materialize(testSchema, r)
			So(res, ShouldBeNil)
			So(IsDataUnavailable(err), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "抱歉，您没有访问该接口的权限")
			e := err.(*DataUnavailableError)
			So(e.Code, ShouldEqual, CodeNoPermission)

			So((&DataUnavailableError{Code: 40101}).Error(), ShouldEqual,
				"data unavailable: code 40101")
		})

		Convey("fails the whole table on an unknown enum alias", func() {
			res, err := Materialize(testSchema, response(columns,
				row1, cells("600000.SH", "浦发银行", "19991110", "8.25", "12", "X")))
			So(res, ShouldBeNil)
			So(IsMalformedField(err), ShouldBeTrue)
			e, ok := err.(*MalformedFieldError)
			So(ok, ShouldBeTrue)
			So(e.Fatal, ShouldBeTrue)
			So(e.Row, ShouldEqual, 1)
			So(e.Column, ShouldEqual, "list_status")
			So(e.Value, ShouldEqual, "X")
		})

		Convey("fails on a null enum without an empty alias", func() {
			_, err := Materialize(testSchema, response(
				[]string{"list_status"}, cells(nil)))
			So(IsMalformedField(err), ShouldBeTrue)
		})

		Convey("enum failure takes precedence over a row failure", func() {
			_, err := Materialize(testSchema, response(
				[]string{"list_date", "list_status"}, cells("bad", "X")))
			e, ok := err.(*MalformedFieldError)
			So(ok, ShouldBeTrue)
			So(e.Fatal, ShouldBeTrue)
		})

		Convey("drops malformed rows and keeps the rest", func() {
			res, err := Materialize(testSchema, response(columns,
				cells("bad.date", "x", "2021-01-01", "1", "1", "L"),
				row1,
				cells("bad.price", "x", "20210101", nil, "1", "L"),
				cells("bad.vol", "x", "20210101", "1", "1.5", "L"),
				cells("short"),
				row2,
				cells("bad.price", "x", "20210101", "abc", "1", "L"),
				cells("nan.price", "x", "20210101", "NaN", "1", "L"),
				cells("inf.price", "x", "20210101", "-Inf", "1", "L"),
				cells("hex.price", "x", "20210101", "0x1p4", "1", "L"),
				cells("big.vol", "x", "20210101", "1", "1e30", "L"),
				cells("nan.vol", "x", "20210101", "1", "NaN", "L"),
			))
			So(res, ShouldResemble, []testRecord{rec1, rec2})
			So(IsMalformedField(err), ShouldBeTrue)
			So(IsDataUnavailable(err), ShouldBeFalse)
			rows, ok := err.(MalformedRowsError)
			So(ok, ShouldBeTrue)
			So(len(rows), ShouldEqual, 10)
			for i, col := range []string{"price", "price", "price", "price", "vol", "vol"} {
				So(rows[4+i].Row, ShouldEqual, 6+i)
				So(rows[4+i].Column, ShouldEqual, col)
				So(rows[4+i].Fatal, ShouldBeFalse)
			}
			So(rows[0].Row, ShouldEqual, 0)
			So(rows[0].Column, ShouldEqual, "list_date")
			So(rows[0].Coercion, ShouldEqual, CompactDate)
			So(rows[1].Row, ShouldEqual, 2)
			So(rows[1].Column, ShouldEqual, "price")
			So(rows[2].Row, ShouldEqual, 3)
			So(rows[2].Column, ShouldEqual, "vol")
			So(rows[3].Row, ShouldEqual, 4)
			So(rows[3].Column, ShouldEqual, "")
			So(rows[3].Error(), ShouldStartWith, "row 4: malformed row ")
			So(rows[3].Error(), ShouldContainSubstring, "row has 1 values, expected 6")
			So(rows[3].Error(), ShouldNotContainSubstring, "column")
			So(rows[0].Fatal || rows[1].Fatal || rows[2].Fatal || rows[3].Fatal, ShouldBeFalse)
		})

		Convey("nil response is an error", func() {
			_, err := Materialize(testSchema, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Numbers must fit their fields", t, func() {
		type sized struct {
			Small    int8
			Big      int64
			Unsigned uint8
			Single   float32
		}
		s := NewSchema(
			Int("small", func(r *sized, v int8) { r.Small = v }),
			Int("big", func(r *sized, v int64) { r.Big = v }),
			Int("unsigned", func(r *sized, v uint8) { r.Unsigned = v }),
			Float("single", func(r *sized, v float32) { r.Single = v }),
		)
		columns := []string{"small", "big", "unsigned", "single"}
		res, err := Materialize(s, response(columns,
			cells("-128", "-9223372036854775808", "255", "1.5"),
			cells("300", "1", "1", "1"),
			cells("1", "1e30", "1", "1"),
			cells("1", "9223372036854775808", "1", "1"),
			cells("1", "1", "-1", "1"),
			cells("1", "1", "256", "1"),
			cells("1", "1", "1", "1e300"),
			cells("127", "2e3", "0.0", "-2.5"),
		))
		So(res, ShouldResemble, []sized{
			{Small: -128, Big: -9223372036854775808, Unsigned: 255, Single: 1.5},
			{Small: 127, Big: 2000, Unsigned: 0, Single: -2.5},
		})
		rows, ok := err.(MalformedRowsError)
		So(ok, ShouldBeTrue)
		So(len(rows), ShouldEqual, 6)
		for i, col := range []string{"small", "big", "big", "unsigned", "unsigned", "single"} {
			So(rows[i].Row, ShouldEqual, i+1)
			So(rows[i].Column, ShouldEqual, col)
		}
	})

	Convey("Enum round trip", t, func() {
		for i := range testStatusAliases {
			alias, err := testStatusAliases.Alias(i)
			So(err, ShouldBeNil)
			res, err := Materialize(testSchema, response(
				[]string{"list_status"}, cells(alias)))
			So(err, ShouldBeNil)
			So(res[0].Status, ShouldEqual, testStatus(i))
		}
	})

	Convey("Binding", t, func() {
		b := testSchema.Bind([]string{"vol", "foo", "ts_code"})
		So(b.Columns(), ShouldResemble, []string{"ts_code", "vol"})
		var rec testRecord
		So(b.Load(cells("7", "bar", "X"), &rec), ShouldBeNil)
		So(rec, ShouldResemble, testRecord{Code: "X", Volume: 7})
		err := b.Load(cells("seven", "bar", "X"), &rec)
		So(IsMalformedField(err), ShouldBeTrue)
	})

	Convey("Errors", t, func() {
		So(IsDataUnavailable(nil), ShouldBeFalse)
		So(IsMalformedField(nil), ShouldBeFalse)
		So(IsMalformedField(MalformedRowsError{}), ShouldBeFalse)
		e := &MalformedFieldError{Column: "c", Value: "v", Coercion: Integer,
			Err: &DataUnavailableError{Message: "inner"}}
		So(e.Error(), ShouldEqual, "row 0, column 'c' (integer): malformed value 'v': inner")
		So(IsDataUnavailable(e), ShouldBeTrue)
	})
}
