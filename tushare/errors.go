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
	stderrors "errors"
	"fmt"
	"strings"
)

// DataUnavailableError is returned when the service responds with a non-zero
// status code, e.g. CodeNoPermission for endpoints beyond the account's
// privileges.
type DataUnavailableError struct {
	Code    int
	Message string
}

var _ error = &DataUnavailableError{}

// Error returns the service message as is.
func (e *DataUnavailableError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data unavailable: code %d", e.Code)
	}
	return e.Message
}

// MalformedFieldError is a cell that could not be coerced to its field. A
// Fatal error invalidates the entire table, otherwise only the row is lost.
type MalformedFieldError struct {
	Row      int    // 0-based row index in the result
	Column   string // empty when the whole row is malformed
	Value    string
	Coercion Coercion
	Fatal    bool
	Err      error
}

var _ error = &MalformedFieldError{}

func (e *MalformedFieldError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: malformed row %s: %s", e.Row, e.Value, e.Err)
	}
	return fmt.Sprintf("row %d, column '%s' (%s): malformed value '%s': %s",
		e.Row, e.Column, e.Coercion, e.Value, e.Err)
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}

// MalformedRowsError lists the rows dropped from a table.
type MalformedRowsError []*MalformedFieldError

var _ error = MalformedRowsError{}

func (e MalformedRowsError) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, m := range e {
		msgs[i] = m.Error()
	}
	return fmt.Sprintf("%d malformed rows:\n%s", len(e), strings.Join(msgs, "\n"))
}

// IsDataUnavailable checks whether err is or wraps *DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var e *DataUnavailableError
	return stderrors.As(err, &e)
}

// IsMalformedField checks whether err is or contains a *MalformedFieldError.
func IsMalformedField(err error) bool {
	var rows MalformedRowsError
	if stderrors.As(err, &rows) {
		return len(rows) > 0
	}
	var e *MalformedFieldError
	return stderrors.As(err, &e)
}
