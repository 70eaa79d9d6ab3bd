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
	"bytes"
	"encoding/json"

	"github.com/stockparfait/errors"
)

// Cell is a single table value. Tushare sends strings, numbers and nulls; all
// of them are kept as their literal text, and null is recorded as !Valid.
type Cell struct {
	Value string
	Valid bool
}

var _ json.Marshaler = Cell{}
var _ json.Unmarshaler = &Cell{}

// NewCell creates a valid cell with the given text.
func NewCell(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// String returns the cell text, or "<null>".
func (c Cell) String() string {
	if !c.Valid {
		return "<null>"
	}
	return c.Value
}

// MarshalJSON implements json.Marshaler. Valid cells are always strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.Reason("empty cell JSON")
	}
	switch data[0] {
	case 'n':
		*c = Cell{}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.Annotate(err, "failed to parse string cell")
		}
		*c = NewCell(s)
		return nil
	case '{', '[':
		return errors.Reason("cell must be a scalar, got %s", string(data))
	}
	// A number or a boolean literal.
	*c = NewCell(string(data))
	return nil
}
