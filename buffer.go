/*
 * Copyright 2026 QuestDB
 *
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

package questdb

import (
	"math"
	"strconv"
	"unicode/utf8"
)

type rowState int

const (
	needTable rowState = iota
	needFirstField
	inSymbols
	inColumns
)

// Buffer accumulates newline-terminated ILP rows. It enforces the row
// grammar: table name first, then symbols, then typed columns, terminated
// by At or AtNow. Symbols are not permitted after the first typed column.
//
// The buffer always holds zero or more complete rows plus at most one row
// in progress. A failed mutation abandons the in-progress row: the buffer
// is truncated back to the last complete row and the state machine resets,
// so completed rows are never corrupted.
type Buffer struct {
	buf      []byte
	state    rowState
	rowStart int
	rows     int
}

// NewBuffer creates a buffer with the given reserved capacity.
func NewBuffer(initSize int) *Buffer {
	return &Buffer{buf: make([]byte, 0, initSize)}
}

// Table starts a new row for the given table.
func (b *Buffer) Table(name string) error {
	if b.state != needTable {
		return b.abandonRow(newErr(KindProtocolViolation, "table must start a new row"))
	}
	if err := validateTableName(name); err != nil {
		return b.abandonRow(err)
	}
	b.rowStart = len(b.buf)
	b.buf = append(b.buf, name...)
	b.state = needFirstField
	return nil
}

// Symbol appends a symbol (tag) to the row in progress. All symbols must
// precede the row's typed columns.
func (b *Buffer) Symbol(name, value string) error {
	switch b.state {
	case needFirstField, inSymbols:
	case inColumns:
		return b.abandonRow(newErr(KindProtocolViolation, "symbol %q after a typed column", name))
	default:
		return b.abandonRow(newErr(KindProtocolViolation, "symbol %q before table", name))
	}
	if err := validateColumnName(name); err != nil {
		return b.abandonRow(err)
	}
	if !utf8.ValidString(value) {
		return b.abandonRow(newErr(KindInvalidArgument, "symbol %q value is not valid UTF-8", name))
	}
	b.buf = append(b.buf, ',')
	b.buf = append(b.buf, name...)
	b.buf = append(b.buf, '=')
	b.buf = appendEscapedString(b.buf, value, false)
	b.state = inSymbols
	return nil
}

// String appends a string column.
func (b *Buffer) String(name, value string) error {
	if !utf8.ValidString(value) {
		return b.abandonRow(newErr(KindInvalidArgument, "column %q value is not valid UTF-8", name))
	}
	if err := b.startColumn(name); err != nil {
		return err
	}
	b.buf = append(b.buf, '"')
	b.buf = appendEscapedString(b.buf, value, true)
	b.buf = append(b.buf, '"')
	return nil
}

// Bool appends a boolean column, rendered as a single-character token.
func (b *Buffer) Bool(name string, value bool) error {
	if err := b.startColumn(name); err != nil {
		return err
	}
	if value {
		b.buf = append(b.buf, 't')
	} else {
		b.buf = append(b.buf, 'f')
	}
	return nil
}

// Int64 appends a 64-bit integer column. The wire token carries an 'i'
// suffix to distinguish it from a float.
func (b *Buffer) Int64(name string, value int64) error {
	if err := b.startColumn(name); err != nil {
		return err
	}
	b.buf = strconv.AppendInt(b.buf, value, 10)
	b.buf = append(b.buf, 'i')
	return nil
}

// Float64 appends a double-precision column using a round-trip-safe
// decimal representation.
func (b *Buffer) Float64(name string, value float64) error {
	if err := b.startColumn(name); err != nil {
		return err
	}
	b.buf = strconv.AppendFloat(b.buf, value, 'g', -1, 64)
	return nil
}

// Timestamp appends a timestamp column in microseconds since the Unix
// epoch. Note that the row-terminating At timestamp is in nanoseconds;
// the units are not interchangeable.
func (b *Buffer) Timestamp(name string, micros int64) error {
	if err := b.startColumn(name); err != nil {
		return err
	}
	b.buf = strconv.AppendInt(b.buf, micros, 10)
	b.buf = append(b.buf, 't')
	return nil
}

// At terminates the row in progress with an explicit designated timestamp
// in nanoseconds since the Unix epoch.
func (b *Buffer) At(nanos int64) error {
	if b.state == needTable {
		return b.abandonRow(newErr(KindProtocolViolation, "at without a row in progress"))
	}
	if nanos < 0 {
		return b.abandonRow(newErr(KindInvalidArgument, "negative timestamp %d", nanos))
	}
	b.buf = append(b.buf, ' ')
	b.buf = strconv.AppendInt(b.buf, nanos, 10)
	b.buf = append(b.buf, '\n')
	b.state = needTable
	b.rowStart = len(b.buf)
	b.rows++
	return nil
}

// AtNow terminates the row in progress, letting the server assign the
// ingestion timestamp.
func (b *Buffer) AtNow() error {
	if b.state == needTable {
		return b.abandonRow(newErr(KindProtocolViolation, "atNow without a row in progress"))
	}
	b.buf = append(b.buf, '\n')
	b.state = needTable
	b.rowStart = len(b.buf)
	b.rows++
	return nil
}

// startColumn validates the name and writes the separator and "name="
// for a typed column.
func (b *Buffer) startColumn(name string) error {
	switch b.state {
	case needFirstField, inSymbols:
		if err := validateColumnName(name); err != nil {
			return b.abandonRow(err)
		}
		b.buf = append(b.buf, ' ')
	case inColumns:
		if err := validateColumnName(name); err != nil {
			return b.abandonRow(err)
		}
		b.buf = append(b.buf, ',')
	default:
		return b.abandonRow(newErr(KindProtocolViolation, "column %q before table", name))
	}
	b.buf = append(b.buf, name...)
	b.buf = append(b.buf, '=')
	b.state = inColumns
	return nil
}

// abandonRow drops the in-progress row, if any, and returns err.
func (b *Buffer) abandonRow(err error) error {
	b.buf = b.buf[:b.rowStart]
	b.state = needTable
	return err
}

// Bytes returns the buffered bytes, including any in-progress row.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Rows returns the number of complete rows in the buffer.
func (b *Buffer) Rows() int {
	return b.rows
}

// InProgress reports whether a row has been started but not terminated.
func (b *Buffer) InProgress() bool {
	return b.state != needTable
}

// Reset discards all buffered rows while retaining the reserved capacity.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.state = needTable
	b.rowStart = 0
	b.rows = 0
}

// Float64AsInt64 converts a float to an int64 for use with Int64 columns.
// It fails with an invalid-argument error when f is not an exact integer
// or does not fit in 64 bits, rather than silently truncating.
func Float64AsInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, newErr(KindInvalidArgument, "%v is not an integral value", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, newErr(KindInvalidArgument, "%v does not fit in an int64", f)
	}
	return int64(f), nil
}
