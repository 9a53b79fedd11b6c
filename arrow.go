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
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// RecordOptions controls how an Arrow record maps onto ILP rows.
type RecordOptions struct {
	// Table is the destination table.
	Table string
	// DesignatedTimestamp optionally names a timestamp column whose value
	// becomes each row's designated (At) timestamp instead of a regular
	// column. Rows where it is null fall back to server-assigned time.
	DesignatedTimestamp string
	// Symbols optionally names string or dictionary-encoded string
	// columns to write as symbols rather than string columns.
	Symbols []string
}

// IngestRecord encodes every row of an Arrow record onto the sender's
// buffer, one ILP row per record row. Supported column types are string,
// bool, int64, float64, and timestamp; null cells are skipped. The caller
// still flushes.
func (s *Sender) IngestRecord(rec arrow.Record, opts RecordOptions) error {
	if err := s.usable(); err != nil {
		return err
	}

	schema := rec.Schema()
	symbols := make(map[string]bool, len(opts.Symbols))
	for _, name := range opts.Symbols {
		symbols[name] = true
	}

	tsCol := -1
	if opts.DesignatedTimestamp != "" {
		for i, f := range schema.Fields() {
			if f.Name == opts.DesignatedTimestamp {
				if _, ok := f.Type.(*arrow.TimestampType); !ok {
					return s.poison(newErr(KindInvalidArgument,
						"designated timestamp column %q has type %s", f.Name, f.Type))
				}
				tsCol = i
			}
		}
		if tsCol < 0 {
			return s.poison(newErr(KindInvalidArgument,
				"designated timestamp column %q not found", opts.DesignatedTimestamp))
		}
	}

	for row := 0; row < int(rec.NumRows()); row++ {
		if err := s.Table(opts.Table); err != nil {
			return err
		}

		// Symbols first: the row grammar requires all tags before any
		// typed column.
		for i := 0; i < int(rec.NumCols()); i++ {
			col, name := rec.Column(i), schema.Field(i).Name
			if !symbols[name] || col.IsNull(row) {
				continue
			}
			var value string
			switch sv := col.(type) {
			case *array.String:
				value = sv.Value(row)
			case *array.Dictionary:
				dict, ok := sv.Dictionary().(*array.String)
				if !ok {
					return s.poison(newErr(KindInvalidArgument,
						"symbol column %q has non-string dictionary type %s", name, sv.Dictionary().DataType()))
				}
				value = dict.Value(sv.GetValueIndex(row))
			default:
				return s.poison(newErr(KindInvalidArgument,
					"symbol column %q has non-string type %s", name, col.DataType()))
			}
			if err := s.Symbol(name, value); err != nil {
				return err
			}
		}

		for i := 0; i < int(rec.NumCols()); i++ {
			col, name := rec.Column(i), schema.Field(i).Name
			if i == tsCol || symbols[name] || col.IsNull(row) {
				continue
			}
			var err error
			switch v := col.(type) {
			case *array.String:
				err = s.String(name, v.Value(row))
			case *array.Boolean:
				err = s.Bool(name, v.Value(row))
			case *array.Int64:
				err = s.Int64(name, v.Value(row))
			case *array.Float64:
				err = s.Float64(name, v.Value(row))
			case *array.Timestamp:
				unit := v.DataType().(*arrow.TimestampType).Unit
				err = s.Timestamp(name, v.Value(row).ToTime(unit).UnixMicro())
			default:
				err = s.poison(newErr(KindInvalidArgument,
					"column %q has unsupported type %s", name, col.DataType()))
			}
			if err != nil {
				return err
			}
		}

		if tsCol >= 0 && !rec.Column(tsCol).IsNull(row) {
			v := rec.Column(tsCol).(*array.Timestamp)
			unit := v.DataType().(*arrow.TimestampType).Unit
			if err := s.At(v.Value(row).ToTime(unit).UnixNano()); err != nil {
				return err
			}
		} else if err := s.AtNow(); err != nil {
			return err
		}
	}
	return nil
}
