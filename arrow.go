/*
 * Copyright 2025 Tablemate Authors
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

package tablemate

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/tidwall/gjson"
)

// ArrowSchema maps the table schema to an Arrow schema. Integer fields map
// to int64, float and decimal fields to float64, boolean fields to bool;
// everything else, dates and references included, travels as its string
// form. Fields the server does not require are nullable.
func (s Schema) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(s))
	for _, f := range s {
		var dt arrow.DataType
		switch f.Type {
		case IntegerFieldType:
			dt = arrow.PrimitiveTypes.Int64
		case FloatFieldType, DecimalFieldType:
			dt = arrow.PrimitiveTypes.Float64
		case BooleanFieldType:
			dt = arrow.FixedWidthTypes.Boolean
		default:
			dt = arrow.BinaryTypes.String
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt, Nullable: !f.Required})
	}
	return arrow.NewSchema(fields, nil)
}

// ToArrowBatch encodes fetched records into one Arrow record batch, for
// handing query results to analytics tooling. Absent and null fields become
// nulls. The caller owns the returned batch and must Release it.
func ToArrowBatch(schema Schema, records []*Record) (arrow.Record, error) {
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema.ArrowSchema())
	defer b.Release()

	for _, r := range records {
		for i, f := range schema {
			res, ok := r.value(f.Name)
			if !ok || res.Type == gjson.Null {
				b.Field(i).AppendNull()
				continue
			}

			switch builder := b.Field(i).(type) {
			case *array.Int64Builder:
				v, err := r.Int(f.Name)
				if err != nil {
					return nil, err
				}
				builder.Append(v)
			case *array.Float64Builder:
				v, err := r.Float(f.Name)
				if err != nil {
					return nil, err
				}
				builder.Append(v)
			case *array.BooleanBuilder:
				v, err := r.Bool(f.Name)
				if err != nil {
					return nil, err
				}
				builder.Append(v)
			case *array.StringBuilder:
				v, err := r.String(f.Name)
				if err != nil {
					return nil, err
				}
				builder.Append(v)
			default:
				return nil, fmt.Errorf("unsupported arrow builder for field %q", f.Name)
			}
		}
	}
	return b.NewRecord(), nil
}
