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

	"github.com/tidwall/gjson"
)

// Schema describes the fields of a table, as reported by the server.
// The SDK never validates records against it; it exists for callers that
// build dynamic input forms.
type Schema []*FieldSchema

// FieldSchema describes a single field.
type FieldSchema struct {
	// Name is the field name.
	Name string
	// Type is the field data type.
	Type FieldType
	// Required reports whether the server rejects writes lacking this field.
	Required bool
	// ReadOnly reports whether the server assigns this field itself.
	ReadOnly bool
	// Label is the human-readable field label.
	Label string
	// MaxLength is the maximum value length, or 0 when unconstrained.
	MaxLength int
}

// FieldType is the server-reported type of a field.
type FieldType string

const (
	// StringFieldType is a string field.
	StringFieldType FieldType = "string"
	// IntegerFieldType is an integer field.
	IntegerFieldType FieldType = "integer"
	// FloatFieldType is a floating-point field.
	FloatFieldType FieldType = "float"
	// DecimalFieldType is a fixed-precision numeric field.
	DecimalFieldType FieldType = "decimal"
	// BooleanFieldType is a boolean field.
	BooleanFieldType FieldType = "boolean"
	// DateFieldType is a plain date field.
	DateFieldType FieldType = "date"
	// DateTimeFieldType is a date-time field.
	DateTimeFieldType FieldType = "datetime"
	// ImageFieldType is an image upload field.
	ImageFieldType FieldType = "image"
	// ReferenceFieldType is a foreign-key field.
	ReferenceFieldType FieldType = "field"
)

// Field returns the schema of the named field, or nil.
func (s Schema) Field(name string) *FieldSchema {
	for _, f := range s {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// parseSchema extracts the "actions.POST" object of an OPTIONS response,
// which describes the fields a create accepts. Field order of the document
// is preserved.
func parseSchema(body []byte) (Schema, error) {
	doc := gjson.GetBytes(body, "actions.POST")
	if !doc.Exists() || !doc.IsObject() {
		return nil, fmt.Errorf("schema description not found in OPTIONS response")
	}

	var schema Schema
	doc.ForEach(func(key, value gjson.Result) bool {
		schema = append(schema, &FieldSchema{
			Name:      key.String(),
			Type:      FieldType(value.Get("type").String()),
			Required:  value.Get("required").Bool(),
			ReadOnly:  value.Get("read_only").Bool(),
			Label:     value.Get("label").String(),
			MaxLength: int(value.Get("max_length").Int()),
		})
		return true
	})
	return schema, nil
}
