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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	dateLayout = "2006-01-02"
	// dateTimeLayout carries a literal Z; values are converted to UTC before
	// formatting so the suffix is truthful.
	dateTimeLayout = "2006-01-02T15:04:05Z"

	primaryKeyField = "id"
)

// Record is a schema-less, ordered field bag backed by a JSON object.
//
// A record either is a local draft built with NewRecord, or was hydrated from
// a server response and carries a back-reference to its table for follow-up
// reads. Records are not safe for concurrent mutation.
type Record struct {
	fields      []recordField
	attachments map[uuid.UUID]*attachment
	origin      *Table
}

// recordField holds one field's raw JSON value. attach is a token into the
// attachment side table; it is reset whenever the field value is reassigned,
// so a stale blob never travels with a renamed or overwritten field.
type recordField struct {
	key    string
	raw    string
	attach uuid.UUID
}

type attachment struct {
	filename    string
	contentType string
	data        []byte
}

// NewRecord creates an empty local record.
func NewRecord() *Record {
	return &Record{attachments: make(map[uuid.UUID]*attachment)}
}

// ParseRecord hydrates a record from a JSON object document. Field order of
// the document is preserved.
func ParseRecord(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", doc.Type)
	}
	return hydrateRecord(nil, doc), nil
}

func hydrateRecord(origin *Table, doc gjson.Result) *Record {
	r := NewRecord()
	r.origin = origin
	doc.ForEach(func(key, value gjson.Result) bool {
		r.fields = append(r.fields, recordField{key: key.String(), raw: value.Raw})
		return true
	})
	return r
}

func (r *Record) find(key string) int {
	for i := range r.fields {
		if r.fields[i].key == key {
			return i
		}
	}
	return -1
}

func (r *Record) value(key string) (gjson.Result, bool) {
	if i := r.find(key); i >= 0 {
		return gjson.Parse(r.fields[i].raw), true
	}
	return gjson.Result{}, false
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// IsEmpty reports whether the record has no fields.
func (r *Record) IsEmpty() bool {
	return len(r.fields) == 0
}

// Has reports whether the record contains the field.
func (r *Record) Has(key string) bool {
	return r.find(key) >= 0
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for i := range r.fields {
		keys = append(keys, r.fields[i].key)
	}
	return keys
}

// PrimaryKey returns the record's primary key, read from the "id" field.
// The second return is false when the field is absent, which marks a local
// record that has not been persisted yet.
func (r *Record) PrimaryKey() (string, bool) {
	res, ok := r.value(primaryKeyField)
	if !ok {
		return "", false
	}
	if res.Type == gjson.String {
		return res.Str, true
	}
	return res.Raw, true
}

/*
 * Typed getters. Each performs an explicit coercion from the stored JSON
 * value and fails with a TypeMismatchError when the value cannot serve.
 */

func fieldAbsent(key, want string) error {
	return &TypeMismatchError{Key: key, Want: want, Value: "field is absent"}
}

// String returns the field value as a string. Non-string scalars are
// rendered as their JSON text.
func (r *Record) String(key string) (string, error) {
	res, ok := r.value(key)
	if !ok {
		return "", fieldAbsent(key, "string")
	}
	if res.Type == gjson.String {
		return res.Str, nil
	}
	return res.Raw, nil
}

// Bool returns the field value as a bool.
func (r *Record) Bool(key string) (bool, error) {
	res, ok := r.value(key)
	if !ok {
		return false, fieldAbsent(key, "bool")
	}
	switch res.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.String:
		if b, err := strconv.ParseBool(res.Str); err == nil {
			return b, nil
		}
	}
	return false, &TypeMismatchError{Key: key, Want: "bool", Value: res.Raw}
}

// Int returns the field value as an int64. String values holding integer
// text coerce as well.
func (r *Record) Int(key string) (int64, error) {
	res, ok := r.value(key)
	if !ok {
		return 0, fieldAbsent(key, "int")
	}
	text := res.Raw
	if res.Type == gjson.String {
		text = res.Str
	}
	if res.Type == gjson.Number || res.Type == gjson.String {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, &TypeMismatchError{Key: key, Want: "int", Value: res.Raw}
}

// Float returns the field value as a float64. String values holding numeric
// text coerce as well.
func (r *Record) Float(key string) (float64, error) {
	res, ok := r.value(key)
	if !ok {
		return 0, fieldAbsent(key, "float")
	}
	text := res.Raw
	if res.Type == gjson.String {
		text = res.Str
	}
	if res.Type == gjson.Number || res.Type == gjson.String {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f, nil
		}
	}
	return 0, &TypeMismatchError{Key: key, Want: "float", Value: res.Raw}
}

// Date returns the field value parsed with the "yyyy-MM-dd" layout.
func (r *Record) Date(key string) (time.Time, error) {
	s, err := r.String(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &TypeMismatchError{Key: key, Want: "date", Value: s}
	}
	return t, nil
}

// DateTime returns the field value parsed with the "yyyy-MM-ddTHH:mm:ssZ"
// layout. The result is in UTC.
func (r *Record) DateTime(key string) (time.Time, error) {
	s, err := r.String(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return time.Time{}, &TypeMismatchError{Key: key, Want: "datetime", Value: s}
	}
	return t.UTC(), nil
}

/*
 * Setters. Reassigning a field always drops its attachment association.
 */

func (r *Record) setRaw(key, raw string) {
	if i := r.find(key); i >= 0 {
		if r.fields[i].attach != uuid.Nil {
			delete(r.attachments, r.fields[i].attach)
		}
		r.fields[i].raw = raw
		r.fields[i].attach = uuid.Nil
		return
	}
	r.fields = append(r.fields, recordField{key: key, raw: raw})
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// SetString sets a string field.
func (r *Record) SetString(key, value string) {
	r.setRaw(key, jsonString(value))
}

// SetInt sets an integer field.
func (r *Record) SetInt(key string, value int64) {
	r.setRaw(key, strconv.FormatInt(value, 10))
}

// SetFloat sets a floating-point field.
func (r *Record) SetFloat(key string, value float64) {
	r.setRaw(key, strconv.FormatFloat(value, 'g', -1, 64))
}

// SetBool sets a boolean field.
func (r *Record) SetBool(key string, value bool) {
	r.setRaw(key, strconv.FormatBool(value))
}

// SetNull sets a field to JSON null.
func (r *Record) SetNull(key string) {
	r.setRaw(key, "null")
}

// SetDate sets a plain date field formatted as "yyyy-MM-dd".
func (r *Record) SetDate(key string, value time.Time) {
	r.setRaw(key, jsonString(value.Format(dateLayout)))
}

// SetDateTime sets a date-time field formatted as "yyyy-MM-ddTHH:mm:ssZ".
// The value is converted to UTC before formatting.
func (r *Record) SetDateTime(key string, value time.Time) {
	r.setRaw(key, jsonString(value.UTC().Format(dateTimeLayout)))
}

// SetRef sets a foreign-key field to the resource URL of another record.
// The other record must have been returned by a table and have a primary key.
func (r *Record) SetRef(key string, other *Record) error {
	if other.origin == nil {
		return ErrDetachedRecord
	}
	pk, ok := other.PrimaryKey()
	if !ok {
		return ErrNoPrimaryKey
	}
	addr, err := other.origin.addr.Descend(pk)
	if err != nil {
		return err
	}
	r.setRaw(key, jsonString(addr.String()))
	return nil
}

// SetImage sets an image field. The field value becomes the filename, with a
// ".png" suffix appended when missing, and the blob is kept in the attachment
// side table under a fresh token tied to this assignment. Two fields may
// carry the same filename and still serialize as distinct parts.
func (r *Record) SetImage(key, filename string, image []byte) {
	if !strings.HasSuffix(strings.ToLower(filename), ".png") {
		filename += ".png"
	}

	token := uuid.New()
	r.setRaw(key, jsonString(filename))
	if i := r.find(key); i >= 0 {
		r.fields[i].attach = token
	}
	r.attachments[token] = &attachment{
		filename:    filename,
		contentType: "image/png",
		data:        image,
	}
}

// Remove deletes a field and its attachment, if any. It reports whether the
// field existed.
func (r *Record) Remove(key string) bool {
	i := r.find(key)
	if i < 0 {
		return false
	}
	if r.fields[i].attach != uuid.Nil {
		delete(r.attachments, r.fields[i].attach)
	}
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	return true
}

/*
 * Serialization
 */

// MarshalJSON renders the record as a JSON object with fields in insertion
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i := range r.fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(jsonString(r.fields[i].key))
		b.WriteByte(':')
		b.WriteString(r.fields[i].raw)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// JSON renders the record as its JSON text.
func (r *Record) JSON() string {
	data, _ := r.MarshalJSON()
	return string(data)
}

// fieldText renders a field value the way it travels in a form part:
// strings unquoted, everything else as raw JSON text.
func (r *Record) fieldText(i int) string {
	res := gjson.Parse(r.fields[i].raw)
	if res.Type == gjson.String {
		return res.Str
	}
	return res.Raw
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// toRequestBody encodes the record as a multipart/form-data body. Fields are
// emitted in insertion order; a field whose assignment carries an attachment
// becomes a binary part with the field's current string value as filename,
// every other field becomes a plain text part.
func (r *Record) toRequestBody() (*requestBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary("tablemate" + strings.ReplaceAll(uuid.NewString(), "-", "")); err != nil {
		return nil, err
	}

	for i := range r.fields {
		att := r.attachments[r.fields[i].attach]
		if r.fields[i].attach != uuid.Nil && att != nil {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
				quoteEscaper.Replace(r.fields[i].key), quoteEscaper.Replace(r.fieldText(i))))
			h.Set("Content-Type", att.contentType)
			part, err := w.CreatePart(h)
			if err != nil {
				return nil, err
			}
			if _, err := part.Write(att.data); err != nil {
				return nil, err
			}
			continue
		}

		if err := w.WriteField(r.fields[i].key, r.fieldText(i)); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &requestBody{contentType: w.FormDataContentType(), payload: buf.Bytes()}, nil
}

/*
 * Follow-up reads. These reuse the owning table's connection and
 * authentication, and by default refuse URLs outside the database origin.
 */

func (r *Record) resolveRef(key string) (Address, error) {
	if r.origin == nil {
		return Address{}, ErrDetachedRecord
	}
	s, err := r.String(key)
	if err != nil {
		return Address{}, err
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return Address{}, &TypeMismatchError{Key: key, Want: "resource URL", Value: s}
	}
	if !r.origin.addr.sameOrigin(u) && !r.origin.db.allowCrossOrigin {
		return Address{}, ErrCrossOrigin
	}
	return Address{url: u, auth: r.origin.addr.auth}, nil
}

// Follow treats the field value as the URL of another record, fetches it and
// returns the hydrated result.
func (r *Record) Follow(ctx context.Context, key string) (*Record, error) {
	addr, err := r.resolveRef(key)
	if err != nil {
		return nil, err
	}
	data, err := r.origin.db.conn.exchange(ctx, "GET", addr, nil, 200)
	if err != nil {
		return nil, err
	}
	return hydrateRecord(r.origin, gjson.ParseBytes(data)), nil
}

// FetchImage treats the field value as the URL of a binary resource, fetches
// it and returns the raw bytes. The blob is cached in the attachment side
// table, so repeated fetches of an untouched field stay local.
func (r *Record) FetchImage(ctx context.Context, key string) ([]byte, error) {
	if i := r.find(key); i >= 0 && r.fields[i].attach != uuid.Nil {
		if att := r.attachments[r.fields[i].attach]; att != nil {
			return att.data, nil
		}
	}

	addr, err := r.resolveRef(key)
	if err != nil {
		return nil, err
	}
	data, err := r.origin.db.conn.exchange(ctx, "GET", addr, nil, 200)
	if err != nil {
		return nil, err
	}

	if i := r.find(key); i >= 0 {
		token := uuid.New()
		r.fields[i].attach = token
		r.attachments[token] = &attachment{
			filename:    r.fieldText(i),
			contentType: "image/png",
			data:        data,
		}
	}
	return data, nil
}
