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
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrDuplicateCredentials indicates that credentials were supplied both
	// embedded in the host string and as explicit config fields.
	ErrDuplicateCredentials = errors.New("more than one set of credentials supplied")
	// ErrNoPrimaryKey indicates that an operation needing a primary key was
	// invoked on a record that has none.
	ErrNoPrimaryKey = errors.New("record has no primary key")
	// ErrCrossOrigin indicates that a followed URL points outside the
	// database origin. Set Config.AllowCrossOrigin to permit this.
	ErrCrossOrigin = errors.New("resource is outside the database origin")
	// ErrDetachedRecord indicates that a record built locally, rather than
	// returned by a table, was asked to perform a network operation.
	ErrDetachedRecord = errors.New("record is not attached to a table")
)

// MalformedResourceError indicates that a host string or resource path failed
// structural validation. It is raised at construction time, before any I/O.
type MalformedResourceError struct {
	Input  string
	Reason string
}

func (e *MalformedResourceError) Error() string {
	return fmt.Sprintf("malformed resource %q: %s", e.Input, e.Reason)
}

// UnexpectedStatusError indicates that the HTTP response status differs from
// what the operation expects. The raw body is kept so callers can inspect
// server-reported validation detail.
type UnexpectedStatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, detail)
	}
	return fmt.Sprintf("unexpected status %s: %s", e.Status, string(e.Body))
}

// Detail extracts the server-side "detail" field from the response body, if
// the body is a JSON document carrying one.
func (e *UnexpectedStatusError) Detail() string {
	return gjson.GetBytes(e.Body, "detail").String()
}

// IsNotFound reports whether err is an UnexpectedStatusError with a 404 status.
func IsNotFound(err error) bool {
	var statusErr *UnexpectedStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// TypeMismatchError indicates that a typed record accessor could not coerce
// the stored value.
type TypeMismatchError struct {
	Key   string
	Want  string
	Value string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q cannot be read as %s: %s", e.Key, e.Want, e.Value)
}
