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
	"encoding/base64"
	"net/url"
	"strings"
)

// authContext carries the optional Basic-Auth credential of an address.
// It is copied by value when a child handle is derived, so later handles
// never share mutable credential state.
type authContext struct {
	username   string
	credential string // "Basic <base64>", empty when authentication is absent
}

func newAuthContext(username, password string) authContext {
	if username == "" {
		return authContext{}
	}
	pair := username + ":" + password
	return authContext{
		username:   username,
		credential: "Basic " + base64.StdEncoding.EncodeToString([]byte(pair)),
	}
}

func (a authContext) present() bool {
	return a.credential != ""
}

// Address is an immutable value addressing one resource under the API root.
// Deriving a child address never mutates the parent; addresses are cheap and
// freely copied.
type Address struct {
	url  *url.URL
	auth authContext
}

func newAddress(u *url.URL, auth authContext) Address {
	return Address{url: normalizeBase(u), auth: auth}
}

// normalizeBase ensures the URL path ends in a slash. Relative resolution
// against a base that lacks the trailing slash silently drops the last path
// segment, so every addressable resource is normalized before use as a base.
func normalizeBase(u *url.URL) *url.URL {
	c := *u
	if !strings.HasSuffix(c.Path, "/") {
		c.Path += "/"
	}
	return &c
}

// Descend resolves a child resource relative to this address. The segment is
// trailing-slash-normalized first, so Descend("a").Descend("b") and
// Descend("a/b/") address the same resource.
func (a Address) Descend(segment string) (Address, error) {
	if !strings.HasSuffix(segment, "/") {
		segment += "/"
	}
	rel, err := url.Parse(segment)
	if err != nil {
		return Address{}, &MalformedResourceError{Input: segment, Reason: "not a valid path segment"}
	}
	return Address{url: a.url.ResolveReference(rel), auth: a.auth}, nil
}

// WithRawQuery returns the same address with the given pre-encoded query
// string attached. An empty query leaves the address unchanged.
func (a Address) WithRawQuery(query string) Address {
	c := *a.url
	c.RawQuery = query
	return Address{url: &c, auth: a.auth}
}

// URL returns a copy of the address URL.
func (a Address) URL() *url.URL {
	c := *a.url
	return &c
}

func (a Address) String() string {
	return a.url.String()
}

// sameOrigin reports whether u addresses the same scheme and host (including
// port) as this address.
func (a Address) sameOrigin(u *url.URL) bool {
	return a.url.Scheme == u.Scheme && a.url.Host == u.Host
}
