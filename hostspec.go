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
	"net/url"
	"regexp"
	"strconv"
)

// hostSpecPattern recognizes "[scheme://][user:pass@]host[:port][/]".
//
// The host must contain at least one dot, so a bare "localhost" does not
// match; use "127.0.0.1" instead. Anything beyond the host and port, such as
// a path, fails the match.
var hostSpecPattern = regexp.MustCompile(
	`^(?i)(?:https?://)?(?:(?P<user>[\w-]+):(?P<pass>[^@/\s]+)@)?(?P<host>[\w-]+(?:\.[\w-]+)+)(?::(?P<port>\d+))?/?$`,
)

// HostSpec is the parsed form of a host specification string.
type HostSpec struct {
	// Host is the bare host domain, without credentials or port.
	Host string
	// Port is the TCP port, or 0 when unspecified.
	Port int
	// Username is the embedded Basic-Auth username, or empty.
	Username string
	// Password is the embedded Basic-Auth password, or empty.
	Password string
}

// ParseHostSpec parses a raw host string into a HostSpec.
func ParseHostSpec(raw string) (HostSpec, error) {
	if raw == "" {
		return HostSpec{}, &MalformedResourceError{Input: raw, Reason: "empty host string"}
	}

	m := hostSpecPattern.FindStringSubmatch(raw)
	if m == nil {
		return HostSpec{}, &MalformedResourceError{Input: raw, Reason: "host domain not found"}
	}

	spec := HostSpec{
		Host:     m[hostSpecPattern.SubexpIndex("host")],
		Username: m[hostSpecPattern.SubexpIndex("user")],
		Password: m[hostSpecPattern.SubexpIndex("pass")],
	}
	if port := m[hostSpecPattern.SubexpIndex("port")]; port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n > 65535 {
			return HostSpec{}, &MalformedResourceError{Input: raw, Reason: "invalid port"}
		}
		spec.Port = n
	}
	return spec, nil
}

// HasCredentials reports whether the host string embedded a user:pass pair.
func (s HostSpec) HasCredentials() bool {
	return s.Username != ""
}

// apiRoot builds the API root URL, "http://host[:port]/api/".
func (s HostSpec) apiRoot() (*url.URL, error) {
	authority := s.Host
	if s.Port != 0 {
		authority = fmt.Sprintf("%s:%d", s.Host, s.Port)
	}
	u, err := url.Parse("http://" + authority + "/api/")
	if err != nil {
		return nil, &MalformedResourceError{Input: s.Host, Reason: "illegal host domain"}
	}
	return u, nil
}
