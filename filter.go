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
	"net/url"
	"regexp"
	"strings"
)

// filterPattern matches one comparison expression: "<field><op><value>".
// The value is the remainder of the string, whitespace included; quoting is
// not supported. Two-character operators come first in the alternation so
// ">=" is not consumed as ">" followed by a value starting with "=".
var filterPattern = regexp.MustCompile(`^(?P<field>\w+)\s?(?P<sym>==|>=|<=|[=><])\s?(?P<value>.+)$`)

// operator symbol to query-parameter suffix
var filterSuffixes = map[string]string{
	"=":  "",
	"==": "",
	">":  "__gt",
	">=": "__gte",
	"<":  "__lt",
	"<=": "__lte",
}

// CompileFilters compiles human-written comparison expressions into the
// backend's query-parameter syntax, for example "qty>50" into "qty__gt=50".
// Multiple expressions are joined with "&" and intersect (AND). Expressions
// that do not match the grammar are silently dropped; an empty result means
// no filtering.
func CompileFilters(filters ...string) string {
	var parts []string
	for _, f := range filters {
		m := filterPattern.FindStringSubmatch(f)
		if m == nil {
			continue
		}

		field := queryEscape(m[filterPattern.SubexpIndex("field")])
		value := queryEscape(m[filterPattern.SubexpIndex("value")])
		field += filterSuffixes[m[filterPattern.SubexpIndex("sym")]]

		parts = append(parts, field+"="+value)
	}
	return strings.Join(parts, "&")
}

// queryEscape percent-encodes a query component, with spaces as %20 rather
// than "+".
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
