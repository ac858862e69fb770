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
	"testing"

	"github.com/stretchr/testify/require"
)

func mustAddress(t *testing.T, raw string) Address {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return newAddress(u, authContext{})
}

func TestAddressDescend(t *testing.T) {
	root := mustAddress(t, "http://www.example.com/api/")

	tbl, err := root.Descend("parts")
	require.NoError(t, err)
	require.Equal(t, "http://www.example.com/api/parts/", tbl.String())

	row, err := tbl.Descend("3")
	require.NoError(t, err)
	require.Equal(t, "http://www.example.com/api/parts/3/", row.String())
}

func TestAddressDescendBySegmentOrJoined(t *testing.T) {
	root := mustAddress(t, "http://www.example.com/api/")

	a, err := root.Descend("a")
	require.NoError(t, err)
	b, err := a.Descend("b")
	require.NoError(t, err)

	joined, err := root.Descend("a/b/")
	require.NoError(t, err)
	require.Equal(t, joined.String(), b.String())
}

func TestAddressBaseNormalization(t *testing.T) {
	// a base without the trailing slash would silently drop its last
	// segment on relative resolution
	root := mustAddress(t, "http://www.example.com/api")

	tbl, err := root.Descend("parts")
	require.NoError(t, err)
	require.Equal(t, "http://www.example.com/api/parts/", tbl.String())
}

func TestAddressWithRawQuery(t *testing.T) {
	root := mustAddress(t, "http://www.example.com/api/parts/")

	filtered := root.WithRawQuery("qty__gt=50")
	require.Equal(t, "http://www.example.com/api/parts/?qty__gt=50", filtered.String())
	// the receiver is untouched
	require.Equal(t, "http://www.example.com/api/parts/", root.String())

	require.Equal(t, root.String(), root.WithRawQuery("").String())
}

func TestAddressSameOrigin(t *testing.T) {
	root := mustAddress(t, "http://www.example.com:8000/api/")

	same, err := url.Parse("http://www.example.com:8000/media/x.png")
	require.NoError(t, err)
	require.True(t, root.sameOrigin(same))

	for _, raw := range []string{
		"http://www.example.com/media/x.png", // different port
		"https://www.example.com:8000/x",     // different scheme
		"http://evil.example.org:8000/x",
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		require.False(t, root.sameOrigin(u), "url %q", raw)
	}
}
