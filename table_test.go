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
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestDatabase spins up a server double and opens a database against it.
func newTestDatabase(t *testing.T, handler http.Handler) *Database {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := Open(&Config{
		Host:     srv.URL,
		Username: "user",
		Password: "passw0rd",
	})
	require.NoError(t, err)
	return db
}

func newTestTable(t *testing.T, handler http.Handler) *Table {
	tbl, err := newTestDatabase(t, handler).Table("parts")
	require.NoError(t, err)
	return tbl
}

func TestTableList(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/parts/", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Contains(t, r.Header.Get("Authorization"), "Basic ")
		fmt.Fprint(w, `[{"id":1,"name":"bolt"},{"id":2,"name":"nut"}]`)
	}))

	records, err := tbl.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	name, err := records[0].String("name")
	require.NoError(t, err)
	require.Equal(t, "bolt", name)

	pk, ok := records[1].PrimaryKey()
	require.True(t, ok)
	require.Equal(t, "2", pk)
}

func TestTableListEmpty(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	records, err := tbl.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestTableGet(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/parts/3/", r.URL.Path)
		fmt.Fprint(w, `{"id":3,"name":"washer"}`)
	}))

	record, err := tbl.Get(context.Background(), "3")
	require.NoError(t, err)

	name, err := record.String("name")
	require.NoError(t, err)
	require.Equal(t, "washer", name)
}

func TestTableGetNotFound(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Not found."}`)
	}))

	_, err := tbl.Get(context.Background(), "404")
	require.Error(t, err)
	require.True(t, IsNotFound(err))

	var statusErr *UnexpectedStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "Not found.", statusErr.Detail())
}

func TestTableQuery(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/parts/", r.URL.Path)
		require.Equal(t, "pri__lte=2.8&qty__gt=50", r.URL.RawQuery)
		fmt.Fprint(w, `[{"id":1}]`)
	}))

	records, err := tbl.Query(context.Background(), "pri<=2.8", "garbage!!", "qty>50")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestTableSchema(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodOptions, r.Method)
		fmt.Fprint(w, `{
			"name": "Part List",
			"actions": {"POST": {
				"id":   {"type": "integer", "required": false, "read_only": true, "label": "ID"},
				"name": {"type": "string", "required": true, "read_only": false, "label": "Name", "max_length": 42}
			}}
		}`)
	}))

	schema, err := tbl.Schema(context.Background())
	require.NoError(t, err)
	require.Len(t, schema, 2)

	require.Equal(t, "id", schema[0].Name)
	require.Equal(t, IntegerFieldType, schema[0].Type)
	require.True(t, schema[0].ReadOnly)

	name := schema.Field("name")
	require.NotNil(t, name)
	require.Equal(t, StringFieldType, name.Type)
	require.True(t, name.Required)
	require.Equal(t, 42, name.MaxLength)
	require.Nil(t, schema.Field("absent"))
}

func TestTableAdd(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/parts/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		require.Equal(t, "bolt", r.FormValue("name"))
		require.Equal(t, "120", r.FormValue("qty"))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":5,"name":"bolt","qty":120}`)
	}))

	draft := NewRecord()
	draft.SetString("name", "bolt")
	draft.SetInt("qty", 120)

	created, err := tbl.Add(context.Background(), draft)
	require.NoError(t, err)

	pk, ok := created.PrimaryKey()
	require.True(t, ok)
	require.Equal(t, "5", pk)

	// the draft is untouched; the caller rebinds to the returned record
	_, ok = draft.PrimaryKey()
	require.False(t, ok)
}

func TestTableAddWithImage(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))

		files := r.MultipartForm.File["photo"]
		require.Len(t, files, 1)
		require.Equal(t, "front.png", files[0].Filename)
		require.Equal(t, "image/png", files[0].Header.Get("Content-Type"))

		fmt.Fprint(w, `{"id":6,"photo":"http://www.example.com/media/front.png"}`)
	}))

	draft := NewRecord()
	draft.SetImage("photo", "front.png", []byte{0x89, 0x50, 0x4e, 0x47})

	_, err := tbl.Add(context.Background(), draft)
	require.NoError(t, err)
}

func TestTableUpdatePartial(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/parts/5/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		// only the fields present in the record travel
		require.Len(t, r.MultipartForm.Value, 1)
		require.Equal(t, "nut", r.FormValue("name"))

		fmt.Fprint(w, `{"id":5,"name":"nut","qty":120}`)
	}))

	patch := NewRecord()
	patch.SetString("name", "nut")

	updated, err := tbl.Update(context.Background(), "5", patch, false)
	require.NoError(t, err)

	qty, err := updated.Int("qty")
	require.NoError(t, err)
	require.Equal(t, int64(120), qty)
}

func TestTableUpdateOverwrite(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, r.ParseMultipartForm(32<<20))
		require.Len(t, r.MultipartForm.Value, 2)
		fmt.Fprint(w, `{"id":5,"name":"nut","qty":60}`)
	}))

	row := NewRecord()
	row.SetString("name", "nut")
	row.SetInt("qty", 60)

	_, err := tbl.Update(context.Background(), "5", row, true)
	require.NoError(t, err)
}

func TestTableUpdateRecord(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/api/parts/7/", r.URL.Path)
		fmt.Fprint(w, `{"id":7,"qty":1}`)
	}))

	row, err := ParseRecord([]byte(`{"id":7,"qty":1}`))
	require.NoError(t, err)
	_, err = tbl.UpdateRecord(context.Background(), row)
	require.NoError(t, err)

	_, err = tbl.UpdateRecord(context.Background(), NewRecord())
	require.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestTableDeleteAggregation(t *testing.T) {
	var deleted []string
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		deleted = append(deleted, r.URL.Path)
		if r.URL.Path == "/api/parts/2/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	ok, err := tbl.Delete(context.Background(), "1", "2", "3")
	require.NoError(t, err)
	require.False(t, ok)
	// no early abort: every key is attempted
	require.Equal(t, []string{"/api/parts/1/", "/api/parts/2/", "/api/parts/3/"}, deleted)
}

func TestTableDeleteAll204(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	ok, err := tbl.Delete(context.Background(), "1", "2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRecordFollow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parts/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id":1,"maker":"http://%s/api/makers/9/"}]`, r.Host)
	})
	mux.HandleFunc("/api/makers/9/", func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.Header.Get("Authorization"), "Basic ")
		fmt.Fprint(w, `{"id":9,"name":"acme"}`)
	})
	tbl := newTestTable(t, mux)

	records, err := tbl.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	maker, err := records[0].Follow(context.Background(), "maker")
	require.NoError(t, err)
	name, err := maker.String("name")
	require.NoError(t, err)
	require.Equal(t, "acme", name)
}

func TestRecordFollowCrossOrigin(t *testing.T) {
	tbl := newTestTable(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"maker":"http://evil.example.org/api/makers/9/"}]`)
	}))

	records, err := tbl.List(context.Background())
	require.NoError(t, err)

	_, err = records[0].Follow(context.Background(), "maker")
	require.ErrorIs(t, err, ErrCrossOrigin)
}

func TestRecordFetchImageCaching(t *testing.T) {
	var fetches int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/parts/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id":1,"photo":"http://%s/media/front.png"}]`, r.Host)
	})
	mux.HandleFunc("/media/front.png", func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_, _ = w.Write([]byte{1, 2, 3})
	})
	tbl := newTestTable(t, mux)

	records, err := tbl.List(context.Background())
	require.NoError(t, err)

	data, err := records[0].FetchImage(context.Background(), "photo")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)

	// second read is served from the attachment side table
	data, err = records[0].FetchImage(context.Background(), "photo")
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, data)
	require.Equal(t, 1, fetches)
}
