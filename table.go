package tablemate

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"
)

var tableNamePattern = regexp.MustCompile(`^[\w-]+$`)

// Table addresses one table's collection resource. It owns no mutable state
// beyond its address; constructing it performs no network I/O.
type Table struct {
	db   *Database
	name string
	addr Address
}

// Table derives a handle for the named table. The database's credentials are
// copied into the handle by value.
func (db *Database) Table(name string) (*Table, error) {
	if !tableNamePattern.MatchString(name) {
		return nil, &MalformedResourceError{Input: name, Reason: "not a valid table name"}
	}
	addr, err := db.addr.Descend(name)
	if err != nil {
		return nil, err
	}
	return &Table{db: db, name: name, addr: addr}, nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Database returns the database this table belongs to.
func (t *Table) Database() *Database {
	return t.db
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{%s@%s}", t.name, t.addr.URL().Host)
}

// hydrateList parses a JSON array response into records carrying a
// back-reference to this table.
func (t *Table) hydrateList(data []byte) ([]*Record, error) {
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("expected a JSON array, got %s", doc.Type)
	}

	records := make([]*Record, 0)
	doc.ForEach(func(_, value gjson.Result) bool {
		records = append(records, hydrateRecord(t, value))
		return true
	})
	return records, nil
}

// List fetches every record of the table. An empty table yields an empty
// slice, not an error.
func (t *Table) List(ctx context.Context) ([]*Record, error) {
	data, err := t.db.conn.exchange(ctx, "GET", t.addr, nil, 200)
	if err != nil {
		return nil, err
	}
	return t.hydrateList(data)
}

// Get fetches one record by its primary key. A missing key fails with an
// UnexpectedStatusError for which IsNotFound returns true.
func (t *Table) Get(ctx context.Context, key string) (*Record, error) {
	addr, err := t.addr.Descend(key)
	if err != nil {
		return nil, err
	}
	data, err := t.db.conn.exchange(ctx, "GET", addr, nil, 200)
	if err != nil {
		return nil, err
	}
	return hydrateRecord(t, gjson.ParseBytes(data)), nil
}

// Query fetches the records matching every given filter expression, for
// example Query(ctx, "pri<=2.8", "qty>50"). Malformed expressions are
// dropped silently; with no surviving expression Query behaves like List.
func (t *Table) Query(ctx context.Context, filters ...string) ([]*Record, error) {
	addr := t.addr.WithRawQuery(CompileFilters(filters...))
	data, err := t.db.conn.exchange(ctx, "GET", addr, nil, 200)
	if err != nil {
		return nil, err
	}
	return t.hydrateList(data)
}

// Schema fetches the table's field descriptions from the create action of an
// OPTIONS response. Nothing is validated client-side.
func (t *Table) Schema(ctx context.Context) (Schema, error) {
	data, err := t.db.conn.exchange(ctx, "OPTIONS", t.addr, nil, 200)
	if err != nil {
		return nil, err
	}
	return parseSchema(data)
}

// Add creates one record and returns a fresh record hydrated from the server
// response, including server-assigned fields such as the primary key. The
// argument is left untouched; rebind your variable to keep working with the
// persisted row.
func (t *Table) Add(ctx context.Context, record *Record) (*Record, error) {
	body, err := record.toRequestBody()
	if err != nil {
		return nil, err
	}
	data, err := t.db.conn.exchange(ctx, "POST", t.addr, body, 200, 201)
	if err != nil {
		return nil, err
	}
	return hydrateRecord(t, gjson.ParseBytes(data)), nil
}

// AddAll creates records one by one, stopping at the first failure. It
// returns the created records in argument order.
func (t *Table) AddAll(ctx context.Context, records ...*Record) ([]*Record, error) {
	created := make([]*Record, 0, len(records))
	for _, record := range records {
		c, err := t.Add(ctx, record)
		if err != nil {
			return created, err
		}
		created = append(created, c)
	}
	return created, nil
}

// Update rewrites the record stored under key and returns the updated row.
//
// With overwrite set, the whole row is replaced (PUT) and the server rejects
// the write when a required field is missing; the client does not check.
// Without it, only the fields present in record are merged (PATCH).
func (t *Table) Update(ctx context.Context, key string, record *Record, overwrite bool) (*Record, error) {
	method := "PATCH"
	if overwrite {
		method = "PUT"
	}

	addr, err := t.addr.Descend(key)
	if err != nil {
		return nil, err
	}
	body, err := record.toRequestBody()
	if err != nil {
		return nil, err
	}
	data, err := t.db.conn.exchange(ctx, method, addr, body, 200)
	if err != nil {
		return nil, err
	}
	return hydrateRecord(t, gjson.ParseBytes(data)), nil
}

// UpdateRecord merges the record into the row addressed by its own primary
// key. A record without a primary key fails with ErrNoPrimaryKey.
func (t *Table) UpdateRecord(ctx context.Context, record *Record) (*Record, error) {
	pk, ok := record.PrimaryKey()
	if !ok {
		return nil, ErrNoPrimaryKey
	}
	return t.Update(ctx, pk, record, false)
}

// Delete removes the rows stored under the given keys, one DELETE per key.
// Every key is attempted even after a failure; the boolean reports whether
// all deletes came back 204 No Content. Transport-level failures are
// additionally joined into the returned error.
func (t *Table) Delete(ctx context.Context, keys ...string) (bool, error) {
	ok := true
	var errs []error

	for _, key := range keys {
		addr, err := t.addr.Descend(key)
		if err != nil {
			ok = false
			errs = append(errs, err)
			continue
		}

		_, err = t.db.conn.exchange(ctx, "DELETE", addr, nil, 204)
		if err == nil {
			continue
		}

		ok = false
		var statusErr *UnexpectedStatusError
		if !errors.As(err, &statusErr) {
			errs = append(errs, err)
		}
	}
	return ok, errors.Join(errs...)
}
