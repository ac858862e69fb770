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

	"github.com/tidwall/gjson"
)

// Database addresses the API root of one backend. Constructing it performs
// no network I/O.
type Database struct {
	addr             Address
	conn             *Connection
	allowCrossOrigin bool
}

// Open creates a new database handle from the configuration.
//
// Credentials may come embedded in Config.Host or from Config.Username and
// Config.Password; supplying both fails with ErrDuplicateCredentials rather
// than silently preferring one.
func Open(config *Config) (*Database, error) {
	spec, err := ParseHostSpec(config.Host)
	if err != nil {
		return nil, err
	}

	if spec.HasCredentials() && config.Username != "" {
		return nil, ErrDuplicateCredentials
	}

	username, password := config.Username, config.Password
	if spec.HasCredentials() {
		username, password = spec.Username, spec.Password
	}

	root, err := spec.apiRoot()
	if err != nil {
		return nil, err
	}

	return &Database{
		addr:             newAddress(root, newAuthContext(username, password)),
		conn:             newConnection(config.HTTPClient, config.Logger),
		allowCrossOrigin: config.AllowCrossOrigin,
	}, nil
}

// OpenTable creates a table handle directly, for callers that only ever talk
// to one table.
func OpenTable(config *Config, name string) (*Table, error) {
	db, err := Open(config)
	if err != nil {
		return nil, err
	}
	return db.Table(name)
}

// TableNames fetches the names of all tables the API root exposes, in the
// order the server lists them.
func (db *Database) TableNames(ctx context.Context) ([]string, error) {
	data, err := db.conn.exchange(ctx, "GET", db.addr, nil, 200)
	if err != nil {
		return nil, err
	}

	var names []string
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	return names, nil
}

// Tables fetches all tables of the database as handles.
func (db *Database) Tables(ctx context.Context) ([]*Table, error) {
	names, err := db.TableNames(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		tbl, err := db.Table(name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, tbl)
	}
	return tables, nil
}
