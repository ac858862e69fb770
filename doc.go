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

/*
Package tablemate provides a lightweight and easy-to-use client for tabular REST backends
that follow the /api/<table>/ resource convention with HTTP Basic authentication.

# Database

Use Open to create a database handle. This is the major entrance to construct structs
for interacting with the backend. Opening a database performs no network I/O:

	db, err := tablemate.Open(&tablemate.Config{
		Host: "user:passw0rd@www.example.com:8000",
	})

# Tables and Records

Address a table by name and read or write records:

	tbl, err := db.Table("parts")
	if err != nil {
		return err
	}

	records, err := tbl.Query(ctx, "qty>50", "pri<=2.8")
	if err != nil {
		return err
	}
	for _, r := range records {
		name, _ := r.String("name")
		fmt.Println(name)
	}

Records are schema-less ordered field bags. Build one locally and add it to a table;
Add returns a fresh record hydrated from the server response, so rebind your variable
to pick up server-assigned fields such as the primary key:

	draft := tablemate.NewRecord()
	draft.SetString("name", "bolt")
	draft.SetInt("qty", 120)
	created, err := tbl.Add(ctx, draft)

Every operation is one synchronous round trip. The SDK spawns no goroutines, keeps no
session state, and never retries on its own.
*/
package tablemate
