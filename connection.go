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
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// Connection executes single HTTP exchanges against resource addresses.
// It holds no session state; every exchange is independently authenticated.
type Connection struct {
	http   HTTPClient
	logger *slog.Logger
}

func newConnection(client HTTPClient, logger *slog.Logger) *Connection {
	if client == nil {
		client = NewHTTPClient()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connection{http: client, logger: logger}
}

// requestBody pairs an encoded payload with its content type.
type requestBody struct {
	contentType string
	payload     []byte
}

// exchange performs one request/response round trip. The response body is
// read fully into memory. A response status outside expect fails with an
// UnexpectedStatusError carrying the status and raw body.
func (conn *Connection) exchange(ctx context.Context, method string, addr Address, body *requestBody, expect ...int) ([]byte, error) {
	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("Accept-Charset", "utf-8")
	if addr.auth.present() {
		header.Set("Authorization", addr.auth.credential)
	}

	var payload []byte
	if body != nil {
		header.Set("Content-Type", body.contentType)
		payload = body.payload
	}

	start := time.Now()
	resp, err := conn.http.Do(ctx, method, addr.URL(), header, payload)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	conn.logger.DebugContext(ctx, "exchange",
		"method", method,
		"url", addr.String(),
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if !slices.Contains(expect, resp.StatusCode) {
		return nil, &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       data,
		}
	}
	return data, nil
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
