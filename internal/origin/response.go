// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package origin fetches asset binaries from customer origins. Each origin
// strategy knows one way of reaching an origin (plain http, basic auth,
// sftp, ambient s3); a resolver picks the strategy for a given origin URL
// from the customer's configured strategy list.
package origin

import "io"

// Response is a successfully opened origin stream. Callers own Body and
// must close it. A nil *Response from a strategy means the origin had
// nothing to give (missing object, auth refused, transport failure) without
// that being a hard error.
type Response struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Retrieved reports whether the response actually carries a stream.
func (r *Response) Retrieved() bool {
	return r != nil && r.Body != nil
}

func (r *Response) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
