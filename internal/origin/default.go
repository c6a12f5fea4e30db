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

package origin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// DefaultStrategy fetches origins over plain unauthenticated http(s).
// Transport failures and non-2xx responses are treated as nothing
// retrieved, not hard errors, so a flaky origin fails the asset rather
// than the worker.
type DefaultStrategy struct {
	client *http.Client
}

// NewDefaultStrategy builds the plain-http strategy. client may be nil to
// use http.DefaultClient.
func NewDefaultStrategy(client *http.Client) *DefaultStrategy {
	if client == nil {
		client = http.DefaultClient
	}
	return &DefaultStrategy{client: client}
}

func (s *DefaultStrategy) Kind() assetdb.OriginStrategyKind {
	return assetdb.StrategyDefault
}

func (s *DefaultStrategy) LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, _ *assetdb.CustomerOriginStrategy) (*Response, error) {
	return fetchHTTP(ctx, s.client, id, originURL, nil)
}

func fetchHTTP(ctx context.Context, client *http.Client, id assetid.ID, originURL string, auth func(*http.Request)) (*Response, error) {
	ll := logctx.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, originURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for origin %s: %w", originURL, err)
	}
	if auth != nil {
		auth(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ll.Warn("Origin request failed", "assetId", id.String(), "origin", originURL, "error", err)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		ll.Warn("Origin returned non-success status", "assetId", id.String(), "origin", originURL, "status", resp.StatusCode)
		return nil, nil
	}

	return &Response{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}
