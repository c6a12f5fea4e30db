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
	"github.com/cardinalhq/mediarunner/internal/credentials"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// CredentialGetter resolves basic credentials for an origin strategy row.
// *credentials.Store satisfies it.
type CredentialGetter interface {
	Get(ctx context.Context, cos *assetdb.CustomerOriginStrategy) (*credentials.BasicCredentials, error)
}

// BasicHTTPStrategy fetches origins over http(s) with basic auth from the
// strategy's configured credentials. A strategy row without credentials
// retrieves nothing; the request is never sent unauthenticated.
type BasicHTTPStrategy struct {
	client *http.Client
	creds  CredentialGetter
}

func NewBasicHTTPStrategy(client *http.Client, creds CredentialGetter) *BasicHTTPStrategy {
	if client == nil {
		client = http.DefaultClient
	}
	return &BasicHTTPStrategy{client: client, creds: creds}
}

func (s *BasicHTTPStrategy) Kind() assetdb.OriginStrategyKind {
	return assetdb.StrategyBasicHTTP
}

func (s *BasicHTTPStrategy) LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, cos *assetdb.CustomerOriginStrategy) (*Response, error) {
	bc, err := s.creds.Get(ctx, cos)
	if err != nil {
		return nil, fmt.Errorf("resolving credentials for strategy %s: %w", cos.ID, err)
	}
	if bc == nil {
		logctx.FromContext(ctx).Warn("Basic-auth strategy has no credentials, not calling origin",
			"assetId", id.String(), "strategyId", cos.ID)
		return nil, nil
	}
	return fetchHTTP(ctx, s.client, id, originURL, func(req *http.Request) {
		req.SetBasicAuth(bc.User, bc.Password)
	})
}
