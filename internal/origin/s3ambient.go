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

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// S3AmbientStrategy fetches origins that live in buckets the platform's
// own AWS identity can already read. Storage failures are treated as
// nothing retrieved so the asset fails rather than the worker.
type S3AmbientStrategy struct {
	reader buckets.Reader
}

func NewS3AmbientStrategy(reader buckets.Reader) *S3AmbientStrategy {
	return &S3AmbientStrategy{reader: reader}
}

func (s *S3AmbientStrategy) Kind() assetdb.OriginStrategyKind {
	return assetdb.StrategyS3Ambient
}

func (s *S3AmbientStrategy) LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, _ *assetdb.CustomerOriginStrategy) (*Response, error) {
	ll := logctx.FromContext(ctx)

	src, err := buckets.ParseRegionalised(originURL)
	if err != nil {
		ll.Warn("Origin is not a bucket URI", "assetId", id.String(), "origin", originURL, "error", err)
		return nil, nil
	}

	obj, err := s.reader.GetObject(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ll.Warn("Failed to fetch origin object", "assetId", id.String(), "origin", originURL, "error", err)
		return nil, nil
	}
	if obj == nil {
		ll.Warn("Origin object does not exist", "assetId", id.String(), "origin", originURL)
		return nil, nil
	}

	return &Response{
		Body:          obj.Body,
		ContentType:   obj.ContentType,
		ContentLength: obj.ContentLength,
	}, nil
}
