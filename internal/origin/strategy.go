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
	"errors"
	"fmt"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
)

var (
	// ErrStrategyMismatch means a strategy was handed a resolution that
	// belongs to a different strategy kind. Always a programming error.
	ErrStrategyMismatch = errors.New("origin strategy kind mismatch")

	// ErrMissingCredentials means a strategy that cannot work anonymously
	// was configured without credentials.
	ErrMissingCredentials = errors.New("origin strategy has no credentials")
)

// Strategy fetches an asset's binary from its origin. Implementations
// return (nil, nil) when the origin yields nothing without a hard failure.
type Strategy interface {
	Kind() assetdb.OriginStrategyKind
	LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, cos *assetdb.CustomerOriginStrategy) (*Response, error)
}

type safeStrategy struct {
	inner Strategy
}

// WithSafetyCheck wraps a strategy so that every load first validates the
// context and that the resolved strategy row matches the implementation's
// kind.
func WithSafetyCheck(inner Strategy) Strategy {
	return &safeStrategy{inner: inner}
}

func (s *safeStrategy) Kind() assetdb.OriginStrategyKind {
	return s.inner.Kind()
}

func (s *safeStrategy) LoadAssetFromOrigin(ctx context.Context, id assetid.ID, originURL string, cos *assetdb.CustomerOriginStrategy) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cos == nil {
		return nil, fmt.Errorf("loading %s: no origin strategy resolved", id)
	}
	if cos.Strategy != s.inner.Kind() {
		return nil, fmt.Errorf("loading %s with %q strategy: %w (got %q)", id, s.inner.Kind(), ErrStrategyMismatch, cos.Strategy)
	}
	return s.inner.LoadAssetFromOrigin(ctx, id, originURL, cos)
}
