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
	"regexp"
	"strconv"
	"strings"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// Synthetic strategy ids, distinct from any DB row.
const (
	DefaultStrategyID = "_default_"
	PortalStrategyID  = "_default_portal_"
)

// StrategyLister returns a customer's configured origin strategies in
// priority order. *assetdb.Store satisfies it.
type StrategyLister interface {
	GetCustomerOriginStrategies(ctx context.Context, customer int) ([]assetdb.CustomerOriginStrategy, error)
}

// Resolver picks the origin strategy for an origin URL: the first of the
// customer's configured strategies whose regex matches, then the synthetic
// portal-uploads strategy, then the catch-all default. Resolution never
// fails to produce a strategy.
type Resolver struct {
	lister StrategyLister

	// portalRegexTemplate is a regex with a {customer} placeholder matching
	// URIs in the portal upload bucket, eg
	// s3://portal-uploads/{customer}/.*
	portalRegexTemplate string
}

func NewResolver(lister StrategyLister, portalRegexTemplate string) *Resolver {
	return &Resolver{lister: lister, portalRegexTemplate: portalRegexTemplate}
}

// ResolveStrategy returns the strategy to use for originURL.
func (r *Resolver) ResolveStrategy(ctx context.Context, customer int, originURL string) (*assetdb.CustomerOriginStrategy, error) {
	ll := logctx.FromContext(ctx)

	strategies, err := r.lister.GetCustomerOriginStrategies(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("listing origin strategies for customer %d: %w", customer, err)
	}

	if r.portalRegexTemplate != "" {
		// portal uploads already live in a platform bucket, so the copy
		// optimization applies to them
		strategies = append(strategies, assetdb.CustomerOriginStrategy{
			ID:        PortalStrategyID,
			Customer:  customer,
			Regex:     strings.ReplaceAll(r.portalRegexTemplate, "{customer}", strconv.Itoa(customer)),
			Strategy:  assetdb.StrategyS3Ambient,
			Optimised: true,
		})
	}

	for i := range strategies {
		cos := &strategies[i]
		re, err := regexp.Compile("(?i)" + cos.Regex)
		if err != nil {
			ll.Warn("Skipping origin strategy with invalid regex",
				"customer", customer, "strategyId", cos.ID, "regex", cos.Regex, "error", err)
			continue
		}
		if re.MatchString(originURL) {
			return cos, nil
		}
	}

	return &assetdb.CustomerOriginStrategy{
		ID:       DefaultStrategyID,
		Customer: customer,
		Strategy: assetdb.StrategyDefault,
	}, nil
}
