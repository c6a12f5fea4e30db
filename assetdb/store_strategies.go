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

package assetdb

import (
	"context"
	"errors"

	"github.com/jellydator/ttlcache/v3"
)

type customerStrategyCacheValue struct {
	rows []CustomerOriginStrategy
	err  error
}

// GetCustomerOriginStrategies returns the customer's configured origin
// strategies ordered by precedence. Results (including errors) are cached
// for the cache TTL; concurrent refills for the same customer are tolerated,
// last writer wins.
func (store *Store) GetCustomerOriginStrategies(ctx context.Context, customer int) ([]CustomerOriginStrategy, error) {
	loader := ttlcache.LoaderFunc[int, customerStrategyCacheValue](
		func(cache *ttlcache.Cache[int, customerStrategyCacheValue], key int) *ttlcache.Item[int, customerStrategyCacheValue] {
			rows, err := store.GetCustomerOriginStrategiesUncached(ctx, key)
			item := cache.Set(key, customerStrategyCacheValue{
				rows: rows,
				err:  err,
			}, ttlcache.DefaultTTL)
			return item
		},
	)
	v := store.customerStrategyCache.Get(customer, ttlcache.WithLoader(loader))
	if v != nil {
		return v.Value().rows, v.Value().err
	}
	return nil, errors.New("failed to get customer origin strategies from cache")
}

const getCustomerOriginStrategiesSQL = `
SELECT id, customer, regex, strategy, credentials, optimised, ordering
FROM customer_origin_strategies
WHERE customer = $1
ORDER BY ordering, id
`

func (store *Store) GetCustomerOriginStrategiesUncached(ctx context.Context, customer int) ([]CustomerOriginStrategy, error) {
	rows, err := store.db.Query(ctx, getCustomerOriginStrategiesSQL, customer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []CustomerOriginStrategy
	for rows.Next() {
		var cos CustomerOriginStrategy
		if err := rows.Scan(&cos.ID, &cos.Customer, &cos.Regex, &cos.Strategy, &cos.Credentials,
			&cos.Optimised, &cos.Ordering); err != nil {
			return nil, err
		}
		ret = append(ret, cos)
	}
	return ret, rows.Err()
}
