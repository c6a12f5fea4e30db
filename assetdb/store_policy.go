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
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/mediarunner/internal/logctx"
)

const storagePolicyAllowanceSQL = `
SELECT cs.total_size_of_stored_images, sp.maximum_total_size_bytes
FROM customer_storages cs
JOIN storage_policies sp ON sp.id = cs.storage_policy
WHERE cs.customer = $1
`

// VerifyStoragePolicyBySize reports whether the customer can store
// candidateSize additional bytes within their policy allowance. A copy that
// lands exactly on the allowance is accepted. Customers with no storage
// record are allowed through with a warning; quota enforcement for them is
// an admin-side setup problem, not an ingest failure.
func (store *Store) VerifyStoragePolicyBySize(ctx context.Context, customer int, candidateSize int64) (bool, error) {
	var stored, maximum int64
	err := store.db.QueryRow(ctx, storagePolicyAllowanceSQL, customer).Scan(&stored, &maximum)
	if errors.Is(err, pgx.ErrNoRows) {
		logctx.FromContext(ctx).Warn("No storage record for customer, skipping policy check",
			slog.Int("customer", customer))
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return stored+candidateSize <= maximum, nil
}
