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

const getBatchSQL = `
SELECT id, customer, count, completed, errors, submitted, finished
FROM batches
WHERE id = $1
`

// GetBatch loads a single batch row. Returns pgx.ErrNoRows if absent.
func (store *Store) GetBatch(ctx context.Context, id int64) (*Batch, error) {
	var b Batch
	err := store.db.QueryRow(ctx, getBatchSQL, id).Scan(
		&b.ID, &b.Customer, &b.Count, &b.Completed, &b.Errors, &b.Submitted, &b.Finished)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const incrementBatchCompletedSQL = `UPDATE batches SET completed = completed + 1 WHERE id = $1`
const incrementBatchErrorsSQL = `UPDATE batches SET errors = errors + 1 WHERE id = $1`

// updateBatchCounters increments exactly one of completed/errors for the
// asset's batch. A missing batch row does not fail completion; it is noted
// on the asset's error text instead so the asset itself still finalizes.
func (store *Store) updateBatchCounters(ctx context.Context, asset *Asset) error {
	var exists bool
	err := store.db.QueryRow(ctx, `SELECT true FROM batches WHERE id = $1`, *asset.Batch).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		logctx.FromContext(ctx).Warn("Batch not found for asset",
			slog.Int64("batch", *asset.Batch), slog.String("assetId", asset.ID.String()))
		asset.Error = "Unable to find batch associated with image"
		return nil
	}
	if err != nil {
		return err
	}

	sql := incrementBatchCompletedSQL
	if asset.Error != "" {
		sql = incrementBatchErrorsSQL
	}
	_, err = store.db.Exec(ctx, sql, *asset.Batch)
	return err
}

const tryFinishBatchSQL = `
UPDATE batches SET finished = now()
WHERE id = $1 AND finished IS NULL AND completed + errors = count
`

// tryFinishBatch sets the batch's finished timestamp if and only if every
// member has completed. A single conditional UPDATE keeps this correct under
// concurrent completions from other workers and hosts; read-then-write would
// race.
func (store *Store) tryFinishBatch(ctx context.Context, batchID int64) error {
	_, err := store.db.Exec(ctx, tryFinishBatchSQL, batchID)
	return err
}
