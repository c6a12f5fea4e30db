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
	"log/slog"
	"time"

	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

const getAssetSQL = `
SELECT customer, space, name, origin, media_type, width, height, duration, batch, ingesting, finished, error
FROM assets
WHERE customer = $1 AND space = $2 AND name = $3
`

// GetAsset loads a single asset row. Returns pgx.ErrNoRows if absent.
func (store *Store) GetAsset(ctx context.Context, id assetid.ID) (*Asset, error) {
	var a Asset
	err := store.db.QueryRow(ctx, getAssetSQL, id.Customer, id.Space, id.Name).Scan(
		&a.ID.Customer, &a.ID.Space, &a.ID.Name, &a.Origin, &a.MediaType,
		&a.Width, &a.Height, &a.Duration, &a.Batch, &a.Ingesting, &a.Finished, &a.Error)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateIngestedAsset is the single authoritative finalize path for an
// ingested asset. The asset row, its derived location/storage rows, and the
// batch counters are written in one transaction; any failure rolls the whole
// thing back and reports false. Callers treat false as retry-safe failure.
func (store *Store) UpdateIngestedAsset(ctx context.Context, asset *Asset, location *ImageLocation, storage *ImageStorage) bool {
	ll := logctx.FromContext(ctx)

	err := store.execTx(ctx, func(s *Store) error {
		// Batch first: an orphaned batch reference sets asset.Error, which
		// must be in place before the asset row is written.
		if asset.HasBatch() {
			if err := s.updateBatchCounters(ctx, asset); err != nil {
				return err
			}
		}

		if err := s.updateAssetRow(ctx, asset); err != nil {
			return err
		}
		if location != nil {
			if err := s.upsertImageLocation(ctx, location); err != nil {
				return err
			}
		}
		if storage != nil {
			if err := s.upsertImageStorage(ctx, storage); err != nil {
				return err
			}
		}

		if asset.HasBatch() {
			if err := s.tryFinishBatch(ctx, *asset.Batch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		ll.Error("Error finalising asset in DB",
			slog.String("assetId", asset.ID.String()), slog.Any("error", err))
		return false
	}

	if storage != nil {
		store.increaseCustomerStorage(ctx, storage)
	}
	return true
}

const updateAssetRowSQL = `
UPDATE assets
SET width = $4, height = $5, duration = $6, error = $7, ingesting = false, finished = $8
WHERE customer = $1 AND space = $2 AND name = $3
`

const updateAssetRowWithMediaTypeSQL = `
UPDATE assets
SET width = $4, height = $5, duration = $6, error = $7, ingesting = false, finished = $8,
    media_type = $9
WHERE customer = $1 AND space = $2 AND name = $3
`

// updateAssetRow writes the fields ingestion owns. MediaType is only written
// when ingestion produced a real value, so a placeholder never clobbers a
// previously-known type.
func (store *Store) updateAssetRow(ctx context.Context, asset *Asset) error {
	now := time.Now().UTC()
	asset.MarkFinished(now)

	id := asset.ID
	if asset.MediaType != "" && asset.MediaType != MediaTypeUnknown {
		_, err := store.db.Exec(ctx, updateAssetRowWithMediaTypeSQL,
			id.Customer, id.Space, id.Name,
			asset.Width, asset.Height, asset.Duration, asset.Error, now, asset.MediaType)
		return err
	}
	_, err := store.db.Exec(ctx, updateAssetRowSQL,
		id.Customer, id.Space, id.Name,
		asset.Width, asset.Height, asset.Duration, asset.Error, now)
	return err
}

const upsertImageLocationSQL = `
INSERT INTO image_locations (customer, space, name, s3, nas)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (customer, space, name)
DO UPDATE SET s3 = EXCLUDED.s3, nas = EXCLUDED.nas
`

func (store *Store) upsertImageLocation(ctx context.Context, location *ImageLocation) error {
	id := location.ID
	_, err := store.db.Exec(ctx, upsertImageLocationSQL,
		id.Customer, id.Space, id.Name, location.S3, location.Nas)
	return err
}

const upsertImageStorageSQL = `
INSERT INTO image_storages (customer, space, name, size, thumbnail_size, last_checked)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (customer, space, name)
DO UPDATE SET size = EXCLUDED.size, thumbnail_size = EXCLUDED.thumbnail_size,
    last_checked = EXCLUDED.last_checked
`

func (store *Store) upsertImageStorage(ctx context.Context, storage *ImageStorage) error {
	id := storage.ID
	lastChecked := storage.LastChecked
	if lastChecked.IsZero() {
		lastChecked = time.Now().UTC()
	}
	_, err := store.db.Exec(ctx, upsertImageStorageSQL,
		id.Customer, id.Space, id.Name, storage.Size, storage.ThumbnailSize, lastChecked)
	return err
}

const increaseCustomerStorageSQL = `
UPDATE customer_storages
SET total_size_of_stored_images = total_size_of_stored_images + $2,
    total_size_of_thumbnails = total_size_of_thumbnails + $3
WHERE customer = $1
`

// increaseCustomerStorage bumps the customer's aggregate totals after a
// successful completion. Best effort: a failure here is logged, not
// propagated, as the asset itself is already finalized.
func (store *Store) increaseCustomerStorage(ctx context.Context, storage *ImageStorage) {
	tag, err := store.db.Exec(ctx, increaseCustomerStorageSQL,
		storage.ID.Customer, storage.Size, storage.ThumbnailSize)
	if err != nil {
		logctx.FromContext(ctx).Error("Failed to update customer storage totals",
			slog.Int("customer", storage.ID.Customer), slog.Any("error", err))
		return
	}
	if tag.RowsAffected() == 0 {
		logctx.FromContext(ctx).Warn("No customer storage row to update",
			slog.Int("customer", storage.ID.Customer))
	}
}
