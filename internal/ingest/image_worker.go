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

package ingest

import (
	"context"
	"os"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// StorageLimitExceededError is the asset-facing error string recorded when
// a storage policy vetoes an ingest.
const StorageLimitExceededError = "StoragePolicy size limit exceeded"

// CompletionStore finalizes assets. *assetdb.Store satisfies it.
type CompletionStore interface {
	UpdateIngestedAsset(ctx context.Context, asset *assetdb.Asset, location *assetdb.ImageLocation, storage *assetdb.ImageStorage) bool
}

// ImageProcessor derives the stored renditions for an image asset and
// fills in the ingestion context's location/storage rows and the asset's
// dimensions. Returning false (or an error) fails the asset but not the
// worker.
type ImageProcessor interface {
	Process(ctx context.Context, ic *IngestionContext) (bool, error)
}

// ImageWorker ingests image-family assets: fetch to disk, process, then
// finalize. Completion always runs, whatever happened before it, so an
// asset can never be left dangling in ingesting state by this worker.
type ImageWorker struct {
	mover           DiskCopier
	processor       ImageProcessor
	store           CompletionStore
	workTemplate    string
	skipPolicyCheck func(customer int) bool
}

func NewImageWorker(mover DiskCopier, processor ImageProcessor, store CompletionStore, workTemplate string, skipPolicyCheck func(customer int) bool) *ImageWorker {
	if skipPolicyCheck == nil {
		skipPolicyCheck = func(int) bool { return false }
	}
	return &ImageWorker{
		mover:           mover,
		processor:       processor,
		store:           store,
		workTemplate:    workTemplate,
		skipPolicyCheck: skipPolicyCheck,
	}
}

// Ingest runs the full image pipeline for one asset. It never returns an
// error: every failure mode is absorbed into the asset's terminal state.
func (w *ImageWorker) Ingest(ctx context.Context, asset *assetdb.Asset, cos *assetdb.CustomerOriginStrategy) Result {
	ctx = logctx.WithAttrs(ctx, "assetId", asset.ID.String())
	ll := logctx.FromContext(ctx)

	workDir := ExpandDestination(w.workTemplate, asset.ID)
	if err := EnsureDir(workDir); err != nil {
		ll.Error("Failed to create working directory", "error", err)
		asset.Error = err.Error()
		w.complete(ctx, asset, nil, nil)
		return ResultFailed
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			ll.Warn("Failed to remove working directory", "dir", workDir, "error", err)
		}
	}()

	afo, err := w.mover.CopyAssetToDisk(ctx, asset, workDir, cos, !w.skipPolicyCheck(asset.ID.Customer))
	if err != nil {
		ll.Error("Failed to copy asset from origin", "origin", asset.Origin, "error", err)
		asset.Error = err.Error()
		w.complete(ctx, asset, nil, nil)
		return ResultFailed
	}

	if afo.FileExceedsAllowance {
		ll.Info("Asset exceeds storage allowance", "size", afo.AssetSize)
		asset.Error = StorageLimitExceededError
		if !w.complete(ctx, asset, nil, nil) {
			return ResultFailed
		}
		return ResultStorageLimitExceeded
	}

	ic := NewIngestionContext(asset).WithAssetFromOrigin(afo)

	processOK, err := w.processor.Process(ctx, ic)
	if err != nil {
		ll.Error("Image processing failed", "error", err)
		if asset.Error == "" {
			asset.Error = err.Error()
		}
		processOK = false
	}

	completionOK := w.complete(ctx, asset, ic.ImageLocation, ic.ImageStorage)
	if processOK && completionOK {
		return ResultSuccess
	}
	return ResultFailed
}

func (w *ImageWorker) complete(ctx context.Context, asset *assetdb.Asset, location *assetdb.ImageLocation, storage *assetdb.ImageStorage) bool {
	ok := w.store.UpdateIngestedAsset(ctx, asset, location, storage)
	if !ok {
		logctx.FromContext(ctx).Error("Failed to finalize asset")
	}
	return ok
}
