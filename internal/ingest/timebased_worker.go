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

// BucketCopier is the part of BucketMover the timebased worker needs.
type BucketCopier interface {
	CopyAssetToTranscodeInput(ctx context.Context, asset *assetdb.Asset, workDir string, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error)
}

// TranscodeSubmitter hands a staged timebased asset to the external
// transcoder. *transcode.Wrapper satisfies it.
type TranscodeSubmitter interface {
	InitiateTranscode(ctx context.Context, ic *IngestionContext) error
}

// TimebasedWorker ingests audio/video assets: stage the binary in the
// transcode input bucket and submit a transcode job. On successful
// submission the asset is NOT finalized; it stays in ingesting state until
// the transcoder's completion event arrives. Every failure path finalizes
// immediately.
type TimebasedWorker struct {
	mover           BucketCopier
	submitter       TranscodeSubmitter
	store           CompletionStore
	workTemplate    string
	skipPolicyCheck func(customer int) bool
}

func NewTimebasedWorker(mover BucketCopier, submitter TranscodeSubmitter, store CompletionStore, workTemplate string, skipPolicyCheck func(customer int) bool) *TimebasedWorker {
	if skipPolicyCheck == nil {
		skipPolicyCheck = func(int) bool { return false }
	}
	return &TimebasedWorker{
		mover:           mover,
		submitter:       submitter,
		store:           store,
		workTemplate:    workTemplate,
		skipPolicyCheck: skipPolicyCheck,
	}
}

// Ingest runs the timebased pipeline for one asset. Like the image worker
// it never returns an error.
func (w *TimebasedWorker) Ingest(ctx context.Context, asset *assetdb.Asset, cos *assetdb.CustomerOriginStrategy) Result {
	ctx = logctx.WithAttrs(ctx, "assetId", asset.ID.String())
	ll := logctx.FromContext(ctx)

	workDir := ExpandDestination(w.workTemplate, asset.ID)
	if err := EnsureDir(workDir); err != nil {
		ll.Error("Failed to create working directory", "error", err)
		asset.Error = err.Error()
		w.complete(ctx, asset)
		return ResultFailed
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			ll.Warn("Failed to remove working directory", "dir", workDir, "error", err)
		}
	}()

	afo, err := w.mover.CopyAssetToTranscodeInput(ctx, asset, workDir, cos, !w.skipPolicyCheck(asset.ID.Customer))
	if err != nil {
		ll.Error("Failed to copy asset to transcode input", "origin", asset.Origin, "error", err)
		asset.Error = err.Error()
		w.complete(ctx, asset)
		return ResultFailed
	}

	if afo.FileExceedsAllowance {
		ll.Info("Asset exceeds storage allowance", "size", afo.AssetSize)
		asset.Error = StorageLimitExceededError
		if !w.complete(ctx, asset) {
			return ResultFailed
		}
		return ResultStorageLimitExceeded
	}

	ic := NewIngestionContext(asset).WithAssetFromOrigin(afo)
	if err := w.submitter.InitiateTranscode(ctx, ic); err != nil {
		ll.Error("Failed to submit transcode job", "error", err)
		asset.Error = err.Error()
		w.complete(ctx, asset)
		return ResultFailed
	}

	ll.Info("Transcode job submitted, asset stays open", "location", afo.Location)
	return ResultQueuedForProcessing
}

func (w *TimebasedWorker) complete(ctx context.Context, asset *assetdb.Asset) bool {
	ok := w.store.UpdateIngestedAsset(ctx, asset, nil, nil)
	if !ok {
		logctx.FromContext(ctx).Error("Failed to finalize asset")
	}
	return ok
}
