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

package transcode

import (
	"context"
	"fmt"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/ingest"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// JobGetter reads back a transcoder job, validating asset ownership.
// *Wrapper satisfies it.
type JobGetter interface {
	GetJob(ctx context.Context, assetID, jobID string) (*Job, error)
}

// AssetGetter loads asset rows. *assetdb.Store satisfies it.
type AssetGetter interface {
	GetAsset(ctx context.Context, id assetid.ID) (*assetdb.Asset, error)
}

// Completer finalizes timebased assets when their transcode job reports
// back: it moves finished renditions into storage, removes the staged
// input, and closes the asset.
type Completer struct {
	jobs   JobGetter
	assets AssetGetter
	store  ingest.CompletionStore
	reader buckets.Reader
	writer buckets.Writer
	keys   buckets.KeyGenerator
}

func NewCompleter(jobs JobGetter, assets AssetGetter, store ingest.CompletionStore, reader buckets.Reader, writer buckets.Writer, keys buckets.KeyGenerator) *Completer {
	return &Completer{
		jobs:   jobs,
		assets: assets,
		store:  store,
		reader: reader,
		writer: writer,
		keys:   keys,
	}
}

// CompleteTranscode handles one transcode completion event. A returned
// error means the event should be redelivered; a failed job is not an
// error, it finalizes the asset as failed.
func (c *Completer) CompleteTranscode(ctx context.Context, id assetid.ID, jobID string) error {
	ctx = logctx.WithAttrs(ctx, "assetId", id.String(), "jobId", jobID)
	ll := logctx.FromContext(ctx)

	asset, err := c.assets.GetAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("completing transcode for %s: %w", id, err)
	}
	if !asset.Ingesting && asset.Finished != nil {
		ll.Info("Asset already finalized, ignoring completion event")
		return nil
	}

	// the persisted pointer is the source of truth for which job this
	// asset is waiting on; an event for any other job is noise
	ptr, err := ReadJobPointer(ctx, c.reader, c.keys, id)
	if err != nil {
		return fmt.Errorf("completing transcode for %s: %w", id, err)
	}
	if ptr == nil {
		ll.Warn("No transcode job pointer for asset, ignoring completion event")
		return nil
	}
	if ptr.JobID != jobID {
		ll.Warn("Completion event is not for the asset's transcode job, ignoring",
			"pointerJobId", ptr.JobID)
		return nil
	}

	job, err := c.jobs.GetJob(ctx, id.String(), ptr.JobID)
	if err != nil {
		return fmt.Errorf("completing transcode for %s: %w", id, err)
	}
	if job == nil {
		ll.Warn("Transcode job not found for asset, ignoring completion event")
		return nil
	}

	if !job.Complete() {
		asset.Error = transcodeFailureReason(job)
		ll.Warn("Transcode job did not complete", "status", job.Status, "error", asset.Error)
		if !c.store.UpdateIngestedAsset(ctx, asset, nil, nil) {
			return fmt.Errorf("completing transcode for %s: failed to finalize asset", id)
		}
		return nil
	}

	location, storage, err := c.storeOutputs(ctx, asset, job)
	if err != nil {
		return fmt.Errorf("completing transcode for %s: %w", id, err)
	}

	// the staged input has served its purpose; losing this delete only
	// costs bucket space
	input := c.keys.TimebasedInputLocation(id)
	if err := c.writer.DeleteObject(ctx, input); err != nil {
		ll.Warn("Failed to delete transcode input", "key", input.Key, "error", err)
	}

	if !c.store.UpdateIngestedAsset(ctx, asset, location, storage) {
		return fmt.Errorf("completing transcode for %s: failed to finalize asset", id)
	}
	ll.Info("Transcode completed", "size", storage.Size, "outputs", len(job.Outputs))
	return nil
}

// storeOutputs copies every finished rendition into storage and derives
// the asset's dimensions and duration from the first of them.
func (c *Completer) storeOutputs(ctx context.Context, asset *assetdb.Asset, job *Job) (*assetdb.ImageLocation, *assetdb.ImageStorage, error) {
	var totalSize int64
	var firstDest string
	var dimensionsSet bool

	for _, out := range job.Outputs {
		if !out.Complete() {
			logctx.FromContext(ctx).Warn("Skipping incomplete transcode output",
				"key", out.Key, "status", out.Status, "detail", out.StatusDetail)
			continue
		}
		src := buckets.ObjectInBucket{Bucket: c.keys.TimebasedOutputBucket, Key: out.Key, Region: c.keys.Region}
		dest := c.keys.FinalDestination(asset.ID, out.Key)

		res, err := c.writer.CopyLargeObject(ctx, src, dest, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("storing transcode output %s: %w", out.Key, err)
		}
		totalSize += res.Size

		if firstDest == "" {
			firstDest = dest.S3URI()
		}
		if !dimensionsSet {
			asset.Width = out.Width
			asset.Height = out.Height
			asset.Duration = out.DurationMS
			dimensionsSet = true
		}
	}

	if firstDest == "" {
		return nil, nil, fmt.Errorf("job %s completed with no finished outputs", job.ID)
	}

	location := &assetdb.ImageLocation{ID: asset.ID, S3: firstDest}
	storage := &assetdb.ImageStorage{ID: asset.ID, Size: totalSize}
	return location, storage, nil
}

func transcodeFailureReason(job *Job) string {
	for _, out := range job.Outputs {
		if !out.Complete() && out.StatusDetail != "" {
			return fmt.Sprintf("Transcode failed: %s", out.StatusDetail)
		}
	}
	return fmt.Sprintf("Transcode failed with status %s", job.Status)
}
