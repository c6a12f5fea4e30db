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
	"fmt"
	"os"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// DiskCopier is the part of DiskMover the bucket mover and the image
// worker need.
type DiskCopier interface {
	CopyAssetToDisk(ctx context.Context, asset *assetdb.Asset, destDir string, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error)
}

// BucketMover lands an asset's binary in the transcode input bucket. When
// the origin is itself an ambient bucket marked optimised and the customer
// has full bucket access, the copy happens entirely server side; otherwise
// the binary is staged through local disk.
type BucketMover struct {
	disk             DiskCopier
	writer           buckets.Writer
	keys             buckets.KeyGenerator
	policy           StoragePolicyVerifier
	fullBucketAccess func(customer int) bool
}

func NewBucketMover(disk DiskCopier, writer buckets.Writer, keys buckets.KeyGenerator, policy StoragePolicyVerifier, fullBucketAccess func(customer int) bool) *BucketMover {
	if fullBucketAccess == nil {
		fullBucketAccess = func(int) bool { return false }
	}
	return &BucketMover{
		disk:             disk,
		writer:           writer,
		keys:             keys,
		policy:           policy,
		fullBucketAccess: fullBucketAccess,
	}
}

// CopyAssetToTranscodeInput moves the asset's binary into the transcode
// input bucket. workDir is scratch space for the indirect path; the staged
// local file never survives this call. A storage policy veto is reported on
// the AssetFromOrigin, and a vetoed binary is never uploaded.
func (m *BucketMover) CopyAssetToTranscodeInput(ctx context.Context, asset *assetdb.Asset, workDir string, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error) {
	dest := m.keys.TimebasedInputLocation(asset.ID)

	if m.canCopyDirect(asset, cos) {
		return m.directCopy(ctx, asset, dest, cos, verifySize)
	}
	return m.indirectCopy(ctx, asset, dest, workDir, cos, verifySize)
}

func (m *BucketMover) canCopyDirect(asset *assetdb.Asset, cos *assetdb.CustomerOriginStrategy) bool {
	return cos != nil &&
		cos.Optimised &&
		cos.Strategy == assetdb.StrategyS3Ambient &&
		m.fullBucketAccess(asset.ID.Customer)
}

func (m *BucketMover) directCopy(ctx context.Context, asset *assetdb.Asset, dest buckets.ObjectInBucket, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error) {
	src, err := buckets.ParseRegionalised(asset.Origin)
	if err != nil {
		return nil, fmt.Errorf("direct copy of %s: %w", asset.ID, err)
	}

	var verifier buckets.SizeVerifier
	if verifySize {
		verifier = func(ctx context.Context, size int64) (bool, error) {
			return m.policy.VerifyStoragePolicyBySize(ctx, asset.ID.Customer, size)
		}
	}

	res, err := m.writer.CopyLargeObject(ctx, src, dest, verifier)
	if err != nil {
		return nil, fmt.Errorf("direct copy of %s: %w", asset.ID, err)
	}

	contentType, _ := resolveContentType("", asset.Origin)
	afo := &AssetFromOrigin{
		AssetID:                asset.ID,
		AssetSize:              res.Size,
		ContentType:            contentType,
		CustomerOriginStrategy: cos,
	}
	if res.Outcome == buckets.CopyFileTooLarge {
		afo.FileExceedsAllowance = true
		return afo, nil
	}
	afo.Location = dest.S3URI()
	logctx.FromContext(ctx).Info("Copied asset bucket to bucket",
		"assetId", asset.ID.String(), "source", src.S3URI(), "dest", dest.S3URI(), "size", res.Size)
	return afo, nil
}

func (m *BucketMover) indirectCopy(ctx context.Context, asset *assetdb.Asset, dest buckets.ObjectInBucket, workDir string, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error) {
	afo, err := m.disk.CopyAssetToDisk(ctx, asset, workDir, cos, verifySize)
	if err != nil {
		return nil, err
	}

	localPath := afo.Location
	defer func() {
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			logctx.FromContext(ctx).Warn("Failed to remove staged file",
				"assetId", asset.ID.String(), "path", localPath, "error", err)
		}
	}()

	if afo.FileExceedsAllowance {
		return afo, nil
	}

	if err := m.writer.WriteFileToBucket(ctx, dest, localPath, afo.ContentType); err != nil {
		return nil, fmt.Errorf("uploading %s to transcode input: %w", asset.ID, err)
	}
	afo.Location = dest.S3URI()
	return afo, nil
}
