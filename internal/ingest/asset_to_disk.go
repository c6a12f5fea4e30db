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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/logctx"
	"github.com/cardinalhq/mediarunner/internal/origin"
)

// StoragePolicyVerifier answers whether a customer may store another
// candidateSize bytes. *assetdb.Store satisfies it.
type StoragePolicyVerifier interface {
	VerifyStoragePolicyBySize(ctx context.Context, customer int, candidateSize int64) (bool, error)
}

// DiskMover copies an asset's binary from its origin to local disk, using
// whichever origin strategy was resolved for the asset.
type DiskMover struct {
	strategies map[assetdb.OriginStrategyKind]origin.Strategy
	policy     StoragePolicyVerifier
}

// NewDiskMover registers the given strategies, each behind a safety check
// so a mis-resolved strategy row fails loudly instead of fetching with the
// wrong transport.
func NewDiskMover(policy StoragePolicyVerifier, strategies ...origin.Strategy) *DiskMover {
	m := make(map[assetdb.OriginStrategyKind]origin.Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Kind()] = origin.WithSafetyCheck(s)
	}
	return &DiskMover{strategies: m, policy: policy}
}

// CopyAssetToDisk fetches the asset's origin binary into destDir under a
// unique file name. An origin that yields nothing is an error here: by the
// time a mover runs, the asset was explicitly submitted for ingestion and
// its binary is expected to exist.
//
// When verifySize is set the customer's storage policy is consulted with
// the landed size; a veto is reported on the returned AssetFromOrigin, not
// as an error, so workers can finalize the asset accordingly.
func (m *DiskMover) CopyAssetToDisk(ctx context.Context, asset *assetdb.Asset, destDir string, cos *assetdb.CustomerOriginStrategy, verifySize bool) (*AssetFromOrigin, error) {
	if cos == nil {
		return nil, fmt.Errorf("copying %s to disk: no origin strategy resolved", asset.ID)
	}
	strategy, ok := m.strategies[cos.Strategy]
	if !ok {
		return nil, fmt.Errorf("copying %s to disk: no %q strategy registered", asset.ID, cos.Strategy)
	}

	resp, err := strategy.LoadAssetFromOrigin(ctx, asset.ID, asset.Origin, cos)
	if err != nil {
		return nil, fmt.Errorf("loading %s from origin %s: %w", asset.ID, asset.Origin, err)
	}
	if !resp.Retrieved() {
		return nil, fmt.Errorf("unable to get asset %s from origin %s using %q strategy", asset.ID, asset.Origin, cos.Strategy)
	}
	defer func() { _ = resp.Close() }()

	contentType, extension := resolveContentType(resp.ContentType, asset.Origin)
	target := filepath.Join(destDir, strings.ToLower(ulid.Make().String())+"."+extension)

	written, err := writeStream(target, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("writing %s to %s: %w", asset.ID, target, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		logctx.FromContext(ctx).Warn("Origin size mismatch",
			"assetId", asset.ID.String(), "expected", resp.ContentLength, "received", written)
	}

	afo := &AssetFromOrigin{
		AssetID:                asset.ID,
		AssetSize:              written,
		Location:               target,
		ContentType:            contentType,
		CustomerOriginStrategy: cos,
	}

	if verifySize {
		allowed, err := m.policy.VerifyStoragePolicyBySize(ctx, asset.ID.Customer, written)
		if err != nil {
			return nil, fmt.Errorf("verifying storage policy for %s: %w", asset.ID, err)
		}
		afo.FileExceedsAllowance = !allowed
	}
	return afo, nil
}

func writeStream(target string, body io.Reader) (int64, error) {
	f, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return 0, err
	}
	return written, nil
}
