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
	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
)

// AssetFromOrigin describes an origin binary after a mover has landed it
// somewhere the platform controls (a local file or a bucket object).
type AssetFromOrigin struct {
	AssetID     assetid.ID
	AssetSize   int64
	Location    string
	ContentType string

	CustomerOriginStrategy *assetdb.CustomerOriginStrategy

	// FileExceedsAllowance is set when the binary was retrieved but the
	// customer's storage policy vetoed keeping it.
	FileExceedsAllowance bool
}

// IngestionContext accumulates state across one worker run: the asset
// aggregate, the moved binary, and the derived rows completion will write.
type IngestionContext struct {
	Asset           *assetdb.Asset
	AssetFromOrigin *AssetFromOrigin
	ImageLocation   *assetdb.ImageLocation
	ImageStorage    *assetdb.ImageStorage
}

func NewIngestionContext(asset *assetdb.Asset) *IngestionContext {
	return &IngestionContext{Asset: asset}
}

func (ic *IngestionContext) WithAssetFromOrigin(afo *AssetFromOrigin) *IngestionContext {
	ic.AssetFromOrigin = afo
	return ic
}

func (ic *IngestionContext) WithLocation(loc *assetdb.ImageLocation) *IngestionContext {
	ic.ImageLocation = loc
	return ic
}

func (ic *IngestionContext) WithStorage(storage *assetdb.ImageStorage) *IngestionContext {
	ic.ImageStorage = storage
	return ic
}
