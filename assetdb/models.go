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
	"time"

	"github.com/cardinalhq/mediarunner/internal/assetid"
)

// OriginStrategyKind selects the transport used to fetch an asset's bytes
// from its declared origin.
type OriginStrategyKind string

const (
	StrategyDefault   OriginStrategyKind = "default"
	StrategyBasicHTTP OriginStrategyKind = "basic-http-authentication"
	StrategySFTP      OriginStrategyKind = "sftp"
	StrategyS3Ambient OriginStrategyKind = "s3-ambient"
)

// MediaTypeUnknown is the placeholder media type assigned at registration
// time before ingestion has inspected the asset.
const MediaTypeUnknown = "unknown/unknown"

// Asset is the mutable aggregate for a single ingested item. It is created
// by the registration path and mutated only by completion.
type Asset struct {
	ID        assetid.ID
	Origin    string
	MediaType string
	Width     int32
	Height    int32
	Duration  int64
	Batch     *int64
	Ingesting bool
	Finished  *time.Time
	Error     string
}

// MarkFinished records success or failure terminal state on the in-memory
// aggregate. The database write happens in UpdateIngestedAsset.
func (a *Asset) MarkFinished(at time.Time) {
	a.Ingesting = false
	a.Finished = &at
}

// HasBatch reports whether the asset belongs to a batch.
func (a *Asset) HasBatch() bool {
	return a.Batch != nil && *a.Batch != 0
}

// CustomerOriginStrategy is a per-customer rule mapping origin URLs (by
// regex) to a retrieval strategy. Rows are evaluated in Ordering; first
// match wins.
type CustomerOriginStrategy struct {
	ID          string
	Customer    int
	Regex       string
	Strategy    OriginStrategyKind
	Credentials string
	Optimised   bool
	Ordering    int32
}

// Batch tracks aggregate completion counters for a group of assets
// submitted together. Finished is set exactly once, when
// Completed+Errors == Count.
type Batch struct {
	ID        int64
	Customer  int
	Count     int32
	Completed int32
	Errors    int32
	Submitted time.Time
	Finished  *time.Time
}

// ImageLocation records where the stored asset lives, one row per asset.
type ImageLocation struct {
	ID  assetid.ID
	S3  string
	Nas string
}

// ImageStorage records the stored byte size for quota accounting, one row
// per asset.
type ImageStorage struct {
	ID            assetid.ID
	Size          int64
	ThumbnailSize int64
	LastChecked   time.Time
}
