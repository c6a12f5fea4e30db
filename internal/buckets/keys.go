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

package buckets

import (
	"fmt"
	"strings"

	"github.com/cardinalhq/mediarunner/internal/assetid"
)

// KeyGenerator maps asset ids onto the well-known buckets and keys the
// platform uses. All keys are rooted at customer/space/name so that an
// asset's objects can be located from its id alone.
type KeyGenerator struct {
	StorageBucket         string
	TimebasedInputBucket  string
	TimebasedOutputBucket string
	Region                string
}

// StorageLocation is where the ingested binary for an asset lives.
func (g KeyGenerator) StorageLocation(id assetid.ID) ObjectInBucket {
	return ObjectInBucket{
		Bucket: g.StorageBucket,
		Key:    id.String(),
		Region: g.Region,
	}
}

// TimebasedInputLocation is where a timebased asset is staged for the
// transcoder to pick up.
func (g KeyGenerator) TimebasedInputLocation(id assetid.ID) ObjectInBucket {
	return ObjectInBucket{
		Bucket: g.TimebasedInputBucket,
		Key:    id.String(),
		Region: g.Region,
	}
}

// TimebasedOutputLocation is where the transcoder writes a finished
// rendition. The job id keeps concurrent re-ingests from clobbering each
// other; the extension comes from the transcode preset.
func (g KeyGenerator) TimebasedOutputLocation(id assetid.ID, jobID, extension string) ObjectInBucket {
	return ObjectInBucket{
		Bucket: g.TimebasedOutputBucket,
		Key:    fmt.Sprintf("%s/transcode/%s.%s", id.String(), jobID, strings.TrimPrefix(extension, ".")),
		Region: g.Region,
	}
}

// FinalDestination is where a completed transcode output is copied once the
// job finishes, alongside the other renditions for the asset.
func (g KeyGenerator) FinalDestination(id assetid.ID, outputKey string) ObjectInBucket {
	// keep the preset-specific tail (jobId.ext) under the asset's key
	tail := outputKey
	if idx := strings.LastIndex(outputKey, "/"); idx >= 0 {
		tail = outputKey[idx+1:]
	}
	return ObjectInBucket{
		Bucket: g.StorageBucket,
		Key:    fmt.Sprintf("%s/full/%s", id.String(), tail),
		Region: g.Region,
	}
}

// MetadataKey is where per-asset metadata documents (eg the transcode job
// pointer) are stored.
func (g KeyGenerator) MetadataKey(id assetid.ID) ObjectInBucket {
	return ObjectInBucket{
		Bucket: g.StorageBucket,
		Key:    id.String() + "/metadata",
		Region: g.Region,
	}
}
