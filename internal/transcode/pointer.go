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
	"encoding/json"
	"fmt"
	"io"

	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/buckets"
)

// JobPointer is the per-asset metadata document linking an open asset to
// its transcoder job.
type JobPointer struct {
	JobID              string `json:"jobId"`
	TranscodingService string `json:"transcodingService"`
}

// PersistJobPointer writes the job pointer to the asset's metadata key.
func (w *Wrapper) PersistJobPointer(ctx context.Context, id assetid.ID, jobID string) error {
	doc, err := json.Marshal(JobPointer{
		JobID:              jobID,
		TranscodingService: ServiceName,
	})
	if err != nil {
		return fmt.Errorf("marshalling job pointer for %s: %w", id, err)
	}
	dest := w.keys.MetadataKey(id)
	if err := w.writer.WriteBytesToBucket(ctx, dest, doc, "application/json"); err != nil {
		return fmt.Errorf("persisting job pointer for %s: %w", id, err)
	}
	return nil
}

// ReadJobPointer fetches an asset's job pointer, or (nil, nil) when none
// was ever written.
func ReadJobPointer(ctx context.Context, reader buckets.Reader, keys buckets.KeyGenerator, id assetid.ID) (*JobPointer, error) {
	obj, err := reader.GetObject(ctx, keys.MetadataKey(id))
	if err != nil {
		return nil, fmt.Errorf("fetching job pointer for %s: %w", id, err)
	}
	if obj == nil {
		return nil, nil
	}
	defer func() { _ = obj.Body.Close() }()

	doc, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("reading job pointer for %s: %w", id, err)
	}
	var ptr JobPointer
	if err := json.Unmarshal(doc, &ptr); err != nil {
		return nil, fmt.Errorf("unmarshalling job pointer for %s: %w", id, err)
	}
	return &ptr, nil
}
