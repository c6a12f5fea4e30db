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

// Package imageproc processes image-family assets: the original goes to
// the storage bucket and a sidecar service derives dimensions and
// thumbnails from the local file.
package imageproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/ingest"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// processRequest is the payload sent to the image processing sidecar. The
// sidecar shares the worker's scratch volume, so a path is enough.
type processRequest struct {
	AssetID     string `json:"assetId"`
	SourcePath  string `json:"sourcePath"`
	ContentType string `json:"contentType"`
}

type processResponse struct {
	Width         int32  `json:"width"`
	Height        int32  `json:"height"`
	ThumbnailSize int64  `json:"thumbnailSize"`
	Error         string `json:"error,omitempty"`
}

// Processor stores an image asset and derives its metadata. It satisfies
// ingest.ImageProcessor.
type Processor struct {
	client      *http.Client
	endpointURL string
	writer      buckets.Writer
	keys        buckets.KeyGenerator
}

func NewProcessor(client *http.Client, endpointURL string, writer buckets.Writer, keys buckets.KeyGenerator) *Processor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Processor{
		client:      client,
		endpointURL: endpointURL,
		writer:      writer,
		keys:        keys,
	}
}

// Process uploads the fetched binary to the storage bucket, asks the
// sidecar for dimensions and thumbnails, and fills in the completion rows.
func (p *Processor) Process(ctx context.Context, ic *ingest.IngestionContext) (bool, error) {
	afo := ic.AssetFromOrigin
	if afo == nil || afo.Location == "" {
		return false, fmt.Errorf("processing %s: no fetched binary", ic.Asset.ID)
	}

	dest := p.keys.StorageLocation(ic.Asset.ID)
	if err := p.writer.WriteFileToBucket(ctx, dest, afo.Location, afo.ContentType); err != nil {
		return false, fmt.Errorf("storing %s: %w", ic.Asset.ID, err)
	}

	resp, err := p.callSidecar(ctx, ic, afo)
	if err != nil {
		return false, err
	}

	ic.Asset.Width = resp.Width
	ic.Asset.Height = resp.Height
	if afo.ContentType != "" {
		ic.Asset.MediaType = afo.ContentType
	}
	ic.WithLocation(&assetdb.ImageLocation{ID: ic.Asset.ID, S3: dest.S3URI()})
	ic.WithStorage(&assetdb.ImageStorage{
		ID:            ic.Asset.ID,
		Size:          afo.AssetSize,
		ThumbnailSize: resp.ThumbnailSize,
	})

	logctx.FromContext(ctx).Info("Processed image",
		"assetId", ic.Asset.ID.String(), "width", resp.Width, "height", resp.Height, "size", afo.AssetSize)
	return true, nil
}

func (p *Processor) callSidecar(ctx context.Context, ic *ingest.IngestionContext, afo *ingest.AssetFromOrigin) (*processResponse, error) {
	payload, err := json.Marshal(processRequest{
		AssetID:     ic.Asset.ID.String(),
		SourcePath:  afo.Location,
		ContentType: afo.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", ic.Asset.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", ic.Asset.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", ic.Asset.ID, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, fmt.Errorf("processing %s: sidecar returned %d: %s", ic.Asset.ID, httpResp.StatusCode, body)
	}

	var resp processResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("processing %s: decoding sidecar response: %w", ic.Asset.ID, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("processing %s: %s", ic.Asset.ID, resp.Error)
	}
	return &resp, nil
}
