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

package imageproc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/ingest"
)

type fakeWriter struct {
	uploads []buckets.ObjectInBucket
	err     error
}

func (f *fakeWriter) WriteFileToBucket(ctx context.Context, dest buckets.ObjectInBucket, filePath, contentType string) error {
	f.uploads = append(f.uploads, dest)
	return f.err
}

func (f *fakeWriter) WriteBytesToBucket(ctx context.Context, dest buckets.ObjectInBucket, body []byte, contentType string) error {
	return nil
}

func (f *fakeWriter) CopyLargeObject(ctx context.Context, src, dest buckets.ObjectInBucket, verifier buckets.SizeVerifier) (buckets.CopyResult, error) {
	return buckets.CopyResult{}, nil
}

func (f *fakeWriter) DeleteObject(ctx context.Context, target buckets.ObjectInBucket) error {
	return nil
}

var testKeys = buckets.KeyGenerator{StorageBucket: "storage"}

func testContext() *ingest.IngestionContext {
	asset := &assetdb.Asset{
		ID:        assetid.New(99, 1, "image"),
		MediaType: assetdb.MediaTypeUnknown,
		Ingesting: true,
	}
	ic := ingest.NewIngestionContext(asset)
	ic.WithAssetFromOrigin(&ingest.AssetFromOrigin{
		AssetID:     asset.ID,
		AssetSize:   2048,
		Location:    "/scratch/99/1/image/abc.tiff",
		ContentType: "image/tiff",
	})
	return ic
}

func TestProcessFillsCompletionRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "99/1/image", req["assetId"])
		assert.Equal(t, "/scratch/99/1/image/abc.tiff", req["sourcePath"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"width": 2048, "height": 1024, "thumbnailSize": 300,
		})
	}))
	defer srv.Close()

	writer := &fakeWriter{}
	p := NewProcessor(srv.Client(), srv.URL, writer, testKeys)

	ic := testContext()
	ok, err := p.Process(context.Background(), ic)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, writer.uploads, 1)
	assert.Equal(t, "99/1/image", writer.uploads[0].Key)

	assert.Equal(t, int32(2048), ic.Asset.Width)
	assert.Equal(t, int32(1024), ic.Asset.Height)
	assert.Equal(t, "image/tiff", ic.Asset.MediaType)
	require.NotNil(t, ic.ImageLocation)
	assert.Equal(t, "s3://storage/99/1/image", ic.ImageLocation.S3)
	require.NotNil(t, ic.ImageStorage)
	assert.Equal(t, int64(2048), ic.ImageStorage.Size)
	assert.Equal(t, int64(300), ic.ImageStorage.ThumbnailSize)
}

func TestProcessSidecarErrorFailsAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unsupported colour profile"})
	}))
	defer srv.Close()

	p := NewProcessor(srv.Client(), srv.URL, &fakeWriter{}, testKeys)
	ok, err := p.Process(context.Background(), testContext())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "unsupported colour profile")
}

func TestProcessSidecarNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProcessor(srv.Client(), srv.URL, &fakeWriter{}, testKeys)
	ok, err := p.Process(context.Background(), testContext())
	require.Error(t, err)
	assert.False(t, ok)
}

func TestProcessUploadFailure(t *testing.T) {
	p := NewProcessor(nil, "http://unused.invalid", &fakeWriter{err: assert.AnError}, testKeys)
	ok, err := p.Process(context.Background(), testContext())
	require.Error(t, err)
	assert.False(t, ok)
}
