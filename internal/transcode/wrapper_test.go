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
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/ingest"
)

type fakeET struct {
	listCalls   int
	pipelines   []types.Pipeline
	createdJob  *elastictranscoder.CreateJobInput
	createErr   error
	jobID       string
	readJob     *types.Job
	readJobErr  error
	readJobSeen string
}

func (f *fakeET) ListPipelines(ctx context.Context, params *elastictranscoder.ListPipelinesInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.ListPipelinesOutput, error) {
	f.listCalls++
	return &elastictranscoder.ListPipelinesOutput{Pipelines: f.pipelines}, nil
}

func (f *fakeET) CreateJob(ctx context.Context, params *elastictranscoder.CreateJobInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.CreateJobOutput, error) {
	f.createdJob = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &elastictranscoder.CreateJobOutput{Job: &types.Job{Id: aws.String(f.jobID)}}, nil
}

func (f *fakeET) ReadJob(ctx context.Context, params *elastictranscoder.ReadJobInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.ReadJobOutput, error) {
	f.readJobSeen = aws.ToString(params.Id)
	if f.readJobErr != nil {
		return nil, f.readJobErr
	}
	return &elastictranscoder.ReadJobOutput{Job: f.readJob}, nil
}

type recordingWriter struct {
	bytesDest buckets.ObjectInBucket
	bytesBody []byte
	bytesCT   string

	copyCalls []buckets.ObjectInBucket
	copySize  int64
	copyErr   error

	deleted []buckets.ObjectInBucket
}

func (r *recordingWriter) WriteFileToBucket(ctx context.Context, dest buckets.ObjectInBucket, filePath, contentType string) error {
	return nil
}

func (r *recordingWriter) WriteBytesToBucket(ctx context.Context, dest buckets.ObjectInBucket, body []byte, contentType string) error {
	r.bytesDest = dest
	r.bytesBody = body
	r.bytesCT = contentType
	return nil
}

func (r *recordingWriter) CopyLargeObject(ctx context.Context, src, dest buckets.ObjectInBucket, verifier buckets.SizeVerifier) (buckets.CopyResult, error) {
	r.copyCalls = append(r.copyCalls, dest)
	if r.copyErr != nil {
		return buckets.CopyResult{Outcome: buckets.CopyError}, r.copyErr
	}
	return buckets.CopyResult{Outcome: buckets.CopySuccess, Size: r.copySize}, nil
}

func (r *recordingWriter) DeleteObject(ctx context.Context, target buckets.ObjectInBucket) error {
	r.deleted = append(r.deleted, target)
	return nil
}

var testKeys = buckets.KeyGenerator{
	StorageBucket:         "storage",
	TimebasedInputBucket:  "tb-in",
	TimebasedOutputBucket: "tb-out",
}

func testIngestionContext() *ingest.IngestionContext {
	asset := &assetdb.Asset{
		ID:        assetid.New(99, 1, "clip"),
		Origin:    "https://example.com/clip.mp4",
		Ingesting: true,
	}
	ic := ingest.NewIngestionContext(asset)
	ic.WithAssetFromOrigin(&ingest.AssetFromOrigin{
		AssetID:     asset.ID,
		AssetSize:   4096,
		Location:    "s3://tb-in/99/1/clip",
		ContentType: "video/mp4",
	})
	return ic
}

func TestInitiateTranscodeCreatesJobAndPointer(t *testing.T) {
	et := &fakeET{
		pipelines: []types.Pipeline{
			{Id: aws.String("pl-other"), Name: aws.String("other")},
			{Id: aws.String("pl-123"), Name: aws.String("media-pipeline")},
		},
		jobID: "job-42",
	}
	writer := &recordingWriter{}
	w := NewWrapper(et, writer, testKeys, "media-pipeline", []Preset{
		{ID: "preset-webm", Extension: "webm"},
		{ID: "preset-mp4", Extension: "mp4"},
	})
	defer w.Close()

	require.NoError(t, w.InitiateTranscode(context.Background(), testIngestionContext()))

	require.NotNil(t, et.createdJob)
	assert.Equal(t, "pl-123", aws.ToString(et.createdJob.PipelineId))
	assert.Equal(t, "99/1/clip", aws.ToString(et.createdJob.Input.Key))
	assert.Equal(t, "auto", aws.ToString(et.createdJob.Input.Container))
	assert.Equal(t, "99/1/clip", et.createdJob.UserMetadata[userMetadataAssetID])
	assert.NotEmpty(t, et.createdJob.UserMetadata[userMetadataJobID])
	assert.NotEmpty(t, et.createdJob.UserMetadata[userMetadataStartTime])
	require.Len(t, et.createdJob.Outputs, 2)
	assert.True(t, strings.HasPrefix(aws.ToString(et.createdJob.Outputs[0].Key), "99/1/clip/transcode/"))
	assert.True(t, strings.HasSuffix(aws.ToString(et.createdJob.Outputs[0].Key), ".webm"))
	assert.True(t, strings.HasSuffix(aws.ToString(et.createdJob.Outputs[1].Key), ".mp4"))

	// job pointer written to the asset's metadata key
	assert.Equal(t, "storage", writer.bytesDest.Bucket)
	assert.Equal(t, "99/1/clip/metadata", writer.bytesDest.Key)
	assert.Equal(t, "application/json", writer.bytesCT)
	var ptr JobPointer
	require.NoError(t, json.Unmarshal(writer.bytesBody, &ptr))
	assert.Equal(t, "job-42", ptr.JobID)
	assert.Equal(t, ServiceName, ptr.TranscodingService)
}

func TestInitiateTranscodeCachesPipelineID(t *testing.T) {
	et := &fakeET{
		pipelines: []types.Pipeline{{Id: aws.String("pl-123"), Name: aws.String("media-pipeline")}},
		jobID:     "job-1",
	}
	w := NewWrapper(et, &recordingWriter{}, testKeys, "media-pipeline", []Preset{{ID: "p", Extension: "mp4"}})
	defer w.Close()

	require.NoError(t, w.InitiateTranscode(context.Background(), testIngestionContext()))
	require.NoError(t, w.InitiateTranscode(context.Background(), testIngestionContext()))
	assert.Equal(t, 1, et.listCalls)
}

func TestPipelineLookupFailureCachedBriefly(t *testing.T) {
	et := &fakeET{}
	w := NewWrapper(et, &recordingWriter{}, testKeys, "media-pipeline", nil)
	defer w.Close()

	_, err := w.getPipelineID(context.Background())
	require.Error(t, err)
	item := w.pipelineCache.Get("media-pipeline")
	require.NotNil(t, item)
	assert.WithinDuration(t, time.Now().Add(pipelineCacheErrTTL), item.ExpiresAt(), 5*time.Second)

	et.pipelines = []types.Pipeline{{Id: aws.String("pl-123"), Name: aws.String("media-pipeline")}}
	w.pipelineCache.Delete("media-pipeline")
	id, err := w.getPipelineID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pl-123", id)
	item = w.pipelineCache.Get("media-pipeline")
	require.NotNil(t, item)
	assert.WithinDuration(t, time.Now().Add(pipelineCacheTTL), item.ExpiresAt(), time.Minute)
}

func TestInitiateTranscodeUnknownPipeline(t *testing.T) {
	et := &fakeET{jobID: "job-1"}
	w := NewWrapper(et, &recordingWriter{}, testKeys, "missing-pipeline", nil)
	defer w.Close()

	err := w.InitiateTranscode(context.Background(), testIngestionContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-pipeline")
	assert.Nil(t, et.createdJob)
}

func TestInitiateTranscodeRequiresStagedBinary(t *testing.T) {
	w := NewWrapper(&fakeET{}, &recordingWriter{}, testKeys, "media-pipeline", nil)
	defer w.Close()

	ic := ingest.NewIngestionContext(&assetdb.Asset{ID: assetid.New(99, 1, "clip")})
	err := w.InitiateTranscode(context.Background(), ic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no staged binary")
}

func TestGetJobValidatesAssetOwnership(t *testing.T) {
	et := &fakeET{readJob: &types.Job{
		Id:           aws.String("job-42"),
		Status:       aws.String("Complete"),
		UserMetadata: map[string]string{userMetadataAssetID: "99/1/clip"},
	}}
	w := NewWrapper(et, &recordingWriter{}, testKeys, "media-pipeline", nil)
	defer w.Close()

	job, err := w.GetJob(context.Background(), "99/1/clip", "job-42")
	require.NoError(t, err)
	assert.True(t, job.Complete())
	assert.Equal(t, "job-42", et.readJobSeen)

	// another asset's job is simply not found, never an error to retry
	job, err = w.GetJob(context.Background(), "99/1/other", "job-42")
	require.NoError(t, err)
	assert.Nil(t, job)
}
