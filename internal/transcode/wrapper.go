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
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/oklog/ulid/v2"

	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/ingest"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// Preset is one rendition to request per job: an Elastic Transcoder preset
// id and the container extension its output gets.
type Preset struct {
	ID        string
	Extension string
}

type etAPI interface {
	ListPipelines(ctx context.Context, params *elastictranscoder.ListPipelinesInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.ListPipelinesOutput, error)
	CreateJob(ctx context.Context, params *elastictranscoder.CreateJobInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.CreateJobOutput, error)
	ReadJob(ctx context.Context, params *elastictranscoder.ReadJobInput, optFns ...func(*elastictranscoder.Options)) (*elastictranscoder.ReadJobOutput, error)
}

type pipelineCacheValue struct {
	id  string
	err error
}

const (
	pipelineCacheTTL = 30 * time.Minute

	// failed lookups are cached too, but only briefly, so a transient
	// ListPipelines error or a pipeline created moments later does not
	// block submissions for the full cache window
	pipelineCacheErrTTL = 30 * time.Second
)

// Wrapper drives Elastic Transcoder job submission. It satisfies
// ingest.TranscodeSubmitter.
type Wrapper struct {
	api          etAPI
	writer       buckets.Writer
	keys         buckets.KeyGenerator
	pipelineName string
	presets      []Preset

	// pipeline name to id, resolved via ListPipelines and cached
	pipelineCache *ttlcache.Cache[string, pipelineCacheValue]
}

func NewWrapper(api etAPI, writer buckets.Writer, keys buckets.KeyGenerator, pipelineName string, presets []Preset) *Wrapper {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, pipelineCacheValue](pipelineCacheTTL),
	)
	go cache.Start()
	return &Wrapper{
		api:           api,
		writer:        writer,
		keys:          keys,
		pipelineName:  pipelineName,
		presets:       presets,
		pipelineCache: cache,
	}
}

func (w *Wrapper) Close() {
	w.pipelineCache.Stop()
}

// InitiateTranscode submits a transcode job for a staged timebased asset
// and persists the job pointer so the asset's job can be found later. The
// asset is not finalized here; that happens when the completion event
// arrives.
func (w *Wrapper) InitiateTranscode(ctx context.Context, ic *ingest.IngestionContext) error {
	afo := ic.AssetFromOrigin
	if afo == nil || afo.Location == "" {
		return fmt.Errorf("initiating transcode for %s: no staged binary", ic.Asset.ID)
	}

	pipelineID, err := w.getPipelineID(ctx)
	if err != nil {
		return fmt.Errorf("initiating transcode for %s: %w", ic.Asset.ID, err)
	}

	input, err := buckets.ParseRegionalised(afo.Location)
	if err != nil {
		return fmt.Errorf("initiating transcode for %s: %w", ic.Asset.ID, err)
	}

	// group id ties this job's output keys together before the job id exists
	groupID := strings.ToLower(ulid.Make().String())

	outputs := make([]types.CreateJobOutput, 0, len(w.presets))
	for _, preset := range w.presets {
		dest := w.keys.TimebasedOutputLocation(ic.Asset.ID, groupID, preset.Extension)
		outputs = append(outputs, types.CreateJobOutput{
			Key:      aws.String(dest.Key),
			PresetId: aws.String(preset.ID),
		})
	}

	created, err := w.api.CreateJob(ctx, &elastictranscoder.CreateJobInput{
		PipelineId: aws.String(pipelineID),
		Input: &types.JobInput{
			Key: aws.String(input.Key),
			// let the transcoder sniff everything about the container
			AspectRatio: aws.String("auto"),
			Container:   aws.String("auto"),
			FrameRate:   aws.String("auto"),
			Interlaced:  aws.String("auto"),
			Resolution:  aws.String("auto"),
		},
		Outputs: outputs,
		UserMetadata: map[string]string{
			userMetadataAssetID:   ic.Asset.ID.String(),
			userMetadataJobID:     uuid.NewString(),
			userMetadataStartTime: time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("creating transcode job for %s: %w", ic.Asset.ID, err)
	}

	jobID := ""
	if created.Job != nil {
		jobID = aws.ToString(created.Job.Id)
	}
	if jobID == "" {
		return fmt.Errorf("creating transcode job for %s: transcoder returned no job id", ic.Asset.ID)
	}

	if err := w.PersistJobPointer(ctx, ic.Asset.ID, jobID); err != nil {
		return err
	}

	logctx.FromContext(ctx).Info("Created transcode job",
		"assetId", ic.Asset.ID.String(), "jobId", jobID, "pipelineId", pipelineID, "outputs", len(outputs))
	return nil
}

// GetJob reads a job back from the transcoder. A job whose metadata names
// a different asset is not this asset's job at all, so it is reported as
// not found, (nil, nil), rather than as an error to retry.
func (w *Wrapper) GetJob(ctx context.Context, assetID, jobID string) (*Job, error) {
	out, err := w.api.ReadJob(ctx, &elastictranscoder.ReadJobInput{Id: aws.String(jobID)})
	if err != nil {
		return nil, fmt.Errorf("reading transcode job %s: %w", jobID, err)
	}
	if out.Job == nil {
		return nil, fmt.Errorf("reading transcode job %s: transcoder returned no job", jobID)
	}
	job := jobFromET(out.Job)
	if job.AssetID != assetID {
		logctx.FromContext(ctx).Warn("Transcode job does not belong to asset",
			"jobId", jobID, "assetId", assetID, "jobAssetId", job.AssetID)
		return nil, nil
	}
	return &job, nil
}

func (w *Wrapper) getPipelineID(ctx context.Context) (string, error) {
	loader := ttlcache.LoaderFunc[string, pipelineCacheValue](
		func(c *ttlcache.Cache[string, pipelineCacheValue], key string) *ttlcache.Item[string, pipelineCacheValue] {
			id, err := w.lookupPipelineID(ctx, key)
			ttl := ttlcache.DefaultTTL
			if err != nil {
				ttl = pipelineCacheErrTTL
			}
			return c.Set(key, pipelineCacheValue{id: id, err: err}, ttl)
		},
	)
	v := w.pipelineCache.Get(w.pipelineName, ttlcache.WithLoader(loader)).Value()
	return v.id, v.err
}

func (w *Wrapper) lookupPipelineID(ctx context.Context, name string) (string, error) {
	var pageToken *string
	for {
		out, err := w.api.ListPipelines(ctx, &elastictranscoder.ListPipelinesInput{PageToken: pageToken})
		if err != nil {
			return "", fmt.Errorf("listing transcoder pipelines: %w", err)
		}
		for _, p := range out.Pipelines {
			if aws.ToString(p.Name) == name {
				return aws.ToString(p.Id), nil
			}
		}
		if out.NextPageToken == nil {
			return "", fmt.Errorf("transcoder pipeline %q not found", name)
		}
		pageToken = out.NextPageToken
	}
}
