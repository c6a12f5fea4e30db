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

// Package transcode submits timebased assets to AWS Elastic Transcoder and
// finalizes them when the transcoder reports back.
package transcode

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elastictranscoder/types"
)

const (
	// ServiceName identifies which transcoding service produced a job, for
	// the job pointer document.
	ServiceName = "elastictranscoder"

	jobStatusComplete = "Complete"

	// userMetadataAssetID is the job metadata key carrying the asset id, so
	// completion events can be validated against the asset they claim to be
	// for.
	userMetadataAssetID = "assetId"

	// userMetadataJobID carries the client-side submission id, distinct from
	// the id the transcoder assigns.
	userMetadataJobID     = "jobId"
	userMetadataStartTime = "startTime"
)

// Job is a transcoder job in neutral terms, decoupled from the ET SDK
// types so the completion path can be tested without AWS.
type Job struct {
	ID         string
	PipelineID string
	Status     string
	AssetID    string
	InputKey   string
	Outputs    []JobOutput
}

// JobOutput is one rendition produced by a job. Dimensions and duration
// are authoritative only when the output completed.
type JobOutput struct {
	Key          string
	Status       string
	StatusDetail string
	Width        int32
	Height       int32
	DurationMS   int64
}

// Complete reports whether the job as a whole finished successfully.
func (j *Job) Complete() bool {
	return j.Status == jobStatusComplete
}

func (o *JobOutput) Complete() bool {
	return o.Status == jobStatusComplete
}

func jobFromET(et *types.Job) Job {
	j := Job{
		ID:         aws.ToString(et.Id),
		PipelineID: aws.ToString(et.PipelineId),
		Status:     aws.ToString(et.Status),
		AssetID:    et.UserMetadata[userMetadataAssetID],
	}
	if et.Input != nil {
		j.InputKey = aws.ToString(et.Input.Key)
	}
	for _, out := range et.Outputs {
		o := JobOutput{
			Key:          aws.ToString(out.Key),
			Status:       aws.ToString(out.Status),
			StatusDetail: aws.ToString(out.StatusDetail),
			Width:        aws.ToInt32(out.Width),
			Height:       aws.ToInt32(out.Height),
		}
		// ET reports duration in whole seconds
		o.DurationMS = aws.ToInt64(out.Duration) * 1000
		j.Outputs = append(j.Outputs, o)
	}
	return j
}
