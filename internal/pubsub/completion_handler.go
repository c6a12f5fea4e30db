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

package pubsub

import (
	"context"
	"encoding/json"

	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// TranscodeCompleter finalizes an asset from its transcode job.
// *transcode.Completer satisfies it.
type TranscodeCompleter interface {
	CompleteTranscode(ctx context.Context, id assetid.ID, jobID string) error
}

// snsEnvelope is the wrapper SNS puts around notifications it forwards to
// SQS. The transcoder publishes to SNS, so completion messages arrive
// wrapped.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// transcodeNotification is the Elastic Transcoder job state notification.
type transcodeNotification struct {
	State        string            `json:"state"`
	JobID        string            `json:"jobId"`
	UserMetadata map[string]string `json:"userMetadata"`
}

// CompletionHandler turns transcoder notifications into asset completions.
type CompletionHandler struct {
	completer TranscodeCompleter
}

func NewCompletionHandler(completer TranscodeCompleter) *CompletionHandler {
	return &CompletionHandler{completer: completer}
}

// Handle processes one notification. Progress-only notifications and
// malformed messages are swallowed; completion failures are returned for
// redelivery.
func (h *CompletionHandler) Handle(ctx context.Context, body string) error {
	ll := logctx.FromContext(ctx)

	payload := body
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Message != "" {
		payload = envelope.Message
	}

	var note transcodeNotification
	if err := json.Unmarshal([]byte(payload), &note); err != nil {
		ll.Error("Dropping malformed transcode notification", "error", err)
		return nil
	}
	if note.State == "PROGRESSING" {
		return nil
	}
	if note.JobID == "" {
		ll.Error("Dropping transcode notification without job id")
		return nil
	}

	rawID := note.UserMetadata["assetId"]
	id, err := assetid.Parse(rawID)
	if err != nil {
		ll.Error("Dropping transcode notification with bad asset id", "assetId", rawID, "error", err)
		return nil
	}

	return h.completer.CompleteTranscode(ctx, id, note.JobID)
}
