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
	"fmt"
	"strings"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/ingest"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

// Media families routed to different workers.
const (
	FamilyImage     = "image"
	FamilyTimebased = "timebased"
)

// IngestRequest is the queue message asking for one asset to be ingested.
// The asset row itself is read from the database; the message only says
// which asset and how to treat it.
type IngestRequest struct {
	ID     string `json:"id"`
	Family string `json:"family"`
}

// AssetGetter loads asset rows. *assetdb.Store satisfies it.
type AssetGetter interface {
	GetAsset(ctx context.Context, id assetid.ID) (*assetdb.Asset, error)
}

// StrategyResolver picks the origin strategy for an asset's origin URL.
// *origin.Resolver satisfies it.
type StrategyResolver interface {
	ResolveStrategy(ctx context.Context, customer int, originURL string) (*assetdb.CustomerOriginStrategy, error)
}

// Worker runs one family's ingestion pipeline. *ingest.ImageWorker and
// *ingest.TimebasedWorker satisfy it.
type Worker interface {
	Ingest(ctx context.Context, asset *assetdb.Asset, cos *assetdb.CustomerOriginStrategy) ingest.Result
}

// IngestHandler turns ingest request messages into worker runs.
type IngestHandler struct {
	assets    AssetGetter
	resolver  StrategyResolver
	image     Worker
	timebased Worker
}

func NewIngestHandler(assets AssetGetter, resolver StrategyResolver, image, timebased Worker) *IngestHandler {
	return &IngestHandler{
		assets:    assets,
		resolver:  resolver,
		image:     image,
		timebased: timebased,
	}
}

// Handle runs one ingest request end to end. Malformed messages are
// swallowed (and logged) rather than redelivered forever; a failed worker
// run returns an error so the queue redelivers once the visibility timeout
// lapses.
func (h *IngestHandler) Handle(ctx context.Context, body string) error {
	ll := logctx.FromContext(ctx)

	var req IngestRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		ll.Error("Dropping malformed ingest request", "error", err)
		return nil
	}
	id, err := assetid.Parse(req.ID)
	if err != nil {
		ll.Error("Dropping ingest request with bad asset id", "id", req.ID, "error", err)
		return nil
	}

	asset, err := h.assets.GetAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("loading asset %s: %w", id, err)
	}

	cos, err := h.resolver.ResolveStrategy(ctx, id.Customer, asset.Origin)
	if err != nil {
		return fmt.Errorf("resolving origin strategy for %s: %w", id, err)
	}

	worker, err := h.workerFor(req.Family, asset)
	if err != nil {
		ll.Error("Dropping ingest request with unknown family", "id", req.ID, "error", err)
		return nil
	}

	result := worker.Ingest(ctx, asset, cos)
	ll.Info("Ingest request handled", "id", req.ID, "result", result.String())
	if result == ingest.ResultFailed {
		return fmt.Errorf("ingest of %s failed", id)
	}
	return nil
}

// workerFor routes by the request's declared family, falling back to the
// asset's media type when the message predates the family field.
func (h *IngestHandler) workerFor(family string, asset *assetdb.Asset) (Worker, error) {
	switch family {
	case FamilyImage:
		return h.image, nil
	case FamilyTimebased:
		return h.timebased, nil
	case "":
		if strings.HasPrefix(asset.MediaType, "video/") || strings.HasPrefix(asset.MediaType, "audio/") {
			return h.timebased, nil
		}
		return h.image, nil
	default:
		return nil, fmt.Errorf("unknown media family %q", family)
	}
}
