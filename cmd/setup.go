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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/config"
	"github.com/cardinalhq/mediarunner/internal/awsclient"
	"github.com/cardinalhq/mediarunner/internal/buckets"
	"github.com/cardinalhq/mediarunner/internal/logctx"
	"github.com/cardinalhq/mediarunner/internal/transcode"
)

// runtime holds the shared plumbing every service command needs: config,
// database, AWS clients, and bucket helpers.
type runtime struct {
	cfg    *config.Config
	store  *assetdb.Store
	mgr    *awsclient.Manager
	reader buckets.Reader
	writer buckets.Writer
	keys   buckets.KeyGenerator
	sqs    *awsclient.SQSClient
}

func newRuntime(ctx context.Context) (context.Context, *runtime, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)
	ctx = logctx.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		return ctx, nil, fmt.Errorf("loading configuration: %w", err)
	}

	store, err := assetdb.AssetDBStore(ctx)
	if err != nil {
		return ctx, nil, fmt.Errorf("connecting to asset database: %w", err)
	}

	mgr, err := awsclient.NewManager(ctx)
	if err != nil {
		store.Close()
		return ctx, nil, fmt.Errorf("creating AWS client manager: %w", err)
	}

	s3c, err := mgr.GetS3(ctx, awsclient.WithRegion(cfg.Storage.Region))
	if err != nil {
		store.Close()
		return ctx, nil, fmt.Errorf("creating S3 client: %w", err)
	}

	sqsc, err := mgr.GetSQS(ctx, awsclient.WithSQSRegion(cfg.Storage.Region))
	if err != nil {
		store.Close()
		return ctx, nil, fmt.Errorf("creating SQS client: %w", err)
	}

	rt := &runtime{
		cfg:    cfg,
		store:  store,
		mgr:    mgr,
		reader: buckets.NewS3Reader(s3c.Client),
		writer: buckets.NewS3Writer(s3c.Client),
		keys: buckets.KeyGenerator{
			StorageBucket:         cfg.Storage.Bucket,
			TimebasedInputBucket:  cfg.Storage.TimebasedInputBucket,
			TimebasedOutputBucket: cfg.Storage.TimebasedOutputBucket,
			Region:                cfg.Storage.Region,
		},
		sqs: sqsc,
	}
	return ctx, rt, nil
}

func (rt *runtime) Close() {
	rt.store.Close()
}

// transcodeWrapper builds the Elastic Transcoder wrapper from config.
func (rt *runtime) transcodeWrapper(ctx context.Context) (*transcode.Wrapper, error) {
	etc, err := rt.mgr.GetTranscoder(ctx, awsclient.WithTranscoderRegion(rt.cfg.Storage.Region))
	if err != nil {
		return nil, fmt.Errorf("creating transcoder client: %w", err)
	}

	presets := make([]transcode.Preset, 0, len(rt.cfg.Transcode.Presets))
	for id, ext := range rt.cfg.Transcode.Presets {
		presets = append(presets, transcode.Preset{ID: id, Extension: ext})
	}
	// map iteration order is random; keep job output order stable
	sort.Slice(presets, func(i, j int) bool { return presets[i].ID < presets[j].ID })

	return transcode.NewWrapper(etc.Client, rt.writer, rt.keys, rt.cfg.Transcode.PipelineName, presets), nil
}
