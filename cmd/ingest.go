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
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/mediarunner/internal/credentials"
	"github.com/cardinalhq/mediarunner/internal/imageproc"
	"github.com/cardinalhq/mediarunner/internal/ingest"
	"github.com/cardinalhq/mediarunner/internal/origin"
	"github.com/cardinalhq/mediarunner/internal/pubsub"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Consume ingest requests and move assets into platform storage",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx)
		},
	}

	rootCmd.AddCommand(cmd)
}

func runIngest(ctx context.Context) error {
	ctx, rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	creds := credentials.NewStore(rt.reader)
	defer creds.Close()

	diskMover := ingest.NewDiskMover(rt.store,
		origin.NewDefaultStrategy(nil),
		origin.NewBasicHTTPStrategy(nil, creds),
		origin.NewSFTPStrategy(creds),
		origin.NewS3AmbientStrategy(rt.reader),
	)
	bucketMover := ingest.NewBucketMover(diskMover, rt.writer, rt.keys, rt.store, rt.cfg.HasFullBucketAccess)

	processor := imageproc.NewProcessor(nil, rt.cfg.Engine.ImageProcessorURL, rt.writer, rt.keys)
	imageWorker := ingest.NewImageWorker(diskMover, processor, rt.store, rt.cfg.Engine.WorkTemplate, rt.cfg.SkipStoragePolicyCheck)

	wrapper, err := rt.transcodeWrapper(ctx)
	if err != nil {
		return err
	}
	defer wrapper.Close()
	timebasedWorker := ingest.NewTimebasedWorker(bucketMover, wrapper, rt.store, rt.cfg.Engine.WorkTemplate, rt.cfg.SkipStoragePolicyCheck)

	resolver := origin.NewResolver(rt.store, rt.cfg.Engine.PortalOriginRegex)
	handler := pubsub.NewIngestHandler(rt.store, resolver, imageWorker, timebasedWorker)
	consumer := pubsub.NewConsumer(rt.sqs.Client, rt.cfg.Queues.IngestQueueURL, handler)

	slog.Info("Starting ingest consumer", slog.String("queue", rt.cfg.Queues.IngestQueueURL))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
