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

	"github.com/cardinalhq/mediarunner/internal/pubsub"
	"github.com/cardinalhq/mediarunner/internal/transcode"
)

func init() {
	cmd := &cobra.Command{
		Use:   "transcode-complete",
		Short: "Consume transcoder notifications and finalize timebased assets",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runTranscodeComplete(ctx)
		},
	}

	rootCmd.AddCommand(cmd)
}

func runTranscodeComplete(ctx context.Context) error {
	ctx, rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	wrapper, err := rt.transcodeWrapper(ctx)
	if err != nil {
		return err
	}
	defer wrapper.Close()

	completer := transcode.NewCompleter(wrapper, rt.store, rt.store, rt.reader, rt.writer, rt.keys)
	handler := pubsub.NewCompletionHandler(completer)
	consumer := pubsub.NewConsumer(rt.sqs.Client, rt.cfg.Queues.TranscodeCompleteQueueURL, handler)

	slog.Info("Starting transcode completion consumer", slog.String("queue", rt.cfg.Queues.TranscodeCompleteQueueURL))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
