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
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/mediarunner/assetdb"
	"github.com/cardinalhq/mediarunner/assetdb/migrations"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

func init() {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run asset database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(5*time.Minute))
			defer cancel()

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
			slog.SetDefault(logger)
			ctx = logctx.WithLogger(ctx, logger)

			pool, err := assetdb.ConnectToAssetDB(ctx)
			if err != nil {
				return fmt.Errorf("connecting to asset database: %w", err)
			}
			defer pool.Close()

			if err := migrations.RunMigrationsUp(ctx, pool); err != nil {
				return fmt.Errorf("running asset database migrations: %w", err)
			}
			slog.Info("Asset database migrations complete")
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}
