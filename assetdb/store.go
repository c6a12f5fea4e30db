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

package assetdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jellydator/ttlcache/v3"
)

// DBTX is the subset of pgx used by query methods, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner starts transactions, satisfied by *pgxpool.Pool.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides all functions to execute db queries and transactions
type Store struct {
	db       DBTX
	beginner txBeginner
	connPool *pgxpool.Pool

	customerStrategyCache *ttlcache.Cache[int, customerStrategyCacheValue]
}

// NewStore creates a new Store over the given pool.
func NewStore(connPool *pgxpool.Pool) *Store {
	store := &Store{
		db:       connPool,
		beginner: connPool,
		connPool: connPool,
		customerStrategyCache: ttlcache.New(
			ttlcache.WithTTL[int, customerStrategyCacheValue](5 * time.Minute),
		),
	}
	go store.customerStrategyCache.Start()
	return store
}

func (store *Store) Pool() *pgxpool.Pool {
	return store.connPool
}

// Close stops the background cache goroutine and closes the connection pool.
func (store *Store) Close() {
	if store.customerStrategyCache != nil {
		store.customerStrategyCache.Stop()
	}
	if store.connPool != nil {
		store.connPool.Close()
	}
}

func (store *Store) execTx(ctx context.Context, fn func(*Store) error) (err error) {
	tx, err := store.beginner.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Use a timeout to prevent infinite hangs during cleanup.
		// Never use the caller ctx for cleanup as it may be cancelled.
		rbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			if err != nil {
				err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
			} else {
				err = fmt.Errorf("rollback failed: %w", rbErr)
			}
		}
	}()

	txStore := &Store{
		db:                    tx,
		beginner:              store.beginner,
		connPool:              store.connPool,
		customerStrategyCache: store.customerStrategyCache,
	}

	if err = fn(txStore); err != nil {
		return err
	}

	// Use a timeout for commit to prevent hanging if DB is unresponsive.
	commitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = tx.Commit(commitCtx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	committed = true
	return nil
}
