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
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/mediarunner/internal/assetid"
	"github.com/cardinalhq/mediarunner/internal/logctx"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

// fakeDB scripts responses by SQL fragment and records every statement it
// executes, in order.
type fakeDB struct {
	rows     map[string]func(args []any) fakeRow
	execErr  map[string]error
	execTag  map[string]pgconn.CommandTag
	executed []string
	args     [][]any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.executed = append(f.executed, sql)
	f.args = append(f.args, args)
	for frag, err := range f.execErr {
		if strings.Contains(sql, frag) {
			return pgconn.CommandTag{}, err
		}
	}
	for frag, tag := range f.execTag {
		if strings.Contains(sql, frag) {
			return tag, nil
		}
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query: " + sql)
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	for frag, fn := range f.rows {
		if strings.Contains(sql, frag) {
			return fn(args)
		}
	}
	return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
}

func (f *fakeDB) indexOf(frag string) int {
	for i, sql := range f.executed {
		if strings.Contains(sql, frag) {
			return i
		}
	}
	return -1
}

type fakeTx struct {
	*fakeDB
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type singleTxBeginner struct{ tx *fakeTx }

func (b singleTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) { return b.tx, nil }

func batchExistsRow([]any) fakeRow {
	return fakeRow{scan: func(dest ...any) error {
		*(dest[0].(*bool)) = true
		return nil
	}}
}

func allowanceRow(stored, maximum int64) func([]any) fakeRow {
	return func([]any) fakeRow {
		return fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*int64)) = stored
			*(dest[1].(*int64)) = maximum
			return nil
		}}
	}
}

func batchedAsset() *Asset {
	batch := int64(7)
	return &Asset{
		ID:        assetid.New(99, 1, "img"),
		Origin:    "https://example.com/img.tiff",
		MediaType: "image/tiff",
		Width:     800,
		Height:    600,
		Batch:     &batch,
		Ingesting: true,
	}
}

func assetRows() *ImageLocation {
	return &ImageLocation{ID: assetid.New(99, 1, "img"), S3: "s3://storage/99/1/img"}
}

func assetStorage() *ImageStorage {
	return &ImageStorage{ID: assetid.New(99, 1, "img"), Size: 4096, ThumbnailSize: 128}
}

func TestVerifyStoragePolicyBySize(t *testing.T) {
	tests := []struct {
		name      string
		stored    int64
		maximum   int64
		candidate int64
		allowed   bool
	}{
		{"under allowance", 90, 200, 10, true},
		{"lands exactly on allowance", 90, 100, 10, true},
		{"one byte over", 90, 100, 11, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &Store{db: &fakeDB{rows: map[string]func([]any) fakeRow{
				"customer_storages cs": allowanceRow(tc.stored, tc.maximum),
			}}}

			allowed, err := store.VerifyStoragePolicyBySize(context.Background(), 99, tc.candidate)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
		})
	}
}

func TestVerifyStoragePolicyBySizeNoRecordAllows(t *testing.T) {
	store := &Store{db: &fakeDB{}}

	allowed, err := store.VerifyStoragePolicyBySize(context.Background(), 99, 1<<40)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestUpdateIngestedAssetCommitsEverything(t *testing.T) {
	tx := &fakeTx{fakeDB: &fakeDB{rows: map[string]func([]any) fakeRow{
		"FROM batches": batchExistsRow,
	}}}
	outer := &fakeDB{}
	store := &Store{db: outer, beginner: singleTxBeginner{tx}}

	asset := batchedAsset()
	ok := store.UpdateIngestedAsset(context.Background(), asset, assetRows(), assetStorage())
	require.True(t, ok)
	assert.True(t, tx.committed)

	// batch counter bumped before the asset row is written
	counterAt := tx.indexOf("completed = completed + 1")
	assetAt := tx.indexOf("UPDATE assets")
	require.GreaterOrEqual(t, counterAt, 0)
	require.GreaterOrEqual(t, assetAt, 0)
	assert.Less(t, counterAt, assetAt)

	assert.Contains(t, tx.executed[assetAt], "media_type")
	assert.GreaterOrEqual(t, tx.indexOf("INSERT INTO image_locations"), 0)
	assert.GreaterOrEqual(t, tx.indexOf("INSERT INTO image_storages"), 0)

	// batch finish is one conditional statement, after everything else
	finishAt := tx.indexOf("completed + errors = count")
	require.GreaterOrEqual(t, finishAt, 0)
	assert.Contains(t, tx.executed[finishAt], "finished IS NULL")
	assert.Equal(t, len(tx.executed)-1, finishAt)

	assert.False(t, asset.Ingesting)
	require.NotNil(t, asset.Finished)

	// aggregate totals bumped outside the transaction
	assert.GreaterOrEqual(t, outer.indexOf("customer_storages"), 0)
}

func TestUpdateIngestedAssetRedeliveryFinalizesAgain(t *testing.T) {
	tx := &fakeTx{fakeDB: &fakeDB{rows: map[string]func([]any) fakeRow{
		"FROM batches": batchExistsRow,
	}}}
	store := &Store{db: &fakeDB{}, beginner: singleTxBeginner{tx}}

	asset := batchedAsset()
	require.True(t, store.UpdateIngestedAsset(context.Background(), asset, assetRows(), assetStorage()))
	assert.True(t, store.UpdateIngestedAsset(context.Background(), asset, assetRows(), assetStorage()))
}

func TestUpdateIngestedAssetRollsBackOnFailure(t *testing.T) {
	tx := &fakeTx{fakeDB: &fakeDB{
		rows:    map[string]func([]any) fakeRow{"FROM batches": batchExistsRow},
		execErr: map[string]error{"UPDATE assets": errors.New("connection reset")},
	}}
	outer := &fakeDB{}
	store := &Store{db: outer, beginner: singleTxBeginner{tx}}

	ok := store.UpdateIngestedAsset(context.Background(), batchedAsset(), assetRows(), assetStorage())
	assert.False(t, ok)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Empty(t, outer.executed)
}

func TestUpdateIngestedAssetOrphanBatchNotesError(t *testing.T) {
	// no batches row scripted, so the existence check comes back empty
	tx := &fakeTx{fakeDB: &fakeDB{}}
	store := &Store{db: &fakeDB{}, beginner: singleTxBeginner{tx}}

	asset := batchedAsset()
	ok := store.UpdateIngestedAsset(context.Background(), asset, nil, nil)
	require.True(t, ok)
	assert.Equal(t, "Unable to find batch associated with image", asset.Error)
	assert.Equal(t, -1, tx.indexOf("completed = completed + 1"))
	assert.Equal(t, -1, tx.indexOf("errors = errors + 1"))
}

func TestUpdateIngestedAssetFailedAssetIncrementsErrors(t *testing.T) {
	tx := &fakeTx{fakeDB: &fakeDB{rows: map[string]func([]any) fakeRow{
		"FROM batches": batchExistsRow,
	}}}
	store := &Store{db: &fakeDB{}, beginner: singleTxBeginner{tx}}

	asset := batchedAsset()
	asset.Error = "origin unreachable"
	require.True(t, store.UpdateIngestedAsset(context.Background(), asset, nil, nil))
	assert.GreaterOrEqual(t, tx.indexOf("errors = errors + 1"), 0)
	assert.Equal(t, -1, tx.indexOf("completed = completed + 1"))
}

func TestUpdateIngestedAssetPlaceholderMediaTypeNotWritten(t *testing.T) {
	tx := &fakeTx{fakeDB: &fakeDB{rows: map[string]func([]any) fakeRow{
		"FROM batches": batchExistsRow,
	}}}
	store := &Store{db: &fakeDB{}, beginner: singleTxBeginner{tx}}

	asset := batchedAsset()
	asset.MediaType = MediaTypeUnknown
	require.True(t, store.UpdateIngestedAsset(context.Background(), asset, nil, nil))

	assetAt := tx.indexOf("UPDATE assets")
	require.GreaterOrEqual(t, assetAt, 0)
	assert.NotContains(t, tx.executed[assetAt], "media_type")
}

type recordedLog struct {
	level slog.Level
	msg   string
}

type captureHandler struct{ records *[]recordedLog }

func (h captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h captureHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, recordedLog{level: r.Level, msg: r.Message})
	return nil
}

func (h captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h captureHandler) WithGroup(string) slog.Handler { return h }

func TestIncreaseCustomerStorageWarnsWhenRowMissing(t *testing.T) {
	store := &Store{db: &fakeDB{execTag: map[string]pgconn.CommandTag{
		"customer_storages": pgconn.NewCommandTag("UPDATE 0"),
	}}}

	var records []recordedLog
	ctx := logctx.WithLogger(context.Background(), slog.New(captureHandler{records: &records}))

	store.increaseCustomerStorage(ctx, assetStorage())

	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].level)
	assert.Contains(t, records[0].msg, "No customer storage row")
}
