package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tileA = "65a1f0c2e4b0a1b2c3d4e5f1"
	tileB = "65a1f0c2e4b0a1b2c3d4e5f2"
	tileC = "65a1f0c2e4b0a1b2c3d4e5f3"
)

func countRows(t *testing.T, repo *PostgresSavedTileRepository, tileID string, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, repo.db.Model(&models.SavedTile{}).
		Where("tile_id = ? AND user_id = ?", tileID, userID).
		Count(&n).Error)
	return n
}

func TestGet_NeverRecorded(t *testing.T) {
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	rec, err := repo.Get(context.Background(), tileA, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)

	state, err := repo.GetState(context.Background(), tileA, 1)
	require.NoError(t, err)
	assert.Equal(t, models.NeverRecorded, state)
	assert.False(t, state.IsSaved())
}

func TestUpsert_Idempotent(t *testing.T) {
	ctx := context.Background()
	for _, saved := range []bool{true, false} {
		repo := NewPostgresSavedTileRepository(setupTestDB(t))
		for i := 0; i < 5; i++ {
			rec, err := repo.Upsert(ctx, tileA, 1, saved)
			require.NoError(t, err)
			assert.Equal(t, saved, rec.IsSaved)
		}

		assert.Equal(t, int64(1), countRows(t, repo, tileA, 1))
		rec, err := repo.Get(ctx, tileA, 1)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, saved, rec.IsSaved)
	}
}

func TestUpsert_UpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	_, err := repo.Upsert(ctx, tileA, 1, true)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, tileA, 1, false)
	require.NoError(t, err)

	state, err := repo.GetState(ctx, tileA, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ExplicitlyUnsaved, state)
	assert.Equal(t, int64(1), countRows(t, repo, tileA, 1))
}

func TestUpsert_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	_, err := repo.Upsert(ctx, tileA, 1, true)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, tileA, 2, false)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, tileB, 1, false)
	require.NoError(t, err)

	state, err := repo.GetState(ctx, tileA, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Saved, state)
}

func TestUpsert_ConcurrentWritersSingleRow(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Upsert(ctx, tileA, 1, i%2 == 0)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), countRows(t, repo, tileA, 1))
}

func TestUpsert_ClosedDatabase(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresSavedTileRepository(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec, err := repo.Upsert(context.Background(), tileA, 1, true)
	assert.Error(t, err)
	assert.Nil(t, rec)
}

func TestGetBatch_OnlyRequestedTiles(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	_, err := repo.Upsert(ctx, tileB, 1, true)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, tileC, 1, false)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, tileA, 2, true)
	require.NoError(t, err)

	recs, err := repo.GetBatch(ctx, []string{tileA, tileB}, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, tileB, recs[0].TileID)
	assert.True(t, recs[0].IsSaved)
}

func TestGetBatch_EmptyIssuesNoQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSavedTileRepository(db)

	recs, err := repo.GetBatch(context.Background(), nil, 7)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	recs, err = repo.GetBatch(context.Background(), []string{}, 7)
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBatch_PropagatesStoreError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostgresSavedTileRepository(db)
	connErr := errors.New("connection reset by peer")
	mock.ExpectQuery(".*").WillReturnError(connErr)

	recs, err := repo.GetBatch(context.Background(), []string{tileA}, 7)
	assert.Nil(t, recs)
	assert.ErrorIs(t, err, connErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSavedTileIDs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewPostgresSavedTileRepository(db)

	for _, id := range []string{tileA, tileB, tileC} {
		_, err := repo.Upsert(ctx, id, 1, true)
		require.NoError(t, err)
	}
	_, err := repo.Upsert(ctx, tileB, 1, false)
	require.NoError(t, err)
	// pin timestamps so ordering does not depend on clock resolution
	require.NoError(t, db.Exec("UPDATE saved_tiles SET updated_at = ? WHERE tile_id = ?", "2026-01-01 00:00:00", tileA).Error)
	require.NoError(t, db.Exec("UPDATE saved_tiles SET updated_at = ? WHERE tile_id = ?", "2026-02-01 00:00:00", tileC).Error)

	ids, err := repo.ListSavedTileIDs(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{tileC, tileA}, ids)

	ids, err = repo.ListSavedTileIDs(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{tileA}, ids)
}

func TestUpsert_ReturnsStoredRow(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSavedTileRepository(setupTestDB(t))

	first, err := repo.Upsert(ctx, tileA, 1, true)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	second, err := repo.Upsert(ctx, tileA, 1, false)
	require.NoError(t, err)
	assert.False(t, second.IsSaved)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt), "created_at survives the update: %v vs %v", first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	stored, err := repo.Get(ctx, tileA, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt.Equal(second.CreatedAt))
}
