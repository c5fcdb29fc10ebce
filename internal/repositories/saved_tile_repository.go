package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/tilehub/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedTileRepository is the source of truth for per-user tile save state
type SavedTileRepository interface {
	// Get returns nil, nil when the user never touched the tile.
	Get(ctx context.Context, tileID string, userID uint) (*models.SavedTile, error)
	GetState(ctx context.Context, tileID string, userID uint) (models.SaveState, error)
	GetBatch(ctx context.Context, tileIDs []string, userID uint) ([]models.SavedTile, error)
	Upsert(ctx context.Context, tileID string, userID uint, isSaved bool) (*models.SavedTile, error)
	ListSavedTileIDs(ctx context.Context, userID uint, skip, limit int) ([]string, error)
}

// PostgresSavedTileRepository implements SavedTileRepository with GORM
type PostgresSavedTileRepository struct {
	db *gorm.DB
}

func NewPostgresSavedTileRepository(db *gorm.DB) *PostgresSavedTileRepository {
	return &PostgresSavedTileRepository{db: db}
}

func (r *PostgresSavedTileRepository) Get(ctx context.Context, tileID string, userID uint) (*models.SavedTile, error) {
	var rec models.SavedTile
	err := r.db.WithContext(ctx).
		Where("tile_id = ? AND user_id = ?", tileID, userID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saved tile %s for user %d: %w", tileID, userID, err)
	}
	return &rec, nil
}

func (r *PostgresSavedTileRepository) GetState(ctx context.Context, tileID string, userID uint) (models.SaveState, error) {
	rec, err := r.Get(ctx, tileID, userID)
	if err != nil {
		return models.NeverRecorded, err
	}
	return models.StateOf(rec), nil
}

// GetBatch loads the records of userID for exactly tileIDs. An empty id
// list returns without issuing a query.
func (r *PostgresSavedTileRepository) GetBatch(ctx context.Context, tileIDs []string, userID uint) ([]models.SavedTile, error) {
	if len(tileIDs) == 0 {
		return []models.SavedTile{}, nil
	}
	var recs []models.SavedTile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tile_id IN ?", userID, tileIDs).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("get saved tiles for user %d: %w", userID, err)
	}
	return recs, nil
}

// Upsert writes the state in a single INSERT ... ON CONFLICT statement so
// concurrent writers for the same key never produce two rows; the last
// statement to reach the database wins. The returned record is the row as
// stored, read back with RETURNING.
func (r *PostgresSavedTileRepository) Upsert(ctx context.Context, tileID string, userID uint, isSaved bool) (*models.SavedTile, error) {
	rec := &models.SavedTile{
		TileID:  tileID,
		UserID:  userID,
		IsSaved: isSaved,
	}
	err := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "tile_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_saved", "updated_at"}),
		},
		clause.Returning{},
	).Create(rec).Error
	if err != nil {
		return nil, fmt.Errorf("upsert saved tile %s for user %d: %w", tileID, userID, err)
	}
	return rec, nil
}

// ListSavedTileIDs returns the tiles userID currently has saved, most
// recently toggled first.
func (r *PostgresSavedTileRepository) ListSavedTileIDs(ctx context.Context, userID uint, skip, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.SavedTile{}).
		Where("user_id = ? AND is_saved = ?", userID, true).
		Order("updated_at DESC").
		Offset(skip).
		Limit(limit).
		Pluck("tile_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list saved tiles for user %d: %w", userID, err)
	}
	return ids, nil
}
