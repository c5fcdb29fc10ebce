package handlers

import (
	"context"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
)

// annotateSaveState sets IsSaved on every tile for viewerID in one batch
// lookup. viewerID 0 is anonymous: everything is unsaved and the store is
// not consulted. Tiles are updated in place, so order and length hold.
func annotateSaveState(ctx context.Context, store repositories.SavedTileRepository, tiles []models.Tile, viewerID uint) error {
	for i := range tiles {
		tiles[i].IsSaved = false
	}
	if viewerID == 0 || len(tiles) == 0 {
		return nil
	}

	ids := make([]string, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID.Hex()
	}
	recs, err := store.GetBatch(ctx, ids, viewerID)
	if err != nil {
		return err
	}

	saved := make(map[string]bool, len(recs))
	for _, r := range recs {
		saved[r.TileID] = r.IsSaved
	}
	for i := range tiles {
		tiles[i].IsSaved = saved[ids[i]]
	}
	return nil
}
