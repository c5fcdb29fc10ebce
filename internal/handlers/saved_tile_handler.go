package handlers

import (
	"net/http"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/anonto42/tilehub/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SavedTileHandler serves a user's save state for individual tiles
type SavedTileHandler struct {
	savedTileRepository repositories.SavedTileRepository
	tileRepository      repositories.TileRepository
}

// NewSavedTileHandler creates a new SavedTileHandler
func NewSavedTileHandler(savedTileRepo repositories.SavedTileRepository, tileRepo repositories.TileRepository) *SavedTileHandler {
	return &SavedTileHandler{
		savedTileRepository: savedTileRepo,
		tileRepository:      tileRepo,
	}
}

// RegisterSavedTileRoutes registers routes on a group that requires auth
func (h *SavedTileHandler) RegisterSavedTileRoutes(g *echo.Group) {
	g.GET("/users/:userId/tiles/:tileId", h.GetSaveState)
	g.POST("/users/:userId/tiles/:tileId", h.UpdateSaveState)
}

// GetSaveState returns whether the caller has the tile saved. A tile the
// caller never touched reads as not saved.
func (h *SavedTileHandler) GetSaveState(c echo.Context) error {
	userID, err := requireSelf(c, "userId")
	if err != nil {
		return err
	}
	tileID, err := parseTileID(c.Param("tileId"))
	if err != nil {
		return err
	}

	state, err := h.savedTileRepository.GetState(c.Request().Context(), tileID, userID)
	if err != nil {
		return storeError(c, err, "Failed to load save state")
	}

	return c.JSON(http.StatusOK, models.SaveStateResponse{
		TileID:  tileID,
		UserID:  userID,
		IsSaved: state.IsSaved(),
	})
}

// UpdateSaveState writes the explicit target value from the body (default
// true). The write is not retried; failures reach the client as 500.
func (h *SavedTileHandler) UpdateSaveState(c echo.Context) error {
	userID, err := requireSelf(c, "userId")
	if err != nil {
		return err
	}
	tileID, err := parseTileID(c.Param("tileId"))
	if err != nil {
		return err
	}

	var req models.UpdateSaveStateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
		}
	}
	isSaved := true
	if req.IsSaved != nil {
		isSaved = *req.IsSaved
	}

	ctx := c.Request().Context()
	if _, err := h.tileRepository.GetTileByID(ctx, tileID); err != nil {
		return storeError(c, err, "Failed to load tile")
	}

	rec, err := h.savedTileRepository.Upsert(ctx, tileID, userID, isSaved)
	metrics.RecordSaveWrite(isSaved, err)
	if err != nil {
		return storeError(c, err, "Failed to update save state")
	}

	logrus.WithFields(logrus.Fields{
		"tile_id":  tileID,
		"user_id":  userID,
		"is_saved": rec.IsSaved,
	}).Debug("save state updated")

	return c.JSON(http.StatusOK, models.SaveStateResponse{
		TileID:  rec.TileID,
		UserID:  rec.UserID,
		IsSaved: rec.IsSaved,
	})
}
