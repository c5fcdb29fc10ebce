package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// TileHandler serves tile publishing and the tile listings
type TileHandler struct {
	tileRepository      repositories.TileRepository
	savedTileRepository repositories.SavedTileRepository
	supplierRepository  repositories.SupplierRepository
	userRepository      repositories.UserRepository
}

// NewTileHandler creates a new TileHandler
func NewTileHandler(
	tileRepo repositories.TileRepository,
	savedTileRepo repositories.SavedTileRepository,
	supplierRepo repositories.SupplierRepository,
	userRepo repositories.UserRepository,
) *TileHandler {
	return &TileHandler{
		tileRepository:      tileRepo,
		savedTileRepository: savedTileRepo,
		supplierRepository:  supplierRepo,
		userRepository:      userRepo,
	}
}

// RegisterTileRoutes registers listing routes on public (optional auth)
// and publishing on protected (required auth)
func (h *TileHandler) RegisterTileRoutes(public, protected *echo.Group) {
	public.GET("/tiles", h.GetFeed)
	public.GET("/tiles/:id", h.GetTile)
	public.GET("/suppliers/:id/tiles", h.GetSupplierTiles)
	public.GET("/users/:userId/tiles", h.GetUserTiles)
	protected.POST("/tiles", h.CreateTile)
}

// CreateTile publishes a tile, crediting existing suppliers only
func (h *TileHandler) CreateTile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateTileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	for _, credit := range req.Credits {
		if _, err := h.supplierRepository.GetSupplierByID(ctx, credit.SupplierID); err != nil {
			if errors.Is(err, repositories.ErrSupplierNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unknown supplier %d in credits", credit.SupplierID))
			}
			return storeError(c, err, "Failed to load supplier")
		}
	}

	tile := &models.Tile{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		AuthorID:    currentUserID,
		Credits:     req.Credits,
	}
	if err := h.tileRepository.CreateTile(ctx, tile); err != nil {
		return storeError(c, err, "Failed to create tile")
	}

	return c.JSON(http.StatusCreated, tile)
}

// GetTile returns one tile annotated for the caller
func (h *TileHandler) GetTile(c echo.Context) error {
	tileID, err := parseTileID(c.Param("id"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	tile, err := h.tileRepository.GetTileByID(ctx, tileID)
	if err != nil {
		return storeError(c, err, "Failed to load tile")
	}
	tiles := []models.Tile{*tile}
	if err := annotateSaveState(ctx, h.savedTileRepository, tiles, getUserIDFromContext(c)); err != nil {
		return storeError(c, err, "Failed to load save state")
	}

	return c.JSON(http.StatusOK, tiles[0])
}

// GetFeed returns the newest tiles
func (h *TileHandler) GetFeed(c echo.Context) error {
	viewerID, err := viewerFromQuery(c)
	if err != nil {
		return err
	}
	p := parsePagination(c)
	ctx := c.Request().Context()

	tiles, err := h.tileRepository.GetFeed(ctx, int64(p.Skip()), int64(p.Limit))
	if err != nil {
		return storeError(c, err, "Failed to load tiles")
	}
	total, err := h.tileRepository.CountTiles(ctx)
	if err != nil {
		return storeError(c, err, "Failed to count tiles")
	}

	return h.respondTiles(c, tiles, viewerID, p.meta(total))
}

// GetSupplierTiles lists tiles crediting a supplier
func (h *TileHandler) GetSupplierTiles(c echo.Context) error {
	viewerID, err := viewerFromQuery(c)
	if err != nil {
		return err
	}
	supplierID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid supplier ID")
	}
	p := parsePagination(c)
	ctx := c.Request().Context()

	if _, err := h.supplierRepository.GetSupplierByID(ctx, supplierID); err != nil {
		return storeError(c, err, "Failed to load supplier")
	}
	tiles, err := h.tileRepository.GetTilesBySupplier(ctx, supplierID, int64(p.Skip()), int64(p.Limit))
	if err != nil {
		return storeError(c, err, "Failed to load tiles")
	}

	return h.respondTiles(c, tiles, viewerID, echo.Map{"currentPage": p.Page, "itemsPerPage": p.Limit})
}

// GetUserTiles lists the tiles a user has saved, most recently saved first
func (h *TileHandler) GetUserTiles(c echo.Context) error {
	viewerID, err := viewerFromQuery(c)
	if err != nil {
		return err
	}
	userID, err := parseUintParam(c.Param("userId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	p := parsePagination(c)
	ctx := c.Request().Context()

	if _, err := h.userRepository.GetUserByID(ctx, userID); err != nil {
		return storeError(c, err, "Failed to load user")
	}
	ids, err := h.savedTileRepository.ListSavedTileIDs(ctx, userID, p.Skip(), p.Limit)
	if err != nil {
		return storeError(c, err, "Failed to load saved tiles")
	}
	tiles, err := h.tileRepository.GetTilesByIDs(ctx, ids)
	if err != nil {
		return storeError(c, err, "Failed to load tiles")
	}

	return h.respondTiles(c, tiles, viewerID, echo.Map{"currentPage": p.Page, "itemsPerPage": p.Limit})
}

func (h *TileHandler) respondTiles(c echo.Context, tiles []models.Tile, viewerID uint, meta echo.Map) error {
	if tiles == nil {
		tiles = []models.Tile{}
	}
	if err := annotateSaveState(c.Request().Context(), h.savedTileRepository, tiles, viewerID); err != nil {
		return storeError(c, err, "Failed to load save state")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"tiles": tiles,
		},
		"meta": meta,
	})
}
