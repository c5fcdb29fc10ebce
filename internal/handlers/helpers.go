package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/tilehub/backend/internal/middleware"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

func getUserIDFromContext(c echo.Context) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// requireSelf authorizes a request against the user id in the path. It
// fails with 401 when there is no caller or the caller is someone else.
func requireSelf(c echo.Context, param string) (uint, error) {
	callerID := getUserIDFromContext(c)
	if callerID == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	pathID, err := parseUintParam(c.Param(param))
	if err != nil || pathID != callerID {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "Not allowed to act for this user")
	}
	return callerID, nil
}

// viewerFromQuery resolves whose save state annotates a listing. Without
// authUserId the authenticated caller (or nobody) is the viewer; with it,
// the value must name the caller.
func viewerFromQuery(c echo.Context) (uint, error) {
	callerID := getUserIDFromContext(c)
	raw := c.QueryParam("authUserId")
	if raw == "" {
		return callerID, nil
	}
	requested, err := parseUintParam(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid authUserId")
	}
	if callerID == 0 || requested != callerID {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authUserId does not match the authenticated user")
	}
	return callerID, nil
}

func parseUintParam(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, repositories.ErrInvalidID
	}
	return uint(id), nil
}

// parseTileID returns the canonical lowercase hex form, which is the form
// save records and listings key on.
func parseTileID(raw string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "Invalid tile ID")
	}
	return oid.Hex(), nil
}

type pagination struct {
	Page  int
	Limit int
}

func (p pagination) Skip() int {
	return (p.Page - 1) * p.Limit
}

func parsePagination(c echo.Context) pagination {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return pagination{Page: page, Limit: limit}
}

func (p pagination) meta(totalItems int64) echo.Map {
	totalPages := int(math.Ceil(float64(totalItems) / float64(p.Limit)))
	return echo.Map{
		"currentPage":     p.Page,
		"totalPages":      totalPages,
		"totalItems":      totalItems,
		"itemsPerPage":    p.Limit,
		"hasNextPage":     p.Page < totalPages,
		"hasPreviousPage": p.Page > 1,
	}
}

// storeError maps repository errors to HTTP errors. Anything that is not a
// known lookup miss is a data-layer failure: logged and surfaced as 500.
func storeError(c echo.Context, err error, msg string) error {
	switch {
	case errors.Is(err, repositories.ErrTileNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Tile not found")
	case errors.Is(err, repositories.ErrSupplierNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Supplier not found")
	case errors.Is(err, repositories.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, repositories.ErrInvalidID):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid ID")
	}
	logrus.WithFields(logrus.Fields{
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"route":      c.Path(),
	}).WithError(err).Error(msg)
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}
