package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository repositories.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userRepository.GetUserByID(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return storeError(c, err, "Failed to load profile")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, getUserIDFromContext(c))
	if err != nil {
		return storeError(c, err, "Failed to load profile")
	}

	if req.Email != "" && req.Email != user.Email {
		_, err := h.userRepository.GetUserByEmail(ctx, req.Email)
		if err == nil {
			return echo.NewHTTPError(http.StatusConflict, "Email already in use")
		}
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return storeError(c, err, "Failed to check email")
		}
		user.Email = req.Email
	}
	if req.Name != "" {
		user.Name = req.Name
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return storeError(c, err, "Failed to update profile")
	}
	return c.JSON(http.StatusOK, user)
}
