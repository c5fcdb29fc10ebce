package router

import (
	"context"
	"fmt"

	"github.com/anonto42/tilehub/backend/internal/handlers"
	"github.com/anonto42/tilehub/backend/internal/middleware"
	"github.com/anonto42/tilehub/backend/internal/models"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the stores and auth collaborators the routes need
type Dependencies struct {
	Users      repositories.UserRepository
	Suppliers  repositories.SupplierRepository
	Tiles      repositories.TileRepository
	SavedTiles repositories.SavedTileRepository

	Auth     middleware.Authenticator
	Tokens   *middleware.JWTAuthenticator
	Firebase middleware.TokenVerifier // optional
}

// AutoMigrate creates the PostgreSQL tables
func AutoMigrate(pgdb *gorm.DB) error {
	if err := pgdb.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.SavedTile{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logrus.Info("PostgreSQL auto-migrations completed")
	return nil
}

// EnsureIndexes creates the MongoDB indexes when the tile store supports it
func EnsureIndexes(ctx context.Context, tiles repositories.TileRepository) error {
	if ix, ok := tiles.(interface{ EnsureIndexes(context.Context) error }); ok {
		return ix.EnsureIndexes(ctx)
	}
	return nil
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	e.GET("/health", handlers.HealthCheck)

	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Tokens, deps.Firebase)
	authHandler.RegisterAuthRoutes(authGroup)

	// Same prefix, different auth: listings personalise when a token is
	// present, writes always need one.
	public := e.Group("/api/v1", middleware.OptionalAuth(deps.Auth))
	protected := e.Group("/api/v1", middleware.RequireAuth(deps.Auth))

	handlers.NewUserHandler(deps.Users).RegisterProfileRoutes(protected)
	handlers.NewSupplierHandler(deps.Suppliers).RegisterSupplierRoutes(public, protected)
	handlers.NewTileHandler(deps.Tiles, deps.SavedTiles, deps.Suppliers, deps.Users).RegisterTileRoutes(public, protected)
	handlers.NewSavedTileHandler(deps.SavedTiles, deps.Tiles).RegisterSavedTileRoutes(protected)

	logrus.WithField("routes", len(e.Routes())).Info("All routes configured")
}
