package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/tilehub/backend/internal/middleware"
	"github.com/anonto42/tilehub/backend/internal/repositories"
	"github.com/anonto42/tilehub/backend/internal/router"
	"github.com/anonto42/tilehub/backend/pkg/config"
	"github.com/anonto42/tilehub/backend/pkg/firebase"
	"github.com/anonto42/tilehub/backend/pkg/metrics"
	"github.com/anonto42/tilehub/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "tilehub",
		Short:         "Wedding supplier discovery API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("tilehub exited")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetupLogging(cfg)
	return cfg, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create PostgreSQL tables and MongoDB indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.InitDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.CloseDB()

			if err := router.AutoMigrate(db.Postgres); err != nil {
				return err
			}
			return router.EnsureIndexes(cmd.Context(), repositories.NewMongoTileRepository(db.MongoDB))
		},
	}
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	users := repositories.NewPostgresUserRepository(db.Postgres)
	tiles := repositories.NewMongoTileRepository(db.MongoDB)
	if migrate {
		if err := router.AutoMigrate(db.Postgres); err != nil {
			return err
		}
		if err := router.EnsureIndexes(ctx, tiles); err != nil {
			return err
		}
	}

	tokens := middleware.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	deps := router.Dependencies{
		Users:      users,
		Suppliers:  repositories.NewPostgresSupplierRepository(db.Postgres),
		Tiles:      tiles,
		SavedTiles: repositories.NewPostgresSavedTileRepository(db.Postgres),
		Auth:       tokens,
		Tokens:     tokens,
	}
	if cfg.AuthProvider == config.AuthProviderFirebase {
		fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		deps.Firebase = fb.AuthClient
		deps.Auth = middleware.Authenticators{tokens, middleware.NewFirebaseAuthenticator(fb.AuthClient, users)}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg)
	router.SetupRoutes(e, deps)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Port).Info("API listening")
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logrus.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	return e.Shutdown(shutdownCtx)
}
