package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/fhir2swagger/internal/config"
	"github.com/ehr/fhir2swagger/internal/domain/apidoc"
	"github.com/ehr/fhir2swagger/internal/platform/auth"
	"github.com/ehr/fhir2swagger/internal/platform/db"
	"github.com/ehr/fhir2swagger/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated documents over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("port", "8000", "listen port")
	cmd.Flags().StringP("output", "o", "./outputs", "directory generated documents are read from")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var pool *pgxpool.Pool
	repo := apidoc.NewFileRepo(cfg.OutputDir)
	if cfg.DatabaseURL != "" {
		var err error
		if pool, err = openDatabase(ctx, cfg); err != nil {
			return err
		}
		defer pool.Close()
		repo = apidoc.NewDocumentRepoPG(pool)
		logger.Info().Msg("connected to database")
	}

	e := newServer(cfg, logger, pool, repo)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance. pool may be nil when documents are
// served from disk.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, repo apidoc.DocumentRepository) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())

	e.GET("/health", db.HealthHandler(pool))

	var mw []echo.MiddlewareFunc
	if cfg.AuthEnabled() {
		mw = append(mw, auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	} else if !cfg.IsDev() {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set, documents are served without authentication")
	}

	svc := apidoc.NewService(nil, nil, apidoc.WithRepositories(repo), apidoc.WithLogger(logger))
	apidoc.NewHandler(svc).RegisterRoutes(e, mw...)
	return e
}
