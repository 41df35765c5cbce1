package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/careops/measuresync/internal/auth"
	"github.com/careops/measuresync/internal/config"
	"github.com/careops/measuresync/internal/db"
	"github.com/careops/measuresync/internal/importer"
	"github.com/careops/measuresync/internal/middleware"
	"github.com/careops/measuresync/internal/preview"
	"github.com/careops/measuresync/internal/registry"
	"github.com/careops/measuresync/internal/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	if err := db.RunMigrations(cfg.Database, cfg.Migrations); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	systems, err := registry.Load(cfg.ConfigDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load system registry")
	}
	logger.Info().Int("systems", len(systems.List())).Str("default", systems.DefaultID()).Msg("system registry loaded")

	measureRepo := repository.NewMeasureRepository(conn)
	auditRepo := repository.NewImportAuditRepository(conn.Pool)

	previews := preview.NewStore()
	previews.Start()
	defer previews.Stop()

	service := importer.NewService(systems, measureRepo, auditRepo, previews, logger)

	mux := http.NewServeMux()
	importer.NewHTTPHandler(service).Register(mux)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := middleware.Logging(logger)(auth.Middleware(corsHandler.Handler(mux)))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("starting import service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}
