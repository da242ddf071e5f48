package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/api"
	"github.com/andresuchdata/autopo-reorder/internal/cache"
	"github.com/andresuchdata/autopo-reorder/internal/config"
	"github.com/andresuchdata/autopo-reorder/internal/provider"
	"github.com/andresuchdata/autopo-reorder/internal/repository/postgres"
	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/andresuchdata/autopo-reorder/internal/storage"
	"github.com/andresuchdata/autopo-reorder/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.Configure(os.Stdout, cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	snapshots, err := cache.NewSnapshotCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Snapshot cache unavailable, continuing without it")
		snapshots = cache.NewNoopSnapshotCache()
	}

	var source provider.MetricProvider = provider.NewRawProvider(db.DB)
	if cfg.Reorder.UseMart {
		source = provider.NewFallbackProvider(provider.NewMartProvider(db.DB), source, cfg.Reorder.FallbackOnAnyError)
	}
	cached := provider.NewCached(source, snapshots)

	var objects storage.ObjectStorage
	if cfg.Storage.Enabled {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, draft export disabled")
		} else {
			objects = client
		}
	}

	reorderService := service.NewReorderService(cached, postgres.NewDraftPORepository(db), objects, cfg.Reorder)

	router := api.NewRouter(&api.Services{ReorderService: reorderService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	admin := &http.Server{
		Addr: ":" + cfg.Server.AdminPort,
		Handler: api.NewAdminRouter(map[string]api.ReadinessCheck{
			"database": db.PingContext,
			"cache":    snapshots.Ping,
		}, cached),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	for name, s := range map[string]*http.Server{"api": srv, "admin": admin} {
		go func(name string, s *http.Server) {
			logger.Log.Info().Str("listener", name).Str("addr", s.Addr).Msg("Starting server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Fatal().Err(err).Str("listener", name).Msg("Failed to start server")
			}
		}(name, s)
	}

	// Wait for interrupt signal to gracefully shut down the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := admin.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Admin listener forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
