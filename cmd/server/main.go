package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nickbreaton/video-slug/internal/config"
	"github.com/nickbreaton/video-slug/internal/gc"
	"github.com/nickbreaton/video-slug/internal/handler"
	"github.com/nickbreaton/video-slug/internal/manager"
	"github.com/nickbreaton/video-slug/internal/middleware"
	"github.com/nickbreaton/video-slug/internal/registry"
	"github.com/nickbreaton/video-slug/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.VideosDir(), 0o755); err != nil {
		logger.Fatal("creating videos directory", zap.Error(err))
	}

	logger.Info("video-slug starting",
		zap.String("listen", cfg.ListenAddr),
		zap.String("videosDir", cfg.VideosDir()),
		zap.String("downloader", cfg.DownloaderBin),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	videoStore, err := store.NewPostgresVideoStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connecting to store", zap.Error(err))
	}
	defer videoStore.Close()

	reg := registry.New()
	mgr := manager.New(videoStore, reg, logger, cfg.DownloaderBin, cfg.VideosDir(), cfg.RegistryTTL)
	h := handler.NewHandlers(videoStore, reg, mgr, cfg.VideosDir(), logger)

	go gc.New(videoStore, cfg.VideosDir(), cfg.GCInterval, logger).Run(ctx)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Range"},
		ExposedHeaders:   []string{"Content-Range", "Accept-Ranges", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", h.Routes())

	srv := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: progress subscriptions and video playback are
		// long-lived streaming responses.
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
