package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zg0ul/portfolio/internal/api"
	"github.com/zg0ul/portfolio/internal/config"
	"github.com/zg0ul/portfolio/internal/imageproxy"
	"github.com/zg0ul/portfolio/internal/metrics"
	"github.com/zg0ul/portfolio/internal/render"
	"github.com/zg0ul/portfolio/internal/store"
	"github.com/zg0ul/portfolio/internal/tracker"
	"github.com/zg0ul/portfolio/internal/web"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage.
	backend, err := store.Open(cfg, log)
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	projects := metrics.NewInstrumentedStore(backend, cfg.StoreStatsWindow, log)

	// View counting.
	views := tracker.New(projects, tracker.Options{
		QueueSize:     cfg.TrackerQueueSize,
		FlushInterval: cfg.TrackerFlushInterval,
	}, log)
	views.Start(ctx)

	// Image proxy.
	patterns, err := imageproxy.ParsePatterns(cfg.ImageRemotePatterns)
	if err != nil {
		log.Error("invalid IMAGE_REMOTE_PATTERNS", "error", err)
		os.Exit(1)
	}
	imageCache, err := imageproxy.OpenCache(cfg.ImageCacheDir, log)
	if err != nil {
		log.Error("open image cache", "error", err)
		os.Exit(1)
	}
	images := imageproxy.New(imageproxy.Options{
		AllowSVG:   cfg.ImageAllowSVG,
		Patterns:   patterns,
		MaxBytes:   cfg.ImageMaxBytes,
		CacheTTL:   cfg.ImageCacheTTL,
		MaxPerHost: cfg.ImageMaxPerHost,
	}, imageCache, log)

	// Pages.
	renderer := render.New(render.Defaults(cfg.SiteHost(), func(src string) string {
		return imageproxy.URL(src, 1200, 75)
	})...)
	pages, err := web.NewHandler(web.Config{
		Store:        projects,
		Renderer:     renderer,
		Views:        views,
		Site:         web.Site{URL: cfg.SiteURL, Name: cfg.SiteName},
		RelatedLimit: cfg.RelatedProjectsLimit,
		Log:          log,
	})
	if err != nil {
		log.Error("load page templates", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Store:        projects,
		StoreStats:   projects.Snapshot,
		TrackerStats: views.Stats,
		Pages:        pages,
		Images:       images,
		ImagePath:    imageproxy.Path,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		views.Stop()
		imageCache.Close()
		projects.Close()
	}()

	log.Info("starting portfolio", "port", cfg.Port, "store", cfg.StoreBackend, "site", cfg.SiteURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
