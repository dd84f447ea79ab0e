package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/sunclock/internal/api"
	"github.com/star/sunclock/internal/auth"
	"github.com/star/sunclock/internal/clock"
	"github.com/star/sunclock/internal/composite"
	"github.com/star/sunclock/internal/config"
	"github.com/star/sunclock/internal/imagery"
	"github.com/star/sunclock/internal/metrics"
	"github.com/star/sunclock/internal/stream"
	"github.com/star/sunclock/web"
)

// Size of the generated plates used when no day/night images are configured.
const plateWidth, plateHeight = 720, 360

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: $SUNCLOCK_CONFIG)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	day, night, err := loadPlates(ctx, cfg.World, logger)
	if err != nil {
		logger.Error("failed to load map images", "error", err)
		os.Exit(1)
	}

	clockCfg, _ := cfg.ClockConfig()
	interp, _ := imagery.ParseInterpolator(cfg.World.Interpolator)

	if clockCfg.Start.IsZero() {
		clockCfg.Start = time.Now()
	}

	world, err := composite.NewWorld(day, night,
		composite.WithTime(clockCfg.Start),
		composite.WithWorkers(cfg.World.Workers),
		composite.WithInterpolator(interp),
		composite.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to build world map", "error", err)
		os.Exit(1)
	}

	clk, err := clock.New(clockCfg, world, logger)
	if err != nil {
		logger.Error("invalid clock configuration", "error", err)
		os.Exit(1)
	}

	streamHandler := stream.NewHandler(clk, stream.Config{
		MaxConcurrentPerIP: cfg.Stream.MaxConcurrentPerIP,
		MaxConcurrent:      cfg.Stream.MaxConcurrent,
		KeepaliveInterval:  cfg.Stream.KeepaliveInterval,
		TrustProxy:         cfg.HTTP.TrustProxy,
	}, logger)

	srv := api.NewServer(api.Config{
		Addr:         cfg.HTTP.Addr,
		TrustProxy:   cfg.HTTP.TrustProxy,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		MaxImageSize: cfg.HTTP.MaxImageSize,
		Workers:      cfg.World.Workers,
		Auth: auth.Config{
			Enabled:   cfg.Auth.Enabled,
			Token:     cfg.Auth.Token,
			JWTSecret: cfg.Auth.JWTSecret,
			JWTIssuer: cfg.Auth.JWTIssuer,
		},
	}, world, clk, streamHandler, web.Content, logger)

	if cfg.Overlay.SourceURL != "" {
		startOverlay(ctx, cfg.Overlay, srv, logger)
	}

	// Warm the composite so the first map request is served from cache.
	w, h := world.Size()
	if _, err := world.Render(w, h); err != nil {
		logger.Error("initial render failed", "error", err)
		os.Exit(1)
	}
	srv.SetReady(true)

	go clk.Start(ctx)

	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"auth_enabled", cfg.Auth.Enabled,
			"clock_mode", string(clk.Mode()),
			"overlay_enabled", cfg.Overlay.SourceURL != "",
			"map_width", w,
			"map_height", h,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// loadPlates loads the configured day and night images, or generates
// placeholder plates when none are configured.
func loadPlates(ctx context.Context, cfg config.WorldConfig, logger *slog.Logger) (day, night image.Image, err error) {
	if cfg.Day == "" {
		logger.Warn("no day/night images configured, using generated plates",
			"width", plateWidth, "height", plateHeight)
		d, n := imagery.Plates(plateWidth, plateHeight)
		return d, n, nil
	}

	day, err = imagery.Load(ctx, cfg.Day)
	if err != nil {
		return nil, nil, err
	}
	night, err = imagery.Load(ctx, cfg.Night)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded map images",
		"day", cfg.Day,
		"night", cfg.Night,
		"width", day.Bounds().Dx(),
		"height", day.Bounds().Dy(),
	)
	return day, night, nil
}

// startOverlay runs the cloud refresher and swaps a new overlay into the
// server after each successful load.
func startOverlay(ctx context.Context, cfg config.OverlayConfig, srv *api.Server, logger *slog.Logger) {
	store := imagery.NewStore()
	refresher := imagery.NewRefresher(imagery.RefreshConfig{
		SourceURL: cfg.SourceURL,
		Mirrors:   cfg.Mirrors,
		CacheDir:  cfg.CacheDir,
		MaxFiles:  cfg.MaxFiles,
		MaxBytes:  cfg.MaxBytes,
		Interval:  cfg.Interval,
	}, store, logger, func(snap *imagery.Snapshot) {
		o, err := composite.NewOverlay(snap.Image, cfg.Opacity)
		if err != nil {
			logger.Warn("failed to build overlay", "source", snap.Source, "error", err)
			return
		}
		srv.SetOverlay(o)
	})
	go refresher.Start(ctx)

	// Background goroutine to update the overlay age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetOverlayAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
