package imagery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/star/sunclock/internal/metrics"
)

// RefreshConfig controls the periodic overlay download.
type RefreshConfig struct {
	SourceURL string
	Mirrors   []string
	CacheDir  string
	MaxFiles  int
	MaxBytes  int64
	Interval  time.Duration // default: 3h
}

// Refresher keeps Store filled with the latest decoded overlay image,
// mirroring every download to the disk cache.
type Refresher struct {
	fetcher  *Fetcher
	cache    *Cache
	store    *Store
	config   RefreshConfig
	logger   *slog.Logger
	onUpdate func(*Snapshot)
}

// NewRefresher creates a Refresher. onUpdate, when non-nil, is called
// after every successful load with the new snapshot.
func NewRefresher(config RefreshConfig, store *Store, logger *slog.Logger, onUpdate func(*Snapshot)) *Refresher {
	if config.Interval <= 0 {
		config.Interval = 3 * time.Hour
	}
	return &Refresher{
		fetcher:  NewFetcher(config.SourceURL, config.MaxBytes, logger, config.Mirrors...),
		cache:    NewCache(config.CacheDir, config.MaxFiles),
		store:    store,
		config:   config,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// LoadCached publishes the newest cached image, if any.
func (r *Refresher) LoadCached() error {
	data, ts, err := r.cache.LoadLatest()
	if err != nil {
		return err
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("cached overlay: %w", err)
	}
	r.publish(&Snapshot{Image: img, Source: "cache", FetchedAt: ts})
	r.logger.Info("loaded overlay from cache",
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"cached_at", ts.UTC().Format(time.RFC3339),
	)
	return nil
}

// Refresh downloads, decodes, caches and publishes the overlay once.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	start := time.Now()
	data, err := r.fetcher.Fetch(ctx)
	metrics.RecordImageryFetch(time.Since(start), err)
	if err != nil {
		return err
	}

	img, err := DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("%s: %w", r.fetcher.SourceURL(), err)
	}

	now := time.Now()
	if err := r.cache.Write(data, now); err != nil {
		r.logger.Warn("failed to write overlay cache", "error", err)
	}

	r.publish(&Snapshot{Image: img, Source: "remote", FetchedAt: now})
	r.logger.Info("overlay refreshed",
		"bytes", len(data),
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *Refresher) publish(snap *Snapshot) {
	r.store.Set(snap)
	if r.onUpdate != nil {
		r.onUpdate(snap)
	}
}

// Start loads the cached copy, refreshes immediately, then refreshes every
// interval. Blocks until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.LoadCached(); err != nil {
		r.logger.Info("no overlay cache found", "error", err)
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("overlay refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("overlay refresher stopped")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("overlay refresh failed", "error", err)
			}
		}
	}
}
