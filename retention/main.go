package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/logger"
	"github.com/svetlov/news-admin/internal/store"
)

func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Retry store connectivity with backoff; the database may still be
	// coming up when this container starts.
	var repo store.PostRepository
	maxRetries := 10
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		repo, err = store.Open(ctx, cfg.Store, log)
		if err != nil {
			log.Warn("failed to open store, retrying",
				slog.Any("err", err),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
			)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := repo.Ping(pingCtx)
			cancel()
			if pingErr == nil {
				break
			}
			log.Warn("store ping failed, retrying",
				slog.Any("err", pingErr),
				slog.Int("attempt", i+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_in", retryDelay),
			)
			repo.Close(ctx)
			repo = nil
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			log.Info("shutdown signal received during startup")
			os.Exit(0)
		}
		retryDelay *= 2
		if retryDelay > 30*time.Second {
			retryDelay = 30 * time.Second
		}
	}

	if repo == nil {
		log.Error("failed to connect to store after retries")
		os.Exit(1)
	}
	defer repo.Close(context.Background())

	log.Info("connected to store", slog.String("driver", cfg.Driver))

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	// Run immediately on start; a failed run waits for the next tick.
	runOnce(ctx, log, repo, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, repo, cfg)
		}
	}
}

func runOnce(ctx context.Context, log *slog.Logger, repo store.PostRepository, cfg *config.Retention) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := repo.PurgeArchived(subCtx, cfg.MaxAge)
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	if deleted > 0 {
		log.Info("retention run completed", slog.Int64("deleted", deleted))
	} else {
		log.Debug("retention run completed, no stale archived posts found")
	}
}
