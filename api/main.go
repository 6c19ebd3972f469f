package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/ingest"
	"github.com/svetlov/news-admin/internal/logger"
	"github.com/svetlov/news-admin/internal/scraper"
	"github.com/svetlov/news-admin/internal/store"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repo, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Error("open store", slog.Any("err", err), slog.String("driver", cfg.Driver))
		os.Exit(1)
	}

	srv := &server{
		log:      log,
		cfg:      cfg,
		repo:     repo,
		pipeline: ingest.New(repo, log),
		scraper:  scraper.New(cfg.ScraperBaseURL, cfg.ScraperTimeout, log),
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("store", cfg.Driver),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	if err := repo.Close(shutdownCtx); err != nil {
		log.Error("store close", slog.Any("err", err))
	}
}
