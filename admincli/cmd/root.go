// Package cmd implements the admin CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/logger"
	"github.com/svetlov/news-admin/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "newsadmin",
	Short: "Operator tooling for the news post store",
	Long: `newsadmin talks directly to the configured post store.

The store is selected the same way the services select it: STORE_DRIVER
plus the driver-specific environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRepo opens the store configured in the environment.
func openRepo(ctx context.Context) (store.PostRepository, *slog.Logger, error) {
	log := logger.New("admincli")
	cfg, err := config.LoadStore()
	if err != nil {
		return nil, nil, err
	}
	repo, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return repo, log, nil
}
