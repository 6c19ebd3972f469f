package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print post counts grouped by status",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	repo, _, err := openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	stats, err := repo.Stats(ctx)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "store is empty")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT\tNEWEST\tOLDEST")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Status, s.Count, formatTime(s.Newest), formatTime(s.Oldest))
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
