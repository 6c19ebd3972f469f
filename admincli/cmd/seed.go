package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/svetlov/news-admin/internal/ingest"
)

var flagSeedCount int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample posts through the ingestion pipeline",
	Long: `Seed pushes a handful of representative posts through the same
normalization pipeline the API and worker use, so the store ends up with
realistic canonical documents: paragraph-keyed content, image descriptors,
tags, and mixed statuses.

Examples:
  newsadmin seed
  newsadmin seed --count 3`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&flagSeedCount, "count", 0, "Number of samples to insert (default: all)")
}

// samplePayloads intentionally covers the messy inbound shapes the
// normalizers accept: wrapped payloads, stringified image lists, single-quoted
// literals, comma-separated tags, and inline image placeholders.
var samplePayloads = []any{
	map[string]any{
		"title":   "City council approves riverside redevelopment plan",
		"content": "The council voted 7-2 on Tuesday to approve the long-debated riverside plan.\n\nConstruction of the first phase is expected to begin next spring.\n\nSee **image_image0** for the proposed layout.",
		"imagesUrl": []any{
			map[string]any{"url": "https://cdn.example.com/riverside-plan.jpg", "caption": "Proposed riverside layout"},
		},
		"tags":       "politics, development",
		"status":     "published",
		"creator":    "city-desk",
		"sourceUrl":  "https://news.example.com/riverside-plan",
		"sourceDate": "2026-08-12 09:30:00",
	},
	map[string]any{
		"data": map[string]any{
			"title":     "Local orchestra announces open-air season",
			"content":   []any{"The orchestra returns to the park this summer with six free concerts.", "Tickets for reserved seating go on sale Friday."},
			"imagesUrl": "['https://cdn.example.com/orchestra.jpg']",
			"tags":      []any{"culture", "music"},
			"status":    "published",
			"sourceUrl": "https://news.example.com/orchestra-season",
		},
	},
	map[string]any{
		"json": map[string]any{
			"title":          "Transit authority tests battery-electric buses",
			"content":        "Three buses enter service on the airport line next month.\n\nThe pilot will run for a full year before any fleet decision.",
			"thumbnailImage": "https://cdn.example.com/ebus-thumb.jpg",
			"imagesUrl":      "{'url': 'https://cdn.example.com/ebus.jpg', 'caption': 'Battery-electric bus on the airport line'}",
			"tags":           "transit",
			"status":         "draft",
			"sourceUrl":      "https://news.example.com/ebus-pilot",
		},
	},
	map[string]any{
		"title":     "Harbor museum extends weekend hours",
		"content":   map[string]any{"p0": "The museum will stay open until 9pm on Saturdays through October.", "p1": "Admission remains free for residents."},
		"tags":      "culture",
		"status":    "archived",
		"sourceUrl": "https://news.example.com/harbor-museum-hours",
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	repo, log, err := openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close(ctx)

	pipeline := ingest.New(repo, log)

	payloads := samplePayloads
	if flagSeedCount > 0 && flagSeedCount < len(payloads) {
		payloads = payloads[:flagSeedCount]
	}

	inserted := 0
	for _, payload := range payloads {
		post, err := pipeline.Ingest(ctx, payload)
		if err != nil {
			log.Warn("sample rejected", slog.Any("err", err))
			continue
		}
		inserted++
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %s  %q (%s)\n", post.ID, post.Title, post.Status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d sample posts\n", inserted, len(payloads))
	return nil
}
