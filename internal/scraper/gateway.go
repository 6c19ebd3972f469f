// Package scraper is the client for the external scraper service's
// monitoring API. The scraper itself is a remote collaborator; this package
// only implements the status/stats/progress/trigger contract the dashboard
// consumes.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Gateway calls the scraper's monitoring endpoints with a bounded per-call
// timeout. Read calls degrade to an error-status payload instead of failing
// the dashboard page; only Trigger propagates its error.
type Gateway struct {
	baseURL string
	hc      *http.Client
	log     *slog.Logger
}

// New builds a gateway for the given base URL.
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Scheduler mirrors the scraper's scheduler block.
type Scheduler struct {
	IsRunning bool    `json:"is_running"`
	NextRun   *string `json:"next_run"`
	LastRun   *string `json:"last_run"`
}

// Status is the scraper's health/scheduler snapshot.
type Status struct {
	Status            string         `json:"status"`
	Message           string         `json:"message,omitempty"`
	Scheduler         Scheduler      `json:"scheduler"`
	EnabledSources    []string       `json:"enabled_sources"`
	LastScrapeResults map[string]any `json:"last_scrape_results,omitempty"`
}

// Stats is the scraper's article-count summary.
type Stats struct {
	Status        string           `json:"status,omitempty"`
	Message       string           `json:"message,omitempty"`
	TotalArticles int64            `json:"total_articles"`
	Sources       map[string]int64 `json:"sources"`
	LastRun       *string          `json:"last_run"`
}

// Progress is the coerced shape of the scraper's loosely structured
// progress payload.
type Progress struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	JobID     string  `json:"job_id,omitempty"`
	Source    string  `json:"source,omitempty"`
	Percent   float64 `json:"percent"`
	Processed int64   `json:"processed"`
	Total     int64   `json:"total"`
}

// TriggerResult acknowledges a scrape trigger.
type TriggerResult struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

// GetStatus returns the scraper status, or a degraded error-status snapshot
// when the call fails.
func (g *Gateway) GetStatus(ctx context.Context) Status {
	var status Status
	if err := g.getJSON(ctx, "/api/v1/monitoring/status", &status); err != nil {
		g.log.Warn("scraper status unavailable", slog.Any("err", err))
		return Status{Status: "error", Message: "scraper service unavailable", EnabledSources: []string{}}
	}
	if status.Status == "" {
		status.Status = "ok"
	}
	if status.EnabledSources == nil {
		status.EnabledSources = []string{}
	}
	return status
}

// GetStats returns the scraper stats, or zeroed counts when the call fails.
func (g *Gateway) GetStats(ctx context.Context) Stats {
	var stats Stats
	if err := g.getJSON(ctx, "/api/v1/monitoring/stats", &stats); err != nil {
		g.log.Warn("scraper stats unavailable", slog.Any("err", err))
		return Stats{Status: "error", Message: "scraper service unavailable", Sources: map[string]int64{}}
	}
	if stats.Sources == nil {
		stats.Sources = map[string]int64{}
	}
	return stats
}

// GetProgress returns the current scrape progress. The upstream payload is
// loosely shaped, so it is decoded generically and coerced field by field.
func (g *Gateway) GetProgress(ctx context.Context) Progress {
	var raw map[string]any
	if err := g.getJSON(ctx, "/api/v1/monitoring/progress", &raw); err != nil {
		g.log.Warn("scraper progress unavailable", slog.Any("err", err))
		return Progress{Status: "error", Message: "scraper service unavailable"}
	}
	return coerceProgress(raw)
}

// Trigger starts a scrape run, optionally for a single source. Unlike the
// read calls, failures propagate to the caller.
func (g *Gateway) Trigger(ctx context.Context, source string) (TriggerResult, error) {
	endpoint := g.baseURL + "/api/v1/monitoring/trigger"
	if source != "" {
		endpoint += "?source=" + url.QueryEscape(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("build trigger request: %w", err)
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("trigger scrape: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TriggerResult{}, fmt.Errorf("trigger scrape: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var result TriggerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return TriggerResult{}, fmt.Errorf("decode trigger response: %w", err)
	}
	return result, nil
}

func (g *Gateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := g.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s returned %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func coerceProgress(raw map[string]any) Progress {
	p := Progress{Status: "ok"}
	if s, ok := raw["status"].(string); ok && s != "" {
		p.Status = s
	}
	if s, ok := raw["message"].(string); ok {
		p.Message = s
	}
	if s, ok := raw["job_id"].(string); ok {
		p.JobID = s
	}
	for _, key := range []string{"current_source", "source"} {
		if s, ok := raw[key].(string); ok && s != "" {
			p.Source = s
			break
		}
	}
	for _, key := range []string{"percent", "progress"} {
		if n, ok := asNumber(raw[key]); ok {
			p.Percent = n
			break
		}
	}
	for _, key := range []string{"processed", "articles_scraped", "current"} {
		if n, ok := asNumber(raw[key]); ok {
			p.Processed = int64(n)
			break
		}
	}
	if n, ok := asNumber(raw["total"]); ok {
		p.Total = int64(n)
	}
	// Derive the percentage when the upstream only reports counts.
	if p.Percent == 0 && p.Total > 0 {
		p.Percent = float64(p.Processed) / float64(p.Total) * 100
	}
	return p
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
