// Package ingest composes the payload resolver and the normalizers into the
// single write path for news posts. Nothing else writes Content or
// ImagesURL.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/models"
	"github.com/svetlov/news-admin/internal/normalize"
	"github.com/svetlov/news-admin/internal/store"
)

// Pipeline validates and normalizes inbound payloads and performs exactly
// one persistence write per call. It never retries; retries are the
// caller's decision.
type Pipeline struct {
	repo store.PostRepository
	log  *slog.Logger
	now  func() time.Time
}

// New builds a pipeline on top of a repository.
func New(repo store.PostRepository, log *slog.Logger) *Pipeline {
	return &Pipeline{repo: repo, log: log, now: time.Now}
}

// Ingest resolves, normalizes, validates, and persists a new post.
func (p *Pipeline) Ingest(ctx context.Context, raw any) (models.NewsPost, error) {
	obj, err := normalize.ResolvePayload(raw)
	if err != nil {
		return models.NewsPost{}, err
	}

	post, err := p.build(obj, nil)
	if err != nil {
		return models.NewsPost{}, err
	}

	now := p.now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	return p.repo.Create(ctx, post)
}

// Update re-runs normalization against the stored record so paragraph keys
// stay aligned and image ids/captions survive when URLs are unchanged, then
// replaces the document by id.
func (p *Pipeline) Update(ctx context.Context, id string, raw any) (models.NewsPost, error) {
	existing, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return models.NewsPost{}, err
	}

	obj, err := normalize.ResolvePayload(raw)
	if err != nil {
		return models.NewsPost{}, err
	}

	post, err := p.build(obj, &existing)
	if err != nil {
		return models.NewsPost{}, err
	}

	post.ID = id
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = p.now().UTC()
	return p.repo.Update(ctx, id, post)
}

func (p *Pipeline) build(obj *normalize.Object, existing *models.NewsPost) (models.NewsPost, error) {
	title := normalize.StringField(obj, "title")
	if title == "" {
		return models.NewsPost{}, apperr.Validation("title", "title required")
	}

	rawImages, _ := obj.Get("imagesUrl")
	images, warnings := normalize.NormalizeImages(rawImages)
	for _, warning := range warnings {
		p.log.Warn("image normalization fell back to default",
			slog.String("field", warning.Field),
			slog.String("reason", warning.Reason),
		)
	}
	if existing != nil {
		images = mergeImages(images, existing.ImagesURL)
	}
	for i := range images {
		if images[i].ID == "" {
			images[i].ID = fmt.Sprintf("img%d", i)
		}
	}

	var existingBody models.ContentBody
	if existing != nil {
		existingBody = existing.Content
	}
	rawContent, _ := obj.Get("content")
	body, err := normalize.NormalizeContent(rawContent, existingBody, images)
	if err != nil {
		return models.NewsPost{}, err
	}

	post := models.NewsPost{
		Title:          title,
		Content:        body,
		Status:         models.ParseStatus(normalize.StringField(obj, "status")),
		Creator:        normalize.StringField(obj, "creator"),
		SourceURL:      normalize.StringField(obj, "sourceUrl"),
		ThumbnailImage: normalize.StringField(obj, "thumbnailImage"),
		ImagesURL:      images,
		Tags:           normalizeTags(obj),
	}

	if raw := normalize.StringField(obj, "sourceDate"); raw != "" {
		if ts := parseTimestamp(raw); !ts.IsZero() {
			post.SourceDate = &ts
		} else {
			p.log.Warn("unparseable sourceDate dropped", slog.String("value", raw))
		}
	}
	return post, nil
}

// mergeImages carries id and caption over from the stored list for entries
// whose URL did not change.
func mergeImages(images []models.ImageRef, existing models.ImageList) []models.ImageRef {
	byURL := make(map[string]models.ImageRef, len(existing))
	for _, ref := range existing {
		if ref.URL != "" {
			byURL[ref.URL] = ref
		}
	}
	for i, ref := range images {
		prev, ok := byURL[ref.URL]
		if !ok || ref.URL == "" {
			continue
		}
		if ref.ID == "" {
			images[i].ID = prev.ID
		}
		if ref.Caption == "" {
			images[i].Caption = prev.Caption
		}
	}
	return images
}

// normalizeTags accepts a string list or the dashboard form's
// comma-separated string, trimming and deduplicating while keeping first
// occurrence order.
func normalizeTags(obj *normalize.Object) []string {
	raw, _ := obj.Get("tags")

	var candidates []string
	switch v := raw.(type) {
	case string:
		candidates = strings.Split(v, ",")
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	tags := make([]string, 0, len(candidates))
	for _, tag := range candidates {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func parseTimestamp(raw string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if ts, err := time.Parse(format, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
