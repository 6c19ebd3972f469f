// Package store persists canonical news posts. The driver is picked at
// process start; everything above this package depends only on
// PostRepository.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/models"
)

// ListParams narrow the list/search surface.
type ListParams struct {
	Page   int
	Limit  int
	Sort   string // "field:asc|desc", defaults to createdAt:desc
	Status models.Status
	Tag    string
	Search string
}

// ListResult bundles one page of posts and the total match count.
type ListResult struct {
	Posts []models.NewsPost
	Total int64
}

// PostRepository is the persistence contract for canonical posts. Writes
// are single-document create/replace/delete; that per-document atomicity is
// the concurrency boundary, and concurrent updates to one id are
// last-write-wins.
type PostRepository interface {
	Create(ctx context.Context, post models.NewsPost) (models.NewsPost, error)
	GetByID(ctx context.Context, id string) (models.NewsPost, error)
	Update(ctx context.Context, id string, post models.NewsPost) (models.NewsPost, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) (ListResult, error)
	Stats(ctx context.Context) ([]models.StatusStat, error)
	PurgeArchived(ctx context.Context, olderThan time.Duration) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store, log *slog.Logger) (PostRepository, error) {
	switch cfg.Driver {
	case "memory":
		return newMemoryStore(cfg.DataFile, log)
	case "elasticsearch":
		return newESStore(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	case "mongodb":
		return newMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, log)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// storedPost is the document shape the remote drivers persist: the
// canonical record plus a flattened lowercase text blob for free-text
// search over title, paragraphs, and tags.
type storedPost struct {
	models.NewsPost `bson:",inline"`
	SearchText      string `json:"search_text" bson:"search_text"`
}

func toStored(post models.NewsPost) storedPost {
	return storedPost{NewsPost: post, SearchText: searchText(post)}
}

func searchText(post models.NewsPost) string {
	parts := make([]string, 0, 2+post.Content.Len()+len(post.Tags))
	parts = append(parts, post.Title)
	parts = append(parts, post.Content.Paragraphs()...)
	parts = append(parts, post.Tags...)
	return strings.ToLower(strings.Join(parts, "\n"))
}

// parseSort splits "field:dir" with createdAt:desc as the default. Only
// known sortable fields are honored.
func parseSort(raw string) (field string, descending bool) {
	field, descending = "createdAt", true

	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	switch parts[0] {
	case "createdAt", "updatedAt", "title", "status", "sourceDate":
		field = parts[0]
	case "":
		return field, descending
	default:
		return field, descending
	}
	if len(parts) == 2 && strings.EqualFold(parts[1], "asc") {
		descending = false
	}
	return field, descending
}

func clampPage(params *ListParams) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}
}
