package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/models"
)

// memoryStore keeps every post in a single JSON file on disk. It exists for
// development and single-node deployments without a database; the file is
// re-read and re-written around every operation so edits survive restarts
// and stay inspectable.
type memoryStore struct {
	path string
	log  *slog.Logger

	// sem serializes file access; a chan-based lock keeps Close trivial.
	sem chan struct{}
}

func newMemoryStore(path string, log *slog.Logger) (*memoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &memoryStore{path: path, log: log, sem: make(chan struct{}, 1)}, nil
}

func (s *memoryStore) lock() func() {
	s.sem <- struct{}{}
	return func() { <-s.sem }
}

func (s *memoryStore) load() []models.NewsPost {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("read data file", slog.Any("err", err))
		}
		return nil
	}
	var posts []models.NewsPost
	if err := json.Unmarshal(data, &posts); err != nil {
		s.log.Warn("parse data file, starting empty", slog.Any("err", err))
		return nil
	}
	return posts
}

func (s *memoryStore) save(posts []models.NewsPost) error {
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal posts: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *memoryStore) Create(_ context.Context, post models.NewsPost) (models.NewsPost, error) {
	defer s.lock()()

	posts := s.load()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	for _, existing := range posts {
		if existing.ID == post.ID {
			return models.NewsPost{}, fmt.Errorf("post %s already exists: %w", post.ID, apperr.ErrConflict)
		}
	}
	posts = append(posts, post)
	if err := s.save(posts); err != nil {
		return models.NewsPost{}, err
	}
	return post, nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (models.NewsPost, error) {
	defer s.lock()()

	for _, post := range s.load() {
		if post.ID == id {
			return post, nil
		}
	}
	return models.NewsPost{}, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
}

func (s *memoryStore) Update(_ context.Context, id string, post models.NewsPost) (models.NewsPost, error) {
	defer s.lock()()

	posts := s.load()
	for i := range posts {
		if posts[i].ID == id {
			post.ID = id
			posts[i] = post
			if err := s.save(posts); err != nil {
				return models.NewsPost{}, err
			}
			return post, nil
		}
	}
	return models.NewsPost{}, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	defer s.lock()()

	posts := s.load()
	kept := posts[:0]
	for _, post := range posts {
		if post.ID != id {
			kept = append(kept, post)
		}
	}
	if len(kept) == len(posts) {
		return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	return s.save(kept)
}

func (s *memoryStore) List(_ context.Context, params ListParams) (ListResult, error) {
	defer s.lock()()
	clampPage(&params)

	matched := make([]models.NewsPost, 0)
	needle := strings.ToLower(strings.TrimSpace(params.Search))
	for _, post := range s.load() {
		if params.Status != "" && post.Status != params.Status {
			continue
		}
		if params.Tag != "" && !containsTag(post.Tags, params.Tag) {
			continue
		}
		if needle != "" && !strings.Contains(searchText(post), needle) {
			continue
		}
		matched = append(matched, post)
	}

	sortPosts(matched, params.Sort)

	total := int64(len(matched))
	from := (params.Page - 1) * params.Limit
	if from >= len(matched) {
		return ListResult{Posts: []models.NewsPost{}, Total: total}, nil
	}
	to := from + params.Limit
	if to > len(matched) {
		to = len(matched)
	}
	return ListResult{Posts: matched[from:to], Total: total}, nil
}

func (s *memoryStore) Stats(_ context.Context) ([]models.StatusStat, error) {
	defer s.lock()()

	byStatus := make(map[models.Status]*models.StatusStat)
	for _, post := range s.load() {
		stat, ok := byStatus[post.Status]
		if !ok {
			stat = &models.StatusStat{Status: post.Status, Newest: post.CreatedAt, Oldest: post.CreatedAt}
			byStatus[post.Status] = stat
		}
		stat.Count++
		if post.CreatedAt.After(stat.Newest) {
			stat.Newest = post.CreatedAt
		}
		if post.CreatedAt.Before(stat.Oldest) {
			stat.Oldest = post.CreatedAt
		}
	}

	stats := make([]models.StatusStat, 0, len(byStatus))
	for _, stat := range byStatus {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Status < stats[j].Status
	})
	return stats, nil
}

func (s *memoryStore) PurgeArchived(_ context.Context, olderThan time.Duration) (int64, error) {
	defer s.lock()()

	cutoff := time.Now().Add(-olderThan)
	posts := s.load()
	kept := posts[:0]
	var purged int64
	for _, post := range posts {
		if post.Status == models.StatusArchived && post.UpdatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, post)
	}
	if purged == 0 {
		return 0, nil
	}
	return purged, s.save(kept)
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close(context.Context) error { return nil }

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortPosts(posts []models.NewsPost, rawSort string) {
	field, descending := parseSort(rawSort)
	sort.SliceStable(posts, func(i, j int) bool {
		less := lessByField(posts[i], posts[j], field)
		if descending {
			return lessByField(posts[j], posts[i], field)
		}
		return less
	})
}

func lessByField(a, b models.NewsPost, field string) bool {
	switch field {
	case "title":
		return a.Title < b.Title
	case "status":
		return a.Status < b.Status
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "sourceDate":
		return timeOrZero(a.SourceDate).Before(timeOrZero(b.SourceDate))
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
