package store_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/models"
	"github.com/svetlov/news-admin/internal/store"
)

func openMemory(t *testing.T) store.PostRepository {
	t.Helper()
	cfg := config.Store{
		Driver:   "memory",
		DataFile: filepath.Join(t.TempDir(), "posts.json"),
	}
	repo, err := store.Open(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return repo
}

func samplePost(title string, status models.Status, createdAt time.Time) models.NewsPost {
	body := models.NewContentBody()
	body.Set("p0", "body of "+title)
	return models.NewsPost{
		Title:     title,
		Content:   body,
		Status:    status,
		Tags:      []string{"news"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, samplePost("First", models.StatusDraft, time.Now().UTC()))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Title, got.Title)
	require.Equal(t, created.Content.Keys(), got.Content.Keys())
}

func TestMemoryStoreCreateConflict(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	post := samplePost("First", models.StatusDraft, time.Now().UTC())
	post.ID = "fixed-id"

	_, err := repo.Create(ctx, post)
	require.NoError(t, err)

	_, err = repo.Create(ctx, post)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	repo := openMemory(t)

	_, err := repo.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, samplePost("First", models.StatusDraft, time.Now().UTC()))
	require.NoError(t, err)

	created.Title = "Renamed"
	updated, err := repo.Update(ctx, created.ID, created)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, created.ID), apperr.ErrNotFound)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	repo := openMemory(t)

	_, err := repo.Update(context.Background(), "nope", samplePost("X", models.StatusDraft, time.Now().UTC()))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStoreListFiltersAndPaginates(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []models.Status{
		models.StatusPublished, models.StatusPublished, models.StatusPublished, models.StatusDraft,
	} {
		post := samplePost("Post", status, base.Add(time.Duration(i)*time.Hour))
		post.Title = post.Title + " " + string(rune('A'+i))
		_, err := repo.Create(ctx, post)
		require.NoError(t, err)
	}

	result, err := repo.List(ctx, store.ListParams{Page: 1, Limit: 2, Status: models.StatusPublished})
	require.NoError(t, err)
	require.EqualValues(t, 3, result.Total)
	require.Len(t, result.Posts, 2)
	// Default sort is createdAt descending.
	require.Equal(t, "Post C", result.Posts[0].Title)
	require.Equal(t, "Post B", result.Posts[1].Title)

	result, err = repo.List(ctx, store.ListParams{Page: 2, Limit: 2, Status: models.StatusPublished})
	require.NoError(t, err)
	require.Len(t, result.Posts, 1)
	require.Equal(t, "Post A", result.Posts[0].Title)

	result, err = repo.List(ctx, store.ListParams{Page: 9, Limit: 2, Status: models.StatusPublished})
	require.NoError(t, err)
	require.Empty(t, result.Posts)
	require.EqualValues(t, 3, result.Total)
}

func TestMemoryStoreListSortAscending(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for _, title := range []string{"Bravo", "Alpha", "Charlie"} {
		_, err := repo.Create(ctx, samplePost(title, models.StatusPublished, base))
		require.NoError(t, err)
	}

	result, err := repo.List(ctx, store.ListParams{Page: 1, Limit: 10, Sort: "title:asc"})
	require.NoError(t, err)
	require.Equal(t, "Alpha", result.Posts[0].Title)
	require.Equal(t, "Bravo", result.Posts[1].Title)
	require.Equal(t, "Charlie", result.Posts[2].Title)
}

func TestMemoryStoreListByTag(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	tagged := samplePost("Tagged", models.StatusPublished, time.Now().UTC())
	tagged.Tags = []string{"culture", "music"}
	_, err := repo.Create(ctx, tagged)
	require.NoError(t, err)

	_, err = repo.Create(ctx, samplePost("Plain", models.StatusPublished, time.Now().UTC()))
	require.NoError(t, err)

	result, err := repo.List(ctx, store.ListParams{Page: 1, Limit: 10, Tag: "music"})
	require.NoError(t, err)
	require.Len(t, result.Posts, 1)
	require.Equal(t, "Tagged", result.Posts[0].Title)
}

func TestMemoryStoreListSearch(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	orchestra := samplePost("Orchestra season opens", models.StatusPublished, time.Now().UTC())
	_, err := repo.Create(ctx, orchestra)
	require.NoError(t, err)

	_, err = repo.Create(ctx, samplePost("Transit pilot", models.StatusPublished, time.Now().UTC()))
	require.NoError(t, err)

	result, err := repo.List(ctx, store.ListParams{Page: 1, Limit: 10, Search: "ORCHESTRA"})
	require.NoError(t, err)
	require.Len(t, result.Posts, 1)
	require.Equal(t, "Orchestra season opens", result.Posts[0].Title)
}

func TestMemoryStoreStats(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, samplePost("P", models.StatusPublished, base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, samplePost("D", models.StatusDraft, base))
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, models.StatusPublished, stats[0].Status)
	require.EqualValues(t, 3, stats[0].Count)
	require.Equal(t, base.Add(2*time.Hour), stats[0].Newest)
	require.Equal(t, base, stats[0].Oldest)
}

func TestMemoryStorePurgeArchived(t *testing.T) {
	repo := openMemory(t)
	ctx := context.Background()

	stale := samplePost("Stale", models.StatusArchived, time.Now().UTC())
	stale.UpdatedAt = time.Now().Add(-48 * time.Hour)
	_, err := repo.Create(ctx, stale)
	require.NoError(t, err)

	fresh := samplePost("Fresh", models.StatusArchived, time.Now().UTC())
	_, err = repo.Create(ctx, fresh)
	require.NoError(t, err)

	published := samplePost("Old but published", models.StatusPublished, time.Now().UTC())
	published.UpdatedAt = time.Now().Add(-48 * time.Hour)
	_, err = repo.Create(ctx, published)
	require.NoError(t, err)

	purged, err := repo.PurgeArchived(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	result, err := repo.List(ctx, store.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Posts, 2)
}

func TestMemoryStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Store{
		Driver:   "memory",
		DataFile: filepath.Join(t.TempDir(), "posts.json"),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := store.Open(ctx, cfg, log)
	require.NoError(t, err)
	created, err := repo.Create(ctx, samplePost("Durable", models.StatusPublished, time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx))

	reopened, err := store.Open(ctx, cfg, log)
	require.NoError(t, err)
	got, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Durable", got.Title)
	require.Equal(t, created.Content.Keys(), got.Content.Keys())
}
