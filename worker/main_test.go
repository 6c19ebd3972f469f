package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/svetlov/news-admin/internal/dedupe"
	"github.com/svetlov/news-admin/internal/ingest"
	"github.com/svetlov/news-admin/internal/models"
	"github.com/svetlov/news-admin/internal/store"
)

// captureRepo counts writes; enough to observe the worker's dedupe and
// error behavior.
type captureRepo struct {
	created []models.NewsPost
}

func (r *captureRepo) Create(_ context.Context, post models.NewsPost) (models.NewsPost, error) {
	post.ID = fmt.Sprintf("id-%d", len(r.created))
	r.created = append(r.created, post)
	return post, nil
}

func (r *captureRepo) GetByID(_ context.Context, id string) (models.NewsPost, error) {
	return models.NewsPost{}, fmt.Errorf("not implemented")
}

func (r *captureRepo) Update(_ context.Context, id string, post models.NewsPost) (models.NewsPost, error) {
	return models.NewsPost{}, fmt.Errorf("not implemented")
}

func (r *captureRepo) Delete(context.Context, string) error { return nil }

func (r *captureRepo) List(context.Context, store.ListParams) (store.ListResult, error) {
	return store.ListResult{}, nil
}

func (r *captureRepo) Stats(context.Context) ([]models.StatusStat, error) { return nil, nil }

func (r *captureRepo) PurgeArchived(context.Context, time.Duration) (int64, error) { return 0, nil }

func (r *captureRepo) Ping(context.Context) error { return nil }

func (r *captureRepo) Close(context.Context) error { return nil }

func testSetup() (*captureRepo, *ingest.Pipeline, *dedupe.Cache, *slog.Logger) {
	repo := &captureRepo{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return repo, ingest.New(repo, log), dedupe.New(100, time.Hour), log
}

func TestProcessMessageIngestsPost(t *testing.T) {
	repo, pipeline, cache, log := testSetup()

	msg := kafka.Message{Value: []byte(`{
		"title": "Scraped article",
		"content": "First paragraph.\n\nSecond paragraph.",
		"sourceUrl": "https://news.example.com/a",
		"tags": "scraped"
	}`)}

	require.NoError(t, processMessage(context.Background(), log, pipeline, cache, msg))
	require.Len(t, repo.created, 1)
	require.Equal(t, "Scraped article", repo.created[0].Title)
	require.Equal(t, []string{"p0", "p1"}, repo.created[0].Content.Keys())
}

func TestProcessMessageSkipsDuplicates(t *testing.T) {
	repo, pipeline, cache, log := testSetup()

	msg := kafka.Message{Value: []byte(`{
		"title": "Same article",
		"content": "body",
		"sourceUrl": "https://news.example.com/a"
	}`)}

	require.NoError(t, processMessage(context.Background(), log, pipeline, cache, msg))
	require.NoError(t, processMessage(context.Background(), log, pipeline, cache, msg))
	require.Len(t, repo.created, 1)
}

func TestProcessMessageRejectsMalformedJSON(t *testing.T) {
	_, pipeline, cache, log := testSetup()

	msg := kafka.Message{Value: []byte(`{not json`)}
	require.Error(t, processMessage(context.Background(), log, pipeline, cache, msg))
}

func TestProcessMessageRejectsUnresolvablePayload(t *testing.T) {
	_, pipeline, cache, log := testSetup()

	msg := kafka.Message{Value: []byte(`{"foo": "bar"}`)}
	require.Error(t, processMessage(context.Background(), log, pipeline, cache, msg))
}

func TestProcessMessageValidationFailureDoesNotMarkSeen(t *testing.T) {
	repo, pipeline, cache, log := testSetup()

	invalid := kafka.Message{Value: []byte(`{"title": "T", "sourceUrl": "https://news.example.com/a"}`)}
	require.Error(t, processMessage(context.Background(), log, pipeline, cache, invalid))

	// A corrected retry of the same article must not be treated as a
	// duplicate of the failed attempt.
	valid := kafka.Message{Value: []byte(`{"title": "T", "content": "body", "sourceUrl": "https://news.example.com/a"}`)}
	require.NoError(t, processMessage(context.Background(), log, pipeline, cache, valid))
	require.Len(t, repo.created, 1)
}
