package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/models"
)

// esStore persists posts in a single Elasticsearch index, one document per
// post, keyed by post id.
type esStore struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

func newESStore(addr, index string, log *slog.Logger) (*esStore, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &esStore{es: es, index: index, log: log}, nil
}

func (s *esStore) Create(ctx context.Context, post models.NewsPost) (models.NewsPost, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	payload, err := json.Marshal(toStored(post))
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("marshal post: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: post.ID,
		Body:       bytes.NewReader(payload),
		OpType:     "create",
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("index post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return models.NewsPost{}, fmt.Errorf("post %s already exists: %w", post.ID, apperr.ErrConflict)
	}
	if res.IsError() {
		return models.NewsPost{}, esError("index post", res)
	}
	return post, nil
}

func (s *esStore) GetByID(ctx context.Context, id string) (models.NewsPost, error) {
	req := esapi.GetRequest{Index: s.index, DocumentID: id}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("get post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return models.NewsPost{}, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	if res.IsError() {
		return models.NewsPost{}, esError("get post", res)
	}

	var parsed struct {
		Source storedPost `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return models.NewsPost{}, fmt.Errorf("decode get response: %w", err)
	}
	return parsed.Source.NewsPost, nil
}

func (s *esStore) Update(ctx context.Context, id string, post models.NewsPost) (models.NewsPost, error) {
	// Replace-by-id requires the document to exist already.
	if _, err := s.GetByID(ctx, id); err != nil {
		return models.NewsPost{}, err
	}

	post.ID = id
	payload, err := json.Marshal(toStored(post))
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("marshal post: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "wait_for",
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("replace post: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return models.NewsPost{}, esError("replace post", res)
	}
	return post, nil
}

func (s *esStore) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: s.index, DocumentID: id, Refresh: "wait_for"}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	if res.IsError() {
		return esError("delete post", res)
	}
	return nil
}

func (s *esStore) List(ctx context.Context, params ListParams) (ListResult, error) {
	clampPage(&params)

	must := make([]map[string]any, 0, 1)
	filters := make([]map[string]any, 0, 2)

	if params.Search != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  params.Search,
				"fields": []string{"title^2", "search_text", "tags"},
			},
		})
	}
	if params.Status != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"status.keyword": params.Status},
		})
	}
	if params.Tag != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"tags.keyword": params.Tag},
		})
	}

	boolQuery := map[string]any{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}
	if len(must) == 0 && len(filters) == 0 {
		boolQuery["must"] = []map[string]any{{"match_all": map[string]any{}}}
	}

	sortField, descending := parseSort(params.Sort)
	if sortField == "title" || sortField == "status" {
		sortField += ".keyword"
	}
	order := "asc"
	if descending {
		order = "desc"
	}

	body := map[string]any{
		"from":             (params.Page - 1) * params.Limit,
		"size":             params.Limit,
		"track_total_hits": true,
		"query":            map[string]any{"bool": boolQuery},
		"sort":             []map[string]any{{sortField: map[string]any{"order": order}}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ListResult{}, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return ListResult{}, esError("search", res)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source storedPost `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return ListResult{}, fmt.Errorf("decode search response: %w", err)
	}

	posts := make([]models.NewsPost, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		posts = append(posts, hit.Source.NewsPost)
	}
	return ListResult{Posts: posts, Total: parsed.Hits.Total.Value}, nil
}

func (s *esStore) Stats(ctx context.Context) ([]models.StatusStat, error) {
	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"statuses": map[string]any{
				"terms": map[string]any{"field": "status.keyword"},
				"aggs": map[string]any{
					"newest": map[string]any{"max": map[string]any{"field": "createdAt"}},
					"oldest": map[string]any{"min": map[string]any{"field": "createdAt"}},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal stats body: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, esError("stats", res)
	}

	var parsed struct {
		Aggregations struct {
			Statuses struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
					Newest   struct {
						ValueAsString string `json:"value_as_string"`
					} `json:"newest"`
					Oldest struct {
						ValueAsString string `json:"value_as_string"`
					} `json:"oldest"`
				} `json:"buckets"`
			} `json:"statuses"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode stats response: %w", err)
	}

	stats := make([]models.StatusStat, 0, len(parsed.Aggregations.Statuses.Buckets))
	for _, bucket := range parsed.Aggregations.Statuses.Buckets {
		stat := models.StatusStat{Status: models.Status(bucket.Key), Count: bucket.DocCount}
		if ts, err := time.Parse(time.RFC3339, bucket.Newest.ValueAsString); err == nil {
			stat.Newest = ts
		}
		if ts, err := time.Parse(time.RFC3339, bucket.Oldest.ValueAsString); err == nil {
			stat.Oldest = ts
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func (s *esStore) PurgeArchived(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []map[string]any{
					{"term": map[string]any{"status.keyword": models.StatusArchived}},
					{"range": map[string]any{"updatedAt": map[string]any{"lte": cutoff}}},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal purge body: %w", err)
	}

	res, err := s.es.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(payload),
		s.es.DeleteByQuery.WithContext(ctx),
		s.es.DeleteByQuery.WithWaitForCompletion(true),
		s.es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return 0, fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, esError("delete by query", res)
	}

	var parsed struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode purge response: %w", err)
	}
	return parsed.Deleted, nil
}

func (s *esStore) Ping(ctx context.Context) error {
	res, err := s.es.Cluster.Health(s.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return esError("cluster health", res)
	}
	return nil
}

func (s *esStore) Close(context.Context) error { return nil }

func esError(op string, res *esapi.Response) error {
	data, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s failed: %s", op, strings.TrimSpace(string(data)))
}
