package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/svetlov/news-admin/internal/apperr"
	"github.com/svetlov/news-admin/internal/models"
)

// mongoStore persists posts in a MongoDB collection, one document per post,
// keyed by a string _id.
type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	log    *slog.Logger
}

func newMongoStore(ctx context.Context, uri, database, collection string, log *slog.Logger) (*mongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &mongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
		log:    log,
	}, nil
}

func (s *mongoStore) Create(ctx context.Context, post models.NewsPost) (models.NewsPost, error) {
	if post.ID == "" {
		post.ID = primitive.NewObjectID().Hex()
	}
	if _, err := s.coll.InsertOne(ctx, toStored(post)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.NewsPost{}, fmt.Errorf("post %s already exists: %w", post.ID, apperr.ErrConflict)
		}
		return models.NewsPost{}, fmt.Errorf("insert post: %w", err)
	}
	return post, nil
}

func (s *mongoStore) GetByID(ctx context.Context, id string) (models.NewsPost, error) {
	var stored storedPost
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewsPost{}, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("find post: %w", err)
	}
	return stored.NewsPost, nil
}

func (s *mongoStore) Update(ctx context.Context, id string, post models.NewsPost) (models.NewsPost, error) {
	post.ID = id
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, toStored(post))
	if err != nil {
		return models.NewsPost{}, fmt.Errorf("replace post: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.NewsPost{}, fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	return post, nil
}

func (s *mongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *mongoStore) List(ctx context.Context, params ListParams) (ListResult, error) {
	clampPage(&params)

	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = params.Status
	}
	if params.Tag != "" {
		filter["tags"] = params.Tag
	}
	if params.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(params.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"search_text": pattern},
			bson.M{"tags": pattern},
		}
	}

	sortField, descending := parseSort(params.Sort)
	direction := 1
	if descending {
		direction = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: direction}}).
		SetSkip(int64((params.Page - 1) * params.Limit)).
		SetLimit(int64(params.Limit))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return ListResult{}, fmt.Errorf("find posts: %w", err)
	}
	var stored []storedPost
	if err := cursor.All(ctx, &stored); err != nil {
		return ListResult{}, fmt.Errorf("decode posts: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("count posts: %w", err)
	}

	posts := make([]models.NewsPost, 0, len(stored))
	for _, doc := range stored {
		posts = append(posts, doc.NewsPost)
	}
	return ListResult{Posts: posts, Total: total}, nil
}

func (s *mongoStore) Stats(ctx context.Context) ([]models.StatusStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "newest", Value: bson.D{{Key: "$max", Value: "$createdAt"}}},
			{Key: "oldest", Value: bson.D{{Key: "$min", Value: "$createdAt"}}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "status", Value: "$_id"},
			{Key: "count", Value: 1},
			{Key: "newest", Value: 1},
			{Key: "oldest", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	var stats []models.StatusStat
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}

func (s *mongoStore) PurgeArchived(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.coll.DeleteMany(ctx, bson.M{
		"status":    models.StatusArchived,
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("purge archived: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
