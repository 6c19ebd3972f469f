package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/svetlov/news-admin/internal/config"
	"github.com/svetlov/news-admin/internal/dedupe"
	"github.com/svetlov/news-admin/internal/ingest"
	"github.com/svetlov/news-admin/internal/logger"
	"github.com/svetlov/news-admin/internal/normalize"
	"github.com/svetlov/news-admin/internal/store"
)

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repo, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		log.Error("open store", slog.Any("err", err), slog.String("driver", cfg.Driver))
		os.Exit(1)
	}
	defer repo.Close(context.Background())

	pipeline := ingest.New(repo, log)
	cache := dedupe.New(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic + "_dlq",
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaTopic+"_dlq"),
		slog.String("store", cfg.Driver),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, pipeline, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			dlqMsg := kafka.Message{
				Value: msg.Value,
				Headers: append(msg.Headers,
					kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
					kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
					kafka.Header{Key: "error", Value: []byte(err.Error())},
					kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
				),
			}

			// Retry DLQ write with exponential backoff. Only commit when the
			// DLQ write landed; otherwise the message is reprocessed on
			// restart.
			dlqSuccess := false
			for attempt := 0; attempt < 5; attempt++ {
				if dlqErr := dlqWriter.WriteMessages(ctx, dlqMsg); dlqErr == nil {
					dlqSuccess = true
					log.Info("message sent to DLQ",
						slog.Int("partition", msg.Partition),
						slog.Int64("offset", msg.Offset),
						slog.Int("attempt", attempt+1),
					)
					break
				} else {
					backoff := time.Duration(1<<uint(attempt)) * time.Second
					log.Warn("DLQ write failed, retrying",
						slog.Any("err", dlqErr),
						slog.Int("attempt", attempt+1),
						slog.Duration("backoff", backoff),
					)
					select {
					case <-time.After(backoff):
					case <-ctx.Done():
						log.Info("context canceled during DLQ retry")
						return
					}
				}
			}

			if dlqSuccess {
				if err := reader.CommitMessages(ctx, msg); err != nil {
					log.Error("commit failed message to dlq", slog.Any("err", err))
				}
			} else {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
			}
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// processMessage ingests one scraped payload. Duplicate payloads are a
// success (skipped, committed, never DLQ'd); malformed payloads return an
// error so the caller routes them to the DLQ.
func processMessage(ctx context.Context, log *slog.Logger, pipeline *ingest.Pipeline, cache *dedupe.Cache, msg kafka.Message) error {
	raw, err := normalize.DecodeValue(msg.Value)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	obj, err := normalize.ResolvePayload(raw)
	if err != nil {
		return err
	}

	key := dedupe.Key(normalize.StringField(obj, "sourceUrl"), normalize.StringField(obj, "title"))
	if cache.Seen(key) {
		log.Debug("duplicate post skipped", slog.String("key", key))
		return nil
	}

	post, err := pipeline.Ingest(ctx, raw)
	if err != nil {
		return err
	}

	cache.Remember(key)
	log.Info("post ingested", slog.String("id", post.ID), slog.String("title", post.Title))
	return nil
}
