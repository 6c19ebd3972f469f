// Package config loads per-service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store selects and configures the post repository shared by every service.
type Store struct {
	Driver             string // "memory", "elasticsearch", "mongodb"
	DataFile           string // memory driver: JSON file backing the store
	ElasticsearchAddr  string
	ElasticsearchIndex string
	MongoURI           string
	MongoDatabase      string
	MongoCollection    string
}

// API describes the HTTP layer and the scraper gateway it fronts.
type API struct {
	Store
	BindAddr       string
	DefaultPage    int
	MaxPage        int
	ScraperBaseURL string
	ScraperTimeout time.Duration
}

// Worker holds configuration for the Kafka -> repository ingest worker.
type Worker struct {
	Store
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
}

// Retention configures the archived-post purge loop.
type Retention struct {
	Store
	Interval time.Duration
	MaxAge   time.Duration
}

// LoadStore builds just the repository configuration, for tools that need
// the store without a service config around it.
func LoadStore() (Store, error) {
	return loadStore()
}

func loadStore() (Store, error) {
	s := Store{
		Driver:             getEnv("STORE_DRIVER", "memory"),
		DataFile:           getEnv("STORE_DATA_FILE", "data/news-posts.json"),
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news_posts"),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://mongo:27017"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "newsadmin"),
		MongoCollection:    getEnv("MONGODB_COLLECTION", "news_posts"),
	}

	switch s.Driver {
	case "memory", "elasticsearch", "mongodb":
	default:
		return Store{}, fmt.Errorf("STORE_DRIVER %q is not one of memory, elasticsearch, mongodb", s.Driver)
	}
	if s.Driver == "memory" && s.DataFile == "" {
		return Store{}, fmt.Errorf("STORE_DATA_FILE must be set for the memory driver")
	}
	return s, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}

	c := &API{
		Store:          store,
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage:    getInt("API_PAGE_SIZE", 10),
		MaxPage:        getInt("API_MAX_PAGE_SIZE", 100),
		ScraperBaseURL: strings.TrimRight(getEnv("SCRAPER_API_URL", "http://localhost:8000"), "/"),
		ScraperTimeout: getDuration("SCRAPER_TIMEOUT", "10s"),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.ScraperTimeout <= 0 {
		return nil, fmt.Errorf("SCRAPER_TIMEOUT must be positive")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Store:          store,
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "news_scraped"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "news-ingest"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	store, err := loadStore()
	if err != nil {
		return nil, err
	}

	c := &Retention{
		Store:    store,
		Interval: getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:   getDuration("RETENTION_MAX_AGE", "720h"),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
