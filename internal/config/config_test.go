package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/svetlov/news-admin/internal/config"
)

func TestLoadStoreDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STORE_DATA_FILE", "")
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("MONGODB_URI", "")

	cfg, err := config.LoadStore()
	require.NoError(t, err)

	require.Equal(t, "memory", cfg.Driver)
	require.Equal(t, "data/news-posts.json", cfg.DataFile)
	require.Equal(t, "http://elasticsearch:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "news_posts", cfg.ElasticsearchIndex)
	require.Equal(t, "mongodb://mongo:27017", cfg.MongoURI)
	require.Equal(t, "newsadmin", cfg.MongoDatabase)
	require.Equal(t, "news_posts", cfg.MongoCollection)
}

func TestLoadStoreRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := config.LoadStore()
	require.Error(t, err)
}

func TestLoadAPIDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("API_BIND_ADDR", "")
	t.Setenv("API_PAGE_SIZE", "")
	t.Setenv("API_MAX_PAGE_SIZE", "")
	t.Setenv("SCRAPER_API_URL", "")
	t.Setenv("SCRAPER_TIMEOUT", "")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Equal(t, 10, cfg.DefaultPage)
	require.Equal(t, 100, cfg.MaxPage)
	require.Equal(t, "http://localhost:8000", cfg.ScraperBaseURL)
	require.Equal(t, 10*time.Second, cfg.ScraperTimeout)
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "elasticsearch")
	t.Setenv("ELASTICSEARCH_ADDR", "http://api-es:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "api-index")
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_PAGE_SIZE", "15")
	t.Setenv("API_MAX_PAGE_SIZE", "200")
	t.Setenv("SCRAPER_API_URL", "http://scraper:8000/")
	t.Setenv("SCRAPER_TIMEOUT", "3s")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "elasticsearch", cfg.Driver)
	require.Equal(t, "http://api-es:9200", cfg.ElasticsearchAddr)
	require.Equal(t, "api-index", cfg.ElasticsearchIndex)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 15, cfg.DefaultPage)
	require.Equal(t, 200, cfg.MaxPage)
	require.Equal(t, "http://scraper:8000", cfg.ScraperBaseURL)
	require.Equal(t, 3*time.Second, cfg.ScraperTimeout)
}

func TestLoadAPIRejectsPageSizeAboveMax(t *testing.T) {
	t.Setenv("API_PAGE_SIZE", "500")
	t.Setenv("API_MAX_PAGE_SIZE", "100")

	_, err := config.LoadAPI()
	require.Error(t, err)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongodb")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "custom")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "custom_topic")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_BATCH_SIZE", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, "mongodb", cfg.Driver)
	require.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	require.Equal(t, "custom", cfg.MongoDatabase)
	require.Len(t, cfg.KafkaBrokers, 2)
	require.Equal(t, "broker-a:29092", cfg.KafkaBrokers[0])
	require.Equal(t, "custom_topic", cfg.KafkaTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.BatchSize)
}

func TestLoadWorkerDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Len(t, cfg.KafkaBrokers, 1)
	require.Equal(t, "kafka:9092", cfg.KafkaBrokers[0])
	require.Equal(t, "news_scraped", cfg.KafkaTopic)
	require.Equal(t, "news-ingest", cfg.KafkaConsumer)
	require.Equal(t, 20000, cfg.DedupeCapacity)
	require.Equal(t, 24*time.Hour, cfg.DedupeTTL)
}

func TestLoadRetention(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("RETENTION_INTERVAL", "12h")
	t.Setenv("RETENTION_MAX_AGE", "36h")

	cfg, err := config.LoadRetention()
	require.NoError(t, err)

	require.Equal(t, 12*time.Hour, cfg.Interval)
	require.Equal(t, 36*time.Hour, cfg.MaxAge)
}
