package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/svetlov/news-admin/internal/dedupe"
)

func TestKeyIsStable(t *testing.T) {
	a := dedupe.Key("https://example.com/a", "Title")
	b := dedupe.Key("https://example.com/a", "Title")
	require.NotEmpty(t, a)
	require.Equal(t, a, b)
	require.NotEqual(t, a, dedupe.Key("https://example.com/b", "Title"))
}

func TestCacheRemembersWithinTTL(t *testing.T) {
	cache := dedupe.New(10, time.Minute)
	key := dedupe.Key("https://example.com/a", "Title")

	require.False(t, cache.Seen(key))
	cache.Remember(key)
	require.True(t, cache.Seen(key))
}

func TestCacheTTLExpiry(t *testing.T) {
	cache := dedupe.New(10, 20*time.Millisecond)
	cache.Remember("beta")
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.Seen("beta"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := dedupe.New(1, time.Minute)
	cache.Remember("first")
	cache.Remember("second")

	require.False(t, cache.Seen("first"))
	require.True(t, cache.Seen("second"))
}
