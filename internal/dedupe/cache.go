// Package dedupe suppresses re-submission of posts the worker already
// ingested, keyed by a hash of the post's source identity.
package dedupe

import (
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"
)

// Key derives the dedupe key for a post from its most stable identity
// fields: the source URL when present, otherwise the title.
func Key(sourceURL, title string) string {
	sum := sha1.Sum([]byte(sourceURL + "|" + title))
	return hex.EncodeToString(sum[:])
}

type stamped struct {
	key string
	at  time.Time
}

// Cache is a fixed-size set of recently ingested keys with a TTL. Entries
// fall out when they expire or when capacity forces out the oldest.
type Cache struct {
	mu       sync.Mutex
	seen     map[string]time.Time
	order    []stamped
	capacity int
	ttl      time.Duration
}

// New creates a cache with the provided capacity and ttl.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		seen:     make(map[string]time.Time, capacity),
		order:    make([]stamped, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Seen reports whether the key was remembered inside the ttl window. It
// does not record the key; call Remember after a successful ingest.
func (c *Cache) Seen(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.seen[key]
	return ok && now.Sub(at) <= c.ttl
}

// Remember records that a key was ingested.
func (c *Cache) Remember(key string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[key] = now
	c.order = append(c.order, stamped{key: key, at: now})
	c.evict(now)
}

func (c *Cache) evict(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.seen) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if at, ok := c.seen[oldest.key]; ok && at == oldest.at {
			delete(c.seen, oldest.key)
		}
	}
}
