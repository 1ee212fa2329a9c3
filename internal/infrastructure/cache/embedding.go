package cache

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
)

const (
	// maxKeyLength bounds memory and collision risk for near-duplicate long
	// inputs. Lossy on purpose: two texts sharing the first 1000 characters
	// collide.
	maxKeyLength = 1000

	defaultBaseTTL = 15 * time.Minute
	defaultMaxTTL  = 60 * time.Minute
	defaultMaxSize = 500
)

type entry struct {
	embedding  []float32
	createdAt  time.Time
	lastAccess time.Time
	hits       uint64
}

// EmbeddingCache is an in-process, adaptive-TTL, LRU-evicting cache from
// normalized text to embedding vectors. Entries that are read often live
// longer, up to maxTTL.
type EmbeddingCache struct {
	baseTTL time.Duration
	maxTTL  time.Duration
	maxSize int
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

type Option func(*EmbeddingCache)

func WithTTL(base, max time.Duration) Option {
	return func(c *EmbeddingCache) {
		if base > 0 {
			c.baseTTL = base
		}
		if max >= c.baseTTL {
			c.maxTTL = max
		}
	}
}

func WithMaxSize(size int) Option {
	return func(c *EmbeddingCache) {
		if size > 0 {
			c.maxSize = size
		}
	}
}

// WithClock replaces the time source in tests.
func WithClock(now func() time.Time) Option {
	return func(c *EmbeddingCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewEmbeddingCache(opts ...Option) *EmbeddingCache {
	c := &EmbeddingCache{
		baseTTL: defaultBaseTTL,
		maxTTL:  defaultMaxTTL,
		maxSize: defaultMaxSize,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	key := normalizeKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := c.now()
	if now.Sub(e.createdAt) > c.adaptiveTTL(e.hits) {
		delete(c.entries, key)
		c.expired++
		c.misses++
		return nil, false
	}

	e.hits++
	e.lastAccess = now
	c.hits++
	return e.embedding, true
}

func (c *EmbeddingCache) Set(text string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}
	key := normalizeKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.embedding = embedding
		e.createdAt = now
		e.lastAccess = now
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &entry{
		embedding:  embedding,
		createdAt:  now,
		lastAccess: now,
	}
}

func (c *EmbeddingCache) Stats() ports.EmbeddingCacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.EmbeddingCacheStats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}

// adaptiveTTL grows logarithmically with the entry's hit count:
// ttl = min(maxTTL, baseTTL * (1 + ln(hits+1))).
func (c *EmbeddingCache) adaptiveTTL(hits uint64) time.Duration {
	ttl := time.Duration(float64(c.baseTTL) * (1 + math.Log(float64(hits)+1)))
	if ttl > c.maxTTL {
		return c.maxTTL
	}
	return ttl
}

// evictOldest drops the entry with the oldest last access. A full scan is
// O(n) but n is capped at maxSize.
func (c *EmbeddingCache) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func normalizeKey(text string) string {
	key := strings.ToLower(strings.TrimSpace(text))
	if len(key) > maxKeyLength {
		key = key[:maxKeyLength]
	}
	return key
}
