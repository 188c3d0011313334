// Package cache provides a TTL-bounded request cache keyed by request
// fingerprint. The crawler and detectors share one cache per scan so that a
// probe whose response is already known is never sent twice.
//
// Entries are spread over independently locked shards; unrelated keys never
// contend on the same mutex.
package cache

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/shadowprobe/shadowprobe/pkg/duration"
)

// Key is a request fingerprint: a 128-bit murmur3 digest of the method,
// the URL and a digest of the request parameters.
type Key [2]uint64

// String returns the key as 32 hex characters.
func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k[0], k[1])
}

// Fingerprint derives the cache key for a request. params is the normalized
// parameter string (query, canonical headers, body); callers must normalize
// it so that logically equal requests produce equal strings.
func Fingerprint(method, rawURL, params string) Key {
	var ph [8]byte
	binary.BigEndian.PutUint64(ph[:], murmur3.Sum64([]byte(params)))

	h := murmur3.New128()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{0})
	h.Write([]byte(rawURL))
	h.Write([]byte{0})
	h.Write(ph[:])
	hi, lo := h.Sum128()
	return Key{hi, lo}
}

// FingerprintValues is Fingerprint over url.Values. Encode sorts by key,
// which makes the parameter string order-independent.
func FingerprintValues(method, rawURL string, params url.Values) Key {
	return Fingerprint(method, rawURL, params.Encode())
}

// Config holds cache configuration.
type Config struct {
	// TTL is how long an entry stays valid (default: 1h)
	TTL time.Duration

	// Shards is the number of independently locked partitions (default: 32)
	Shards int

	// Clock returns the current time (default: time.Now)
	Clock func() time.Time
}

// DefaultConfig returns the production cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:    duration.CacheTTL,
		Shards: 32,
		Clock:  time.Now,
	}
}

// Stats is a point-in-time snapshot of the cache.
type Stats struct {
	Total   int   `json:"total"`
	Active  int   `json:"active"`
	Expired int   `json:"expired"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type entry[V any] struct {
	created time.Time
	value   V
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[Key]entry[V]
}

// Cache maps fingerprints to results with TTL expiry.
// It is safe for concurrent use without caller-side locking.
type Cache[V any] struct {
	ttl    time.Duration
	clock  func() time.Time
	shards []*shard[V]

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. Zero config fields take their defaults.
func New[V any](cfg Config) *Cache[V] {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Shards <= 0 {
		cfg.Shards = def.Shards
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}

	c := &Cache[V]{
		ttl:    cfg.TTL,
		clock:  cfg.Clock,
		shards: make([]*shard[V], cfg.Shards),
	}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[Key]entry[V])}
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) shardFor(k Key) *shard[V] {
	return c.shards[k[0]%uint64(len(c.shards))]
}

func (c *Cache[V]) live(e entry[V], now time.Time) bool {
	return now.Sub(e.created) < c.ttl
}

// Get returns the cached value for k. An expired entry is reported as a miss
// and removed.
func (c *Cache[V]) Get(k Key) (V, bool) {
	s := c.shardFor(k)
	now := c.clock()

	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()

	if ok && c.live(e, now) {
		c.hits.Add(1)
		return e.value, true
	}
	c.misses.Add(1)

	if ok {
		s.mu.Lock()
		// A concurrent Set may have refreshed the entry since the read.
		if cur, still := s.entries[k]; still && !c.live(cur, now) {
			delete(s.entries, k)
		}
		s.mu.Unlock()
	}

	var zero V
	return zero, false
}

// Set stores v under k. Concurrent sets of one key are last-write-wins.
func (c *Cache[V]) Set(k Key, v V) {
	s := c.shardFor(k)
	e := entry[V]{created: c.clock(), value: v}
	s.mu.Lock()
	s.entries[k] = e
	s.mu.Unlock()
}

// Contains reports whether k holds a live entry.
func (c *Cache[V]) Contains(k Key) bool {
	_, ok := c.Get(k)
	return ok
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.clock()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !c.live(e, now) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Clear empties the cache unconditionally.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		clear(s.entries)
		s.mu.Unlock()
	}
}

// Stats returns total/active/expired counts without evicting anything.
func (c *Cache[V]) Stats() Stats {
	now := c.clock()
	st := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	for _, s := range c.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			st.Total++
			if c.live(e, now) {
				st.Active++
			} else {
				st.Expired++
			}
		}
		s.mu.RUnlock()
	}
	return st
}
