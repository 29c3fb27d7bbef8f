// Package cache keeps recent query results so that sessions showing the
// same view share one execution. Entries go least recently used first, and
// all at once when the underlying table changes.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/query"
)

// Config holds cache configuration
type Config struct {
	MaxEntries int           // Entries kept before evicting (default: 64)
	MaxAge     time.Duration // Zero keeps entries until evicted or cleared
}

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	return Config{
		MaxEntries: 64,
		MaxAge:     10 * time.Minute,
	}
}

// Stats tracks cache performance
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Shared     int64 `json:"shared"`
	Evictions  int64 `json:"evictions"`
	EntryCount int   `json:"entry_count"`
}

type entry struct {
	key     string
	dataset *domain.Dataset
	created time.Time
}

// Cache is a query.Executor in front of another one. Cached datasets are
// shared between callers and must not be modified.
type Cache struct {
	mu         sync.Mutex
	exec       query.Executor
	maxEntries int
	maxAge     time.Duration
	entries    map[string]*list.Element
	order      *list.List
	generation uint64
	stats      Stats
	group      singleflight.Group
	now        func() time.Time
}

// New wraps exec with a cache
func New(exec query.Executor, config Config) *Cache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultConfig().MaxEntries
	}
	return &Cache{
		exec:       exec,
		maxEntries: config.MaxEntries,
		maxAge:     config.MaxAge,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Execute returns the cached result for q or runs it. Concurrent misses on
// the same query run it once.
func (c *Cache) Execute(ctx context.Context, q query.Query) (*domain.Dataset, error) {
	key := Key(q)

	c.mu.Lock()
	if ds, ok := c.lookup(key); ok {
		c.stats.Hits++
		c.mu.Unlock()
		return ds, nil
	}
	c.stats.Misses++
	gen := c.generation
	c.mu.Unlock()

	v, err, shared := c.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (interface{}, error) {
		ds, err := c.exec.Execute(ctx, q)
		if err != nil {
			return nil, err
		}
		c.put(key, ds, gen)
		return ds, nil
	})
	if shared {
		c.mu.Lock()
		c.stats.Shared++
		c.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.Dataset), nil
}

// lookup must be called with c.mu held
func (c *Cache) lookup(key string) (*domain.Dataset, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.maxAge > 0 && c.now().Sub(e.created) > c.maxAge {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.dataset, true
}

func (c *Cache) put(key string, ds *domain.Dataset, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Cleared while running; the result may predate the change
	if gen != c.generation {
		return
	}
	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).dataset = ds
		el.Value.(*entry).created = c.now()
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, dataset: ds, created: c.now()})
	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
		c.stats.Evictions++
	}
}

// Clear drops every entry. Queries already running are not cached.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.generation++
	c.mu.Unlock()

	if n > 0 {
		log.Printf("[Cache] Cleared %d entries", n)
	}
}

// GetStats returns a copy of the cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.EntryCount = len(c.entries)
	return s
}

// Key identifies a query. Filter clause order does not matter.
func Key(q query.Query) string {
	h := sha256.New()
	fmt.Fprintf(h, "table=%s\n", q.Table)
	for _, s := range q.Splits {
		fmt.Fprintf(h, "split=%s/%s/%s/%g/%d\n", s.Dimension, s.Kind, s.Grain, s.BucketSize, s.Limit)
	}
	for _, m := range q.Measures {
		fmt.Fprintf(h, "measure=%s\n", m)
	}
	clauses := make([]string, len(q.Filter.Clauses))
	for i, cl := range q.Filter.Clauses {
		clauses[i] = cl.String()
	}
	sort.Strings(clauses)
	fmt.Fprintf(h, "filter=%s\n", strings.Join(clauses, "\x00"))
	if q.Location != nil {
		fmt.Fprintf(h, "location=%s\n", q.Location)
	}
	return hex.EncodeToString(h.Sum(nil))
}
