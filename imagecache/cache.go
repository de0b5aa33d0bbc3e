// Package imagecache deduplicates and bounds image downloads. Each URL maps to
// one Handle; handles that have not been requested for a while are evicted
// once the cache grows past its high-water mark.
package imagecache

import (
	"context"
	"image"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	DefaultHighWater = 5000
	DefaultLowWater  = 4000
)

// Fetcher downloads and decodes one image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

type FetcherFunc func(ctx context.Context, url string) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (image.Image, error) {
	return f(ctx, url)
}

type Option func(*Cache)

// WithWaterMarks sets the size that triggers eviction and the size eviction
// trims back to.
func WithWaterMarks(high, low int) Option {
	return func(c *Cache) {
		if low > high {
			low = high
		}
		c.high = high
		c.low = low
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithContext sets the context every fetch runs under. Cancelling it aborts
// all in-flight downloads.
func WithContext(ctx context.Context) Option {
	return func(c *Cache) { c.ctx = ctx }
}

type Cache struct {
	fetcher Fetcher
	high    int
	low     int
	logger  logrus.FieldLogger
	metrics *Metrics
	ctx     context.Context

	mu       sync.Mutex
	entries  map[string]*Handle
	lastUsed map[string]uint64
	counter  uint64
}

func New(fetcher Fetcher, opts ...Option) *Cache {
	silent := logrus.New()
	silent.SetOutput(io.Discard)
	c := &Cache{
		fetcher:  fetcher,
		high:     DefaultHighWater,
		low:      DefaultLowWater,
		logger:   silent,
		ctx:      context.Background(),
		entries:  make(map[string]*Handle),
		lastUsed: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request returns the handle for url, starting a download if none is cached.
// Every call counts as a use for eviction purposes. A handle that was
// rejected is replaced, so a failed image is fetched again on the next
// request.
func (c *Cache) Request(url string) *Handle {
	c.mu.Lock()
	c.lastUsed[url] = c.counter
	c.counter++
	if h, ok := c.entries[url]; ok && h.State() != Rejected {
		c.mu.Unlock()
		c.metrics.hit()
		return h
	}
	h := newHandle(url)
	c.entries[url] = h
	c.trim()
	size := len(c.entries)
	c.mu.Unlock()

	c.metrics.miss(size)
	go c.fetch(h)
	return h
}

func (c *Cache) fetch(h *Handle) {
	img, err := c.fetcher.Fetch(c.ctx, h.url)
	if err != nil {
		c.metrics.failure()
		c.logger.WithError(err).WithField("url", h.url).Debug("image load failed")
	}
	h.settle(img, err)
}

// IsCached reports whether url has a live entry. It does not count as a use.
func (c *Cache) IsCached(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.entries[url]
	return ok && h.State() != Rejected
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// trim evicts the least recently requested entries once the cache exceeds
// the high-water mark. Callers hold c.mu.
func (c *Cache) trim() {
	if len(c.entries) <= c.high {
		return
	}
	type stamped struct {
		url   string
		stamp uint64
	}
	all := make([]stamped, 0, len(c.entries))
	for url := range c.entries {
		all = append(all, stamped{url, c.lastUsed[url]})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].stamp < all[j].stamp })
	evict := len(all) - c.low
	for _, e := range all[:evict] {
		delete(c.entries, e.url)
		delete(c.lastUsed, e.url)
	}
	c.metrics.evicted(evict)
	c.logger.WithFields(logrus.Fields{"evicted": evict, "size": len(c.entries)}).Debug("trimmed image cache")
}
