package pinpoint

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// ContentKey identifies a cached snapshot: a source URL or a fact ID
// within a project.
type ContentKey struct {
	ProjectID string
	Target    string
}

func (k ContentKey) String() string {
	return k.ProjectID + "\x00" + k.Target
}

// FetchFunc produces the content for a key. It must honor ctx.
type FetchFunc func(ctx context.Context) (*SourceContent, error)

type inflight struct {
	cancel context.CancelFunc
	done   chan struct{}

	content *SourceContent
	err     error
}

// ContentCache is the keyed store of fetched source content. Entries
// expire after a staleness window and are invalidated when a source is
// reprocessed. Concurrent requests for the same key share one in-flight
// fetch; switching projects clears everything wholesale so content never
// leaks across projects.
type ContentCache struct {
	mu      sync.Mutex
	store   *gocache.Cache
	pending map[string]*inflight

	prefetchCap int
	prefetching int

	log zerolog.Logger
}

// NewContentCache creates a cache whose entries expire after ttl.
// prefetchCap bounds concurrent opportunistic prefetches.
func NewContentCache(ttl time.Duration, prefetchCap int, log zerolog.Logger) *ContentCache {
	if prefetchCap <= 0 {
		prefetchCap = 2
	}
	return &ContentCache{
		store:       gocache.New(ttl, 2*ttl),
		pending:     make(map[string]*inflight),
		prefetchCap: prefetchCap,
		log:         log,
	}
}

// Resolve returns the cached snapshot for key, joining an in-flight fetch
// when one exists, and otherwise issuing fetch. Exactly one fetch runs
// per key at a time.
func (c *ContentCache) Resolve(ctx context.Context, key ContentKey, fetch FetchFunc) (*SourceContent, error) {
	ks := key.String()

	c.mu.Lock()
	if cached, ok := c.store.Get(ks); ok {
		c.mu.Unlock()
		return cached.(*SourceContent), nil
	}
	if fl, ok := c.pending[ks]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.content, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fl := c.startFetch(ks, fetch)
	c.mu.Unlock()

	select {
	case <-fl.done:
		return fl.content, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startFetch must be called with the lock held.
func (c *ContentCache) startFetch(ks string, fetch FetchFunc) *inflight {
	fctx, cancel := context.WithCancel(context.Background())
	fl := &inflight{cancel: cancel, done: make(chan struct{})}
	c.pending[ks] = fl

	go func() {
		content, err := fetch(fctx)

		c.mu.Lock()
		if c.pending[ks] == fl {
			delete(c.pending, ks)
			if err == nil && content != nil {
				c.store.SetDefault(ks, content)
			}
		} else {
			// superseded or cleared while fetching: discard silently
			content, err = nil, context.Canceled
		}
		c.mu.Unlock()

		fl.content, fl.err = content, err
		close(fl.done)
		cancel()
	}()

	return fl
}

// Prefetch opportunistically warms the cache for key. It does nothing
// when the entry is cached or already being fetched, or when the
// concurrent prefetch cap is reached. Prefetch results and failures are
// discarded silently.
func (c *ContentCache) Prefetch(key ContentKey, fetch FetchFunc) {
	ks := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(ks); ok {
		return
	}
	if _, ok := c.pending[ks]; ok {
		return
	}
	if c.prefetching >= c.prefetchCap {
		return
	}

	c.prefetching++
	fl := c.startFetch(ks, fetch)
	go func() {
		<-fl.done
		c.mu.Lock()
		c.prefetching--
		c.mu.Unlock()
		if fl.err != nil && fl.err != context.Canceled {
			c.log.Debug().Str("key", ks).Err(fl.err).Msg("prefetch discarded")
		}
	}()
}

// Invalidate drops the cached snapshot for key and cancels any in-flight
// fetch for it. Used when a source is reprocessed or an excerpt is
// re-captured.
func (c *ContentCache) Invalidate(key ContentKey) {
	ks := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Delete(ks)
	if fl, ok := c.pending[ks]; ok {
		delete(c.pending, ks)
		fl.cancel()
	}
}

// ClearProject removes every entry and cancels every in-flight fetch for
// the project. No cross-project leakage: a project switch empties the
// project's slice of the cache wholesale.
func (c *ContentCache) ClearProject(projectID string) {
	prefix := projectID + "\x00"

	c.mu.Lock()
	defer c.mu.Unlock()

	for ks := range c.store.Items() {
		if strings.HasPrefix(ks, prefix) {
			c.store.Delete(ks)
		}
	}
	for ks, fl := range c.pending {
		if strings.HasPrefix(ks, prefix) {
			delete(c.pending, ks)
			fl.cancel()
		}
	}
}

// Close cancels all in-flight fetches.
func (c *ContentCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ks, fl := range c.pending {
		delete(c.pending, ks)
		fl.cancel()
	}
}
