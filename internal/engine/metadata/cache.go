// Package metadata manages open module handles: a bounded LRU cache of
// handles shared across tool calls, the dependency search set handed to
// providers on open, and the lazily-built index of the local package cache.
package metadata

import (
	"container/list"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
	"surface/internal/shared/observability"
)

// DefaultMaxEntries bounds the cache when no limit is configured.
const DefaultMaxEntries = 16

// NormalizeKey maps a module path to its cache key. Keys are
// case-insensitive so two spellings of the same path share one entry.
func NormalizeKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return strings.ToLower(filepath.Clean(abs))
}

// SearchSetBuilder yields the dependency search paths for one module path.
type SearchSetBuilder interface {
	SearchSet(ctx context.Context, modulePath string) ([]string, error)
}

type cacheEntry struct {
	key  string
	path string

	ready  chan struct{} // closed once module and err are set
	module provider.ModuleHandle
	err    error

	elem *list.Element // recency position, guarded by Cache.lruMu
}

// Cache is a bounded LRU of open module handles keyed by normalized path.
// A hit on one key never waits for an open or an eviction on another key.
type Cache struct {
	providers  *provider.Registry
	searchSets SearchSetBuilder
	maxEntries int
	logger     *slog.Logger

	entries sync.Map // key -> *cacheEntry

	lruMu   sync.Mutex
	recency *list.List // front = most recently used
}

func NewCache(providers *provider.Registry, searchSets SearchSetBuilder, maxEntries int, logger *slog.Logger) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		providers:  providers,
		searchSets: searchSets,
		maxEntries: maxEntries,
		logger:     logger,
		recency:    list.New(),
	}
}

// Acquire returns an open handle for the module at path, opening it on the
// first request and reusing it afterwards. Concurrent requests for the same
// key share a single open.
func (c *Cache) Acquire(ctx context.Context, path string) (provider.ModuleHandle, error) {
	key := NormalizeKey(path)
	entry := &cacheEntry{key: key, path: path, ready: make(chan struct{})}

	actual, loaded := c.entries.LoadOrStore(key, entry)
	if loaded {
		existing := actual.(*cacheEntry)
		select {
		case <-existing.ready:
		case <-ctx.Done():
			err := cerrors.Wrap(ctx.Err(), cerrors.CodeLoadError, "module open canceled")
			return nil, cerrors.AddContext(err, cerrors.CtxModule, path)
		}
		if existing.err != nil {
			return nil, existing.err
		}
		observability.ModuleCacheHits.Inc()
		c.touch(existing)
		return existing.module, nil
	}

	observability.ModuleCacheMisses.Inc()
	c.open(ctx, entry)
	close(entry.ready)
	if entry.err != nil {
		// failed opens are not cached; the next request retries
		c.entries.Delete(key)
		return nil, entry.err
	}
	c.insert(entry)
	return entry.module, nil
}

func (c *Cache) open(ctx context.Context, entry *cacheEntry) {
	prov, err := c.providers.For(entry.path)
	if err != nil {
		entry.err = err
		return
	}

	searchPaths, err := c.searchSets.SearchSet(ctx, entry.path)
	if err != nil {
		entry.err = err
		return
	}

	start := time.Now()
	module, err := prov.Open(entry.path, searchPaths)
	observability.ModuleOpenDuration.WithLabelValues(provider.Name(prov)).Observe(time.Since(start).Seconds())
	if err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeLoadError, "failed to open module")
		entry.err = cerrors.AddContext(wrapped, cerrors.CtxModule, entry.path)
		return
	}
	entry.module = module
	if c.logger != nil {
		c.logger.Debug("module opened", "path", entry.path, "search_paths", len(searchPaths))
	}
}

// touch moves an entry to the most-recently-used position.
func (c *Cache) touch(entry *cacheEntry) {
	c.lruMu.Lock()
	if entry.elem != nil {
		c.recency.MoveToFront(entry.elem)
	}
	c.lruMu.Unlock()
}

// insert records a freshly opened entry and evicts the least recently used
// entries beyond capacity. Evicted handles are closed outside lruMu so a
// slow Close never blocks hits.
func (c *Cache) insert(entry *cacheEntry) {
	var evicted []*cacheEntry

	c.lruMu.Lock()
	entry.elem = c.recency.PushFront(entry)
	for c.recency.Len() > c.maxEntries {
		back := c.recency.Back()
		victim := back.Value.(*cacheEntry)
		c.recency.Remove(back)
		victim.elem = nil
		evicted = append(evicted, victim)
	}
	c.lruMu.Unlock()

	observability.OpenModuleHandles.Inc()
	for _, victim := range evicted {
		c.entries.Delete(victim.key)
		c.closeEntry(victim)
		observability.ModuleCacheEvictions.Inc()
	}
}

func (c *Cache) closeEntry(entry *cacheEntry) {
	if err := entry.module.Close(); err != nil && c.logger != nil {
		c.logger.Warn("failed to close evicted module", "path", entry.path, "error", err)
	}
	observability.OpenModuleHandles.Dec()
}

// Invalidate drops one module from the cache, closing its handle.
func (c *Cache) Invalidate(path string) {
	key := NormalizeKey(path)
	actual, ok := c.entries.LoadAndDelete(key)
	if !ok {
		return
	}
	entry := actual.(*cacheEntry)
	<-entry.ready
	if entry.err != nil {
		return
	}
	c.lruMu.Lock()
	if entry.elem != nil {
		c.recency.Remove(entry.elem)
		entry.elem = nil
	}
	c.lruMu.Unlock()
	c.closeEntry(entry)
}

// Len reports the number of cached open handles.
func (c *Cache) Len() int {
	c.lruMu.Lock()
	defer c.lruMu.Unlock()
	return c.recency.Len()
}

// Shutdown closes every cached handle.
func (c *Cache) Shutdown() {
	c.lruMu.Lock()
	var all []*cacheEntry
	for elem := c.recency.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*cacheEntry)
		entry.elem = nil
		all = append(all, entry)
	}
	c.recency.Init()
	c.lruMu.Unlock()

	for _, entry := range all {
		c.entries.Delete(entry.key)
		c.closeEntry(entry)
	}
}
