package metadata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"surface/internal/engine/pkgdir"
	"surface/internal/shared/observability"
)

type indexData struct {
	modules []string // every indexed module path, deterministic order
}

// Index is the shared view of all module files in the local package cache.
// It is built lazily on first use and rebuilt after Invalidate; concurrent
// readers of a built index never take the build lock.
type Index struct {
	layout pkgdir.Layout
	match  func(path string) bool
	logger *slog.Logger

	mu      sync.RWMutex
	buildMu sync.Mutex
	data    *indexData
}

func NewIndex(layout pkgdir.Layout, match func(string) bool, logger *slog.Logger) *Index {
	return &Index{layout: layout, match: match, logger: logger}
}

// Modules returns every indexed module path, scanning the package cache on
// the first call.
func (i *Index) Modules(ctx context.Context) ([]string, error) {
	data, err := i.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return data.modules, nil
}

// Invalidate discards the built index; the next read rebuilds it.
func (i *Index) Invalidate() {
	i.mu.Lock()
	i.data = nil
	i.mu.Unlock()
}

func (i *Index) snapshot(ctx context.Context) (*indexData, error) {
	i.mu.RLock()
	data := i.data
	i.mu.RUnlock()
	if data != nil {
		return data, nil
	}

	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	// another builder may have won the race while we waited
	i.mu.RLock()
	data = i.data
	i.mu.RUnlock()
	if data != nil {
		return data, nil
	}

	data, err := i.build(ctx)
	if err != nil {
		return nil, err
	}
	i.mu.Lock()
	i.data = data
	i.mu.Unlock()
	return data, nil
}

func (i *Index) build(ctx context.Context) (*indexData, error) {
	start := time.Now()
	packages, err := i.layout.ListPackages()
	if err != nil {
		return nil, err
	}

	data := &indexData{}
	for _, pkg := range packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// only the highest version of each package contributes; superseded
		// versions must not keep their modules resolvable
		dir, ok := i.layout.Resolve(pkg.ID, "")
		if !ok {
			continue
		}
		data.modules = append(data.modules, i.layout.BestModules(dir, i.match)...)
	}

	observability.DependencyIndexBuildDuration.Observe(time.Since(start).Seconds())
	observability.DependencyIndexModules.Set(float64(len(data.modules)))
	if i.logger != nil {
		i.logger.Info("package index built",
			"packages", len(packages),
			"modules", len(data.modules),
			"duration", time.Since(start))
	}
	return data, nil
}
