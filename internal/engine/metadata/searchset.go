package metadata

import (
	"context"
	"os"
	"path/filepath"
	"sort"
)

// SearchSet assembles the dependency search paths handed to a provider when
// a module is opened. Paths are ordered from weakest to strongest binding:
// runtime modules first, then the package cache index, then siblings of the
// target module, then the target itself. Providers resolve duplicates by
// letting later entries win, so the closest spelling of a module shadows
// the rest.
type SearchSet struct {
	index        *Index
	runtimePaths []string
	match        func(path string) bool
}

func NewSearchSet(index *Index, runtimePaths []string, match func(string) bool) *SearchSet {
	return &SearchSet{index: index, runtimePaths: runtimePaths, match: match}
}

// SearchSet implements SearchSetBuilder for the module cache.
func (s *SearchSet) SearchSet(ctx context.Context, modulePath string) ([]string, error) {
	var paths []string
	for _, dir := range s.runtimePaths {
		paths = append(paths, s.modulesIn(dir)...)
	}

	indexed, err := s.index.Modules(ctx)
	if err != nil {
		return nil, err
	}
	paths = append(paths, indexed...)

	target := NormalizeKey(modulePath)
	for _, sibling := range s.modulesIn(filepath.Dir(modulePath)) {
		if NormalizeKey(sibling) != target {
			paths = append(paths, sibling)
		}
	}
	paths = append(paths, modulePath)

	return dedupeKeepLast(paths), nil
}

func (s *SearchSet) modulesIn(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if s.match == nil || s.match(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// dedupeKeepLast removes duplicate paths, keeping each path's final
// position so the ordering contract above survives deduplication.
func dedupeKeepLast(paths []string) []string {
	last := make(map[string]int, len(paths))
	for i, p := range paths {
		last[NormalizeKey(p)] = i
	}
	out := make([]string, 0, len(last))
	for i, p := range paths {
		if last[NormalizeKey(p)] == i {
			out = append(out, p)
		}
	}
	return out
}
