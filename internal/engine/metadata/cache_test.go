package metadata

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
	"surface/internal/engine/provider/providertest"
)

type staticSearchSet struct {
	paths []string
}

func (s staticSearchSet) SearchSet(_ context.Context, _ string) ([]string, error) {
	return s.paths, nil
}

func newTestCache(t *testing.T, maxEntries int) (*Cache, *providertest.Provider) {
	t.Helper()
	fake := providertest.New()
	registry := provider.NewRegistry(fake)
	cache := NewCache(registry, staticSearchSet{}, maxEntries, nil)
	t.Cleanup(cache.Shutdown)
	return cache, fake
}

func TestAcquireReusesHandle(t *testing.T) {
	cache, fake := newTestCache(t, 4)
	fake.Add("/pkg/a.mod", "A")

	first, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)
	second, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fake.Opens("/pkg/a.mod"))
}

func TestAcquireNormalizesKeys(t *testing.T) {
	cache, fake := newTestCache(t, 4)
	fake.Add("/pkg/a.mod", "A")

	_, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)
	_, err = cache.Acquire(context.Background(), "/pkg/sub/../a.mod")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Opens("/pkg/a.mod"))
	assert.Equal(t, 1, cache.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	const maxEntries = 3
	cache, fake := newTestCache(t, maxEntries)
	for i := 0; i <= maxEntries; i++ {
		fake.Add(fmt.Sprintf("/pkg/m%d.mod", i), fmt.Sprintf("M%d", i))
	}

	// filling past capacity evicts exactly the oldest entry
	for i := 0; i <= maxEntries; i++ {
		_, err := cache.Acquire(context.Background(), fmt.Sprintf("/pkg/m%d.mod", i))
		require.NoError(t, err)
	}

	assert.Equal(t, maxEntries, cache.Len())
	assert.Equal(t, 1, fake.Closes("/pkg/m0.mod"))
	for i := 1; i <= maxEntries; i++ {
		assert.Equal(t, 0, fake.Closes(fmt.Sprintf("/pkg/m%d.mod", i)))
	}

	// the evicted module reopens on the next request
	_, err := cache.Acquire(context.Background(), "/pkg/m0.mod")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Opens("/pkg/m0.mod"))
}

func TestTouchPreventsEviction(t *testing.T) {
	cache, fake := newTestCache(t, 2)
	fake.Add("/pkg/a.mod", "A")
	fake.Add("/pkg/b.mod", "B")
	fake.Add("/pkg/c.mod", "C")

	_, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)
	_, err = cache.Acquire(context.Background(), "/pkg/b.mod")
	require.NoError(t, err)

	// touching a moves b to the cold end
	_, err = cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)

	_, err = cache.Acquire(context.Background(), "/pkg/c.mod")
	require.NoError(t, err)

	assert.Equal(t, 0, fake.Closes("/pkg/a.mod"))
	assert.Equal(t, 1, fake.Closes("/pkg/b.mod"))
}

func TestConcurrentAcquireOpensOnce(t *testing.T) {
	cache, fake := newTestCache(t, 4)
	fake.Add("/pkg/a.mod", "A")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Acquire(context.Background(), "/pkg/a.mod")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.Opens("/pkg/a.mod"))
}

func TestFailedOpenIsNotCached(t *testing.T) {
	cache, fake := newTestCache(t, 4)

	_, err := cache.Acquire(context.Background(), "/pkg/missing.mod")
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeNotSupported))

	// registering the module afterwards makes the next request succeed
	fake.Add("/pkg/missing.mod", "M")
	handle, err := cache.Acquire(context.Background(), "/pkg/missing.mod")
	require.NoError(t, err)
	assert.Equal(t, "M", handle.Name())
}

func TestInvalidateClosesHandle(t *testing.T) {
	cache, fake := newTestCache(t, 4)
	fake.Add("/pkg/a.mod", "A")

	_, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)

	cache.Invalidate("/pkg/a.mod")
	assert.Equal(t, 1, fake.Closes("/pkg/a.mod"))
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Opens("/pkg/a.mod"))
}

func TestShutdownClosesEverything(t *testing.T) {
	cache, fake := newTestCache(t, 4)
	fake.Add("/pkg/a.mod", "A")
	fake.Add("/pkg/b.mod", "B")

	_, err := cache.Acquire(context.Background(), "/pkg/a.mod")
	require.NoError(t, err)
	_, err = cache.Acquire(context.Background(), "/pkg/b.mod")
	require.NoError(t, err)

	cache.Shutdown()
	assert.Equal(t, 1, fake.Closes("/pkg/a.mod"))
	assert.Equal(t, 1, fake.Closes("/pkg/b.mod"))
	assert.Equal(t, 0, cache.Len())
}
