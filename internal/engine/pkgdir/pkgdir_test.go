package pkgdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "surface/internal/core/errors"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func testCache(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "acme.core", "1.0.0", "lib", "net8.0", "Acme.Core.apim.json"))
	writeFile(t, filepath.Join(root, "acme.core", "1.2.0", "lib", "net8.0", "Acme.Core.apim.json"))
	writeFile(t, filepath.Join(root, "acme.core", "1.2.0", "lib", "net6.0", "Acme.Core.apim.json"))
	writeFile(t, filepath.Join(root, "acme.widgets", "2.0.0", "lib", "Acme.Widgets.apim.json"))
	// stray file at the root must not show up as a package
	writeFile(t, filepath.Join(root, "readme.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty.package"), 0o755))
	return root
}

func isDescriptor(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".apim.json")
}

func TestListPackages(t *testing.T) {
	layout := Layout{Root: testCache(t)}

	packages, err := layout.ListPackages()
	require.NoError(t, err)

	require.Len(t, packages, 2)
	assert.Equal(t, "acme.core", packages[0].ID)
	assert.Equal(t, []string{"1.0.0", "1.2.0"}, packages[0].Versions)
	assert.Equal(t, "acme.widgets", packages[1].ID)
}

func TestListPackagesMissingRoot(t *testing.T) {
	layout := Layout{Root: filepath.Join(t.TempDir(), "nope")}

	_, err := layout.ListPackages()
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeNotFound))
}

func TestResolve(t *testing.T) {
	layout := Layout{Root: testCache(t)}

	dir, ok := layout.Resolve("acme.core", "1.0.0")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(dir, filepath.Join("acme.core", "1.0.0")))

	// empty version picks the highest folder
	dir, ok = layout.Resolve("acme.core", "")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(dir, filepath.Join("acme.core", "1.2.0")))

	_, ok = layout.Resolve("acme.core", "9.9.9")
	assert.False(t, ok)
	_, ok = layout.Resolve("missing.package", "")
	assert.False(t, ok)
}

func TestAvailableFrameworks(t *testing.T) {
	layout := Layout{Root: testCache(t)}

	dir, ok := layout.Resolve("acme.core", "1.2.0")
	require.True(t, ok)
	assert.Equal(t, []string{"net6.0", "net8.0"}, layout.AvailableFrameworks(dir))

	dir, ok = layout.Resolve("acme.widgets", "")
	require.True(t, ok)
	assert.Empty(t, layout.AvailableFrameworks(dir))
}

func TestModulePath(t *testing.T) {
	layout := Layout{Root: testCache(t)}

	dir, ok := layout.Resolve("acme.core", "1.2.0")
	require.True(t, ok)

	path, ok := layout.ModulePath(dir, "net8.0", "Acme.Core", isDescriptor)
	require.True(t, ok)
	assert.Contains(t, path, "net8.0")

	_, ok = layout.ModulePath(dir, "net8.0", "Acme.Missing", isDescriptor)
	assert.False(t, ok)

	// dotted package IDs keep their dots when matched against filenames
	dir, ok = layout.Resolve("acme.widgets", "")
	require.True(t, ok)
	path, ok = layout.ModulePath(dir, "", "acme.widgets", isDescriptor)
	require.True(t, ok)
	assert.Equal(t, "Acme.Widgets.apim.json", filepath.Base(path))
}

func TestBestModulesPriority(t *testing.T) {
	layout := Layout{Root: testCache(t), FrameworkPriority: []string{"net8.0", "net6.0"}}

	dir, ok := layout.Resolve("acme.core", "1.2.0")
	require.True(t, ok)

	mods := layout.BestModules(dir, isDescriptor)
	require.Len(t, mods, 1)
	assert.Contains(t, mods[0], "net8.0")

	// with the priority reversed the other framework wins
	layout.FrameworkPriority = []string{"net6.0"}
	mods = layout.BestModules(dir, isDescriptor)
	require.Len(t, mods, 1)
	assert.Contains(t, mods[0], "net6.0")

	// no framework folders at all falls back to the output folder root
	dir, ok = layout.Resolve("acme.widgets", "")
	require.True(t, ok)
	mods = layout.BestModules(dir, isDescriptor)
	require.Len(t, mods, 1)
	assert.Equal(t, "Acme.Widgets.apim.json", filepath.Base(mods[0]))
}
