// Package pkgdir reads the on-disk layout of a local package cache:
// <root>/<package-id>/<version>/{lib,ref}/<framework>/<module files>.
// It never mutates the cache and never downloads anything; it only answers
// what is already installed.
package pkgdir

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	cerrors "surface/internal/core/errors"
)

// outputFolders are the per-version folders that may contain module files,
// in preference order (implementation outputs before reference outputs).
var outputFolders = []string{"lib", "ref"}

// Layout locates packages and modules under one cache root.
// FrameworkPriority ranks target-platform folders when a package ships
// several; earlier entries win.
type Layout struct {
	Root              string
	FrameworkPriority []string
}

// Package is one installed package with its version folders, ascending.
type Package struct {
	ID       string
	Versions []string
}

// ListPackages enumerates every top-level package directory with at least
// one version folder.
func (l Layout) ListPackages() ([]Package, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeNotFound, "package cache root not readable")
	}

	packages := make([]Package, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		versions := l.versionsOf(filepath.Join(l.Root, entry.Name()))
		if len(versions) == 0 {
			continue
		}
		packages = append(packages, Package{ID: entry.Name(), Versions: versions})
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].ID < packages[j].ID })
	return packages, nil
}

func (l Layout) versionsOf(packageDir string) []string {
	entries, err := os.ReadDir(packageDir)
	if err != nil {
		return nil
	}
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions
}

// Resolve returns the directory of one package version. An empty version
// selects the highest lexicographically-ordered version folder.
func (l Layout) Resolve(packageID, version string) (string, bool) {
	packageDir := filepath.Join(l.Root, packageID)
	if version == "" {
		versions := l.versionsOf(packageDir)
		if len(versions) == 0 {
			return "", false
		}
		version = versions[len(versions)-1]
	}
	dir := filepath.Join(packageDir, version)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// AvailableFrameworks lists the target-platform folders a package version
// ships, across its output folders.
func (l Layout) AvailableFrameworks(versionDir string) []string {
	seen := map[string]bool{}
	var frameworks []string
	for _, out := range outputFolders {
		entries, err := os.ReadDir(filepath.Join(versionDir, out))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() && !seen[entry.Name()] {
				seen[entry.Name()] = true
				frameworks = append(frameworks, entry.Name())
			}
		}
	}
	sort.Strings(frameworks)
	return frameworks
}

// ModulePath finds the module file named after packageID for one framework.
// An empty framework searches the output folder roots.
func (l Layout) ModulePath(versionDir, framework, packageID string, match func(string) bool) (string, bool) {
	for _, out := range outputFolders {
		dir := filepath.Join(versionDir, out)
		if framework != "" {
			dir = filepath.Join(dir, framework)
		}
		for _, path := range modulesIn(dir, match) {
			if strings.EqualFold(moduleStem(path), packageID) {
				return path, true
			}
		}
	}
	return "", false
}

// BestModules returns the module files of the preferred framework folder of
// one package version: the first FrameworkPriority entry that exists wins,
// then any remaining framework folder, then files directly under the output
// folders.
func (l Layout) BestModules(versionDir string, match func(string) bool) []string {
	for _, out := range outputFolders {
		outDir := filepath.Join(versionDir, out)

		for _, fw := range l.FrameworkPriority {
			if mods := modulesIn(filepath.Join(outDir, fw), match); len(mods) > 0 {
				return mods
			}
		}
		for _, fw := range l.AvailableFrameworks(versionDir) {
			if mods := modulesIn(filepath.Join(outDir, fw), match); len(mods) > 0 {
				return mods
			}
		}
		if mods := modulesIn(outDir, match); len(mods) > 0 {
			return mods
		}
	}
	return nil
}

func modulesIn(dir string, match func(string) bool) []string {
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
		if match == nil || match(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// moduleSuffixes are the filename suffixes recognized as module files.
// Package IDs may contain dots, so only these are stripped.
var moduleSuffixes = []string{".apim.json", ".java", ".go", ".dll"}

// moduleStem strips the module suffix from a filename, so
// "Acme.Core.apim.json" yields "Acme.Core".
func moduleStem(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, suffix := range moduleSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
