package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func collectChanges(t *testing.T, dir string) chan []string {
	t.Helper()

	changes := make(chan []string, 8)
	w, err := New(50*time.Millisecond, []string{".*"}, slog.New(slog.DiscardHandler), func(paths []string) {
		changes <- paths
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.Watch([]string{dir}); err != nil {
		t.Fatalf("watch: %v", err)
	}
	return changes
}

func waitForBatch(t *testing.T, changes chan []string) []string {
	t.Helper()
	select {
	case paths := <-changes:
		return paths
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
		return nil
	}
}

func TestWatcherReportsModuleFileWrites(t *testing.T) {
	dir := t.TempDir()
	changes := collectChanges(t, dir)

	target := filepath.Join(dir, "acme.core.apim.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := waitForBatch(t, changes)
	found := false
	for _, p := range paths {
		if p == target {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %s in batch, got %v", target, paths)
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	changes := collectChanges(t, dir)

	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changes:
		t.Fatalf("unexpected batch for non-module file: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	changes := collectChanges(t, dir)

	for i := 0; i < 3; i++ {
		name := filepath.Join(dir, "mod"+string(rune('a'+i))+".go")
		if err := os.WriteFile(name, []byte("package p"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths := waitForBatch(t, changes)
	if len(paths) < 2 {
		t.Fatalf("expected batched paths, got %v", paths)
	}
}

func TestWatcherPicksUpNewVersionDirectories(t *testing.T) {
	dir := t.TempDir()
	changes := collectChanges(t, dir)

	versionDir := filepath.Join(dir, "acme.core", "1.2.0", "lib")
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		t.Fatal(err)
	}
	// give the watcher a moment to register the new directories
	time.Sleep(200 * time.Millisecond)

	target := filepath.Join(versionDir, "acme.core.apim.json")
	if err := os.WriteFile(target, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths := waitForBatch(t, changes)
	if len(paths) == 0 {
		t.Fatalf("expected change batch, got %v", paths)
	}
}
