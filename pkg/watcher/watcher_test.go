package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDetectsModifiedFile(t *testing.T) {
	dir := t.TempDir()

	changes := make(chan map[string]ChangeKind, 1)
	w, err := New(Config{
		Paths:         []string{dir},
		DebounceDelay: 50 * time.Millisecond,
	}, TriggerFunc(func(c map[string]ChangeKind) {
		changes <- c
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	target := filepath.Join(dir, "main.go")
	if err := os.WriteFile(target, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case c := <-changes:
		kind, ok := c[target]
		if !ok {
			t.Errorf("expected %s in change set, got %+v", target, c)
		}
		if kind != Modified {
			t.Errorf("expected Modified, got %v", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced change")
	}
}

func TestWatcherSkipsDefaultDirs(t *testing.T) {
	dir := t.TempDir()
	skipped := filepath.Join(dir, "node_modules")
	if err := os.MkdirAll(skipped, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	w, err := New(Config{Paths: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if w.skip("node_modules") != true {
		t.Error("expected node_modules to be skipped")
	}
}

func TestWatcherStatsReportsPaths(t *testing.T) {
	dir := t.TempDir()
	w, err := New(Config{Paths: []string{dir}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	stats := w.Stats()
	if len(stats.Paths) != 1 || stats.Paths[0] != dir {
		t.Errorf("Stats.Paths = %v, want [%s]", stats.Paths, dir)
	}
	if stats.DirsWatched < 1 {
		t.Errorf("Stats.DirsWatched = %d, want >= 1", stats.DirsWatched)
	}
}
