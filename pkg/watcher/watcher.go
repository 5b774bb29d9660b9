// Package watcher provides optional fsnotify-backed, debounced filesystem
// watching used to trigger incremental reindexing without an explicit
// index call.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var watchLog = log.New(os.Stderr, "[codelens:watcher] ", log.Ltime)

// DefaultDebounceDelay batches bursts of saves (formatters, rebase, branch
// switches) into a single reindex pass instead of one per file event.
const DefaultDebounceDelay = 2 * time.Second

// DefaultSkipDirs contains directories never descended into while watching.
// Organized by language/ecosystem but applied universally for simplicity.
var DefaultSkipDirs = map[string]bool{
	// Version control
	".git": true, ".svn": true, ".hg": true,

	// codelens internal
	".codelens": true,

	// Node/JavaScript/TypeScript
	"node_modules": true,
	"dist":         true,
	".next":        true,
	".nuxt":        true,
	"coverage":     true,
	".cache":       true,

	// Python
	"__pycache__":   true,
	".venv":         true,
	"venv":          true,
	".tox":          true,
	".mypy_cache":   true,
	".pytest_cache": true,
	"*.egg-info":    true,
	"site-packages": true,

	// Go
	"vendor": true,

	// Rust
	"target": true,

	// Java/Kotlin/Gradle
	"build":   true,
	".gradle": true,
	"out":     true,

	// C/C++
	"cmake-build-debug":   true,
	"cmake-build-release": true,
	".cmake":              true,
	".deps":               true,
	"Debug":               true,
	"Release":             true,

	// Ruby
	".bundle": true,

	// C#
	"bin": true,
	"obj": true,

	// Elixir
	"_build": true,
	"deps":   true,

	// OCaml
	"_opam": true,

	// Scala
	".bloop":  true,
	".metals": true,

	// Swift
	".build": true,

	// IDE/Editor
	".idea":   true,
	".vscode": true,

	// OS
	".DS_Store": true,
}

// ChangeKind classifies a debounced path change without leaking the
// underlying fsnotify op across the package boundary.
type ChangeKind int

const (
	Modified ChangeKind = iota
	Removed
)

type Config struct {
	Paths         []string
	DebounceDelay time.Duration
	SkipDirs      []string
	FileFilter    func(path string) bool
}

// Trigger is the orchestrator-side callback invoked once per debounced
// batch of filesystem changes.
type Trigger interface {
	OnPathsChanged(changes map[string]ChangeKind)
}

type TriggerFunc func(changes map[string]ChangeKind)

func (f TriggerFunc) OnPathsChanged(changes map[string]ChangeKind) {
	f(changes)
}

type Watcher struct {
	fsnotify *fsnotify.Watcher
	config   Config
	skipDirs map[string]bool
	triggers []Trigger

	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	startTime time.Time

	mu           sync.Mutex
	pending      map[string]ChangeKind
	debounceOnce sync.Once
	watchPaths   []string
	dirsWatched  int
}

func New(config Config, triggers ...Trigger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.DebounceDelay == 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}

	skipDirs := make(map[string]bool, len(DefaultSkipDirs)+len(config.SkipDirs))
	for k, v := range DefaultSkipDirs {
		skipDirs[k] = v
	}
	for _, d := range config.SkipDirs {
		skipDirs[d] = true
	}

	return &Watcher{
		fsnotify: fsWatcher,
		config:   config,
		skipDirs: skipDirs,
		triggers: triggers,
		stop:     make(chan struct{}),
		pending:  make(map[string]ChangeKind),
	}, nil
}

func (w *Watcher) AddTrigger(t Trigger) {
	w.triggers = append(w.triggers, t)
}

func (w *Watcher) skip(name string) bool {
	return w.skipDirs[name] || (len(name) > 1 && name[0] == '.')
}

func (w *Watcher) Start() error {
	paths := w.config.Paths
	if len(paths) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths = []string{cwd}
	}

	w.watchPaths = paths

	for _, root := range paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.skip(info.Name()) {
					return filepath.SkipDir
				}
				if err := w.fsnotify.Add(path); err == nil {
					w.dirsWatched++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	w.startTime = time.Now()
	w.wg.Add(1)
	go w.processEvents()

	watchLog.Printf("watching %d directories in %v (debounce: %v)", w.dirsWatched, paths, w.config.DebounceDelay)
	return nil
}

func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return w.fsnotify.Close()
}

func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	pending := len(w.pending)
	w.mu.Unlock()

	return WatcherStats{
		Enabled:      true,
		Paths:        w.watchPaths,
		DirsWatched:  w.dirsWatched,
		Debounce:     w.config.DebounceDelay,
		PendingFiles: pending,
		Uptime:       time.Since(w.startTime),
	}
}

type WatcherStats struct {
	Enabled      bool
	Paths        []string
	DirsWatched  int
	Debounce     time.Duration
	PendingFiles int
	Uptime       time.Duration
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					name := filepath.Base(event.Name)
					if !w.skip(name) {
						if err := w.fsnotify.Add(event.Name); err == nil {
							w.dirsWatched++
							watchLog.Printf("watching new directory: %s", event.Name)
						}
					}
					continue
				}
			}

			if w.config.FileFilter != nil && !w.config.FileFilter(event.Name) {
				continue
			}

			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
				strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0:
				w.queueChange(event.Name, Removed)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.queueChange(event.Name, Modified)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			watchLog.Printf("error: %v", err)
		}
	}
}

func (w *Watcher) queueChange(path string, kind ChangeKind) {
	w.mu.Lock()
	w.pending[path] = kind
	w.debounceOnce.Do(func() {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			select {
			case <-time.After(w.config.DebounceDelay):
				w.flushPending()
			case <-w.stop:
				return
			}
		}()
	})
	w.mu.Unlock()
}

func (w *Watcher) flushPending() {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]ChangeKind)
	w.debounceOnce = sync.Once{}
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	watchLog.Printf("processing %d file changes", len(pending))

	for _, t := range w.triggers {
		t.OnPathsChanged(pending)
	}
}
