// Package watch keeps the index current while sessions are being written:
// an fsnotify watcher over the projects tree triggers debounced per-file
// re-indexing.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lunar-hook/sessionidx/internal/config"
	"github.com/lunar-hook/sessionidx/internal/indexer"
	"github.com/lunar-hook/sessionidx/internal/scan"
	"github.com/lunar-hook/sessionidx/internal/store"
)

// debounceDelay batches the write bursts a live transcript produces into
// one re-index per file.
const debounceDelay = 2 * time.Second

// Run blocks, watching cfg.ProjectsDir until ctx is cancelled. An initial
// full index pass runs first so the watcher starts from a consistent
// state.
func Run(ctx context.Context, st *store.Store, cfg config.Config, logf func(format string, args ...any)) error {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	stats, err := indexer.IndexAll(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("initial index: %w", err)
	}
	logf("[%s] Initial index: %s", time.Now().Format("15:04:05"), stats)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, cfg.ProjectsDir); err != nil {
		return err
	}
	logf("Watching %s (debounce: %s)", cfg.ProjectsDir, debounceDelay)
	logf("Press Ctrl+C to stop")

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(debounceDelay, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			reindex(st, cfg, path, logf)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// new project directories appear after the watcher starts
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(watcher, event.Name)
					continue
				}
			}
			if !interesting(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
				event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				schedule(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("[%s] Watch error: %v", time.Now().Format("15:04:05"), err)
		}
	}
}

// reindex handles one settled file: re-index it if it still exists, prune
// its session if it does not.
func reindex(st *store.Store, cfg config.Config, path string, logf func(string, ...any)) {
	fi, ok := scan.Stat(path)
	if !ok {
		if err := indexer.RemoveFile(st, path); err != nil {
			logf("[%s] Prune error %s: %v", time.Now().Format("15:04:05"), path, err)
			return
		}
		logf("[%s] Pruned %s", time.Now().Format("15:04:05"), filepath.Base(path))
		return
	}
	if err := indexer.IndexFile(st, cfg, fi, false); err != nil {
		logf("[%s] Index error %s: %v", time.Now().Format("15:04:05"), path, err)
		return
	}
	logf("[%s] Indexed %s", time.Now().Format("15:04:05"), filepath.Base(path))
}

// addTree registers root and every directory under it. fsnotify watches
// are not recursive.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == "subagents" {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func interesting(path string) bool {
	if filepath.Ext(path) != ".jsonl" {
		return false
	}
	return !strings.Contains(filepath.Base(path), "sessions-index")
}
