// Package watch reruns a command whenever watched source files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the delay after an fsnotify event before rerunning,
// letting editor save bursts (write temp + rename) settle into one run.
const DebounceInterval = 200 * time.Millisecond

// Directories never watched. Caches and dependency trees churn
// constantly and would retrigger forever.
var skipDirs = map[string]bool{
	".git":         true,
	".venv":        true,
	".output":      true,
	"node_modules": true,
	"olib":         true,
	"__pycache__":  true,
}

// Watcher reruns Run on every settled change under Root. Errors from Run
// are logged and the loop keeps going; the next save gets a fresh run.
type Watcher struct {
	Root string
	Exts []string // extensions that trigger a rerun, e.g. ".py"; empty means any
	Run  func(ctx context.Context) error
	Log  *slog.Logger
}

func New(root string, exts []string, run func(ctx context.Context) error, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{Root: root, Exts: exts, Run: run, Log: log}
}

// Watch runs once immediately, then blocks rerunning on changes until
// ctx is cancelled. New directories created under Root get watched too.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.Root); err != nil {
		return err
	}

	w.runOnce(ctx)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addRecursive(fsw, event.Name); err != nil {
						w.Log.Warn("failed to watch new directory", "dir", event.Name, "error", err)
					}
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.Log.Debug("change detected", "op", event.Op.String(), "path", event.Name)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceInterval, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.runOnce(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	started := time.Now()
	if err := w.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.Log.Error("run failed", "error", err, "duration", time.Since(started).Round(time.Millisecond))
		return
	}
	w.Log.Info("run succeeded", "duration", time.Since(started).Round(time.Millisecond))
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.Exts) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, want := range w.Exts {
		if ext == want {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
