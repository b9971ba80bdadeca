package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"compressum/internal/container"
	"compressum/internal/logging"
	"compressum/internal/transcode"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 2 * time.Second

// Handler processes one settled file. Errors are logged and do not stop the
// watcher.
type Handler func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	Dir       string
	Debounce  time.Duration
	Recursive bool
	// Existing queues eligible files already present when Run starts.
	Existing bool
	Logger   *slog.Logger
}

// Watcher turns filesystem events into sequential handler calls.
type Watcher struct {
	dir       string
	debounce  time.Duration
	recursive bool
	existing  bool
	logger    *slog.Logger
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("watch directory required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %q is not a directory", abs)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:       abs,
		debounce:  debounce,
		recursive: opts.Recursive,
		existing:  opts.Existing,
		logger:    logging.NewComponentLogger(opts.Logger, "watch"),
	}, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Eligible reports whether path looks like a video the watcher should hand
// off. Hidden files and compressum's own outputs are skipped.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	if !container.IsVideoExtension(ext) {
		return false
	}
	return !strings.HasSuffix(strings.TrimSuffix(base, ext), transcode.OutputSuffix)
}

// Run watches until ctx ends. Settled files are passed to handle one at a
// time; events that arrive meanwhile are queued.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	if handle == nil {
		return errors.New("watch handler required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	pending := make(map[string]time.Time)
	if err := w.addTree(fsw, w.dir, pending, w.existing, time.Time{}); err != nil {
		return err
	}
	w.logger.Info("watching for videos",
		logging.String(logging.FieldEventType, "watch_start"),
		logging.String("dir", w.dir),
		logging.Bool("recursive", w.recursive),
		logging.Duration("debounce", w.debounce),
	)

	runCtx, cancel := context.WithCancel(ctx)
	work := make(chan string)
	finished := make(chan struct{})
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for path := range work {
			if err := handle(runCtx, path); err != nil && runCtx.Err() == nil {
				logging.WarnWithContext(w.logger, "watched file not processed", "watch_handler",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "see job history for details"),
				)
			}
			select {
			case finished <- struct{}{}:
			case <-runCtx.Done():
			}
		}
	}()
	defer func() {
		cancel()
		close(work)
		<-workerDone
	}()

	tick := max(w.debounce/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var (
		queue  []string
		queued = make(map[string]bool)
		busy   bool
	)
	for {
		var (
			send chan<- string
			next string
		)
		if !busy && len(queue) > 0 {
			send = work
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.String("dir", w.dir))
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, pending)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error", logging.Error(err))
		case now := <-ticker.C:
			for _, path := range w.settled(pending, now) {
				if !queued[path] {
					queued[path] = true
					queue = append(queue, path)
				}
			}
		case send <- next:
			busy = true
			queue = queue[1:]
			delete(queued, next)
		case <-finished:
			busy = false
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, pending map[string]time.Time) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if event.Has(fsnotify.Create) && w.recursive {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// Files may land before the new watch is in place.
			if err := w.addTree(fsw, event.Name, pending, true, time.Now()); err != nil {
				logging.WarnWithContext(w.logger, "watch subdirectory failed", "watch_error",
					logging.String("dir", event.Name), logging.Error(err))
			}
			return
		}
	}
	if Eligible(event.Name) {
		pending[event.Name] = time.Now()
	}
}

// settled removes and returns pending paths that have been quiet for the
// debounce interval and still exist as regular files.
func (w *Watcher) settled(pending map[string]time.Time, now time.Time) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) < w.debounce {
			continue
		}
		delete(pending, path)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		ready = append(ready, path)
	}
	sort.Strings(ready)
	return ready
}

// addTree watches root (and its subdirectories when recursive). With
// includeFiles, eligible files found there are marked pending as of stamp; a
// zero stamp makes them immediately settled.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, pending map[string]time.Time, includeFiles bool, stamp time.Time) error {
	if !w.recursive {
		if err := fsw.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		if includeFiles {
			entries, err := os.ReadDir(root)
			if err != nil {
				return fmt.Errorf("read %s: %w", root, err)
			}
			for _, entry := range entries {
				path := filepath.Join(root, entry.Name())
				if entry.Type().IsRegular() && Eligible(path) {
					pending[path] = stamp
				}
			}
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if includeFiles && d.Type().IsRegular() && Eligible(path) {
			pending[path] = stamp
		}
		return nil
	})
}
