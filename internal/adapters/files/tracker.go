// Package files tracks the files a job writes into its directory.
package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/jobagent/internal/ports"
	"github.com/bft-labs/jobagent/pkg/log"
)

// ErrAlreadyStarted is returned by Start on a running tracker.
var ErrAlreadyStarted = errors.New("file tracker already started")

// Tracker implements ports.FileService with fsnotify. It watches the job
// directory recursively and keeps the size and modification time of every
// regular file below it.
type Tracker struct {
	logger log.Logger

	mu      sync.Mutex
	started bool
	root    string
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	files   map[string]ports.TrackedFile
}

// NewTracker creates a stopped tracker.
func NewTracker(logger log.Logger) *Tracker {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Tracker{
		logger: logger,
		files:  make(map[string]ports.TrackedFile),
	}
}

// Start begins watching dir. Files already present are recorded.
func (t *Tracker) Start(ctx context.Context, dir string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, t.root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	t.root = dir
	t.watcher = watcher
	t.files = make(map[string]ports.TrackedFile)
	if err := t.scanLocked(dir, true); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.cancel = cancel
	t.started = true

	t.wg.Add(1)
	go t.watchLoop(watchCtx, watcher)

	t.logger.Info("file tracker started", log.String("dir", dir), log.Int("files", len(t.files)))
	return nil
}

// Stop ends watching and takes a final snapshot of the directory. Stopping
// a tracker that is not running returns nil.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return nil
	}
	t.started = false
	t.cancel()
	watcher := t.watcher
	t.mu.Unlock()

	closeErr := watcher.Close()
	t.wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.scanLocked(t.root, false); err != nil && !errors.Is(err, fs.ErrNotExist) {
		t.logger.Warn("final file scan failed", log.Err(err))
	}
	t.logger.Info("file tracker stopped", log.Int("files", len(t.files)))

	if closeErr != nil {
		return fmt.Errorf("close watcher: %w", closeErr)
	}
	return nil
}

// Files returns the tracked files sorted by path.
func (t *Tracker) Files() []ports.TrackedFile {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ports.TrackedFile, 0, len(t.files))
	for _, f := range t.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (t *Tracker) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer t.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			t.handle(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.logger.Warn("file tracker: watcher error", log.Err(err))
		}
	}
}

func (t *Tracker) handle(event fsnotify.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		t.forgetLocked(event.Name)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		// New directories are watched and scanned, since files may have
		// been created in them before the watch was added.
		if t.started {
			if err := t.scanLocked(event.Name, true); err != nil {
				t.logger.Warn("file tracker: watch new directory", log.String("dir", event.Name), log.Err(err))
			}
		}
		return
	}
	t.recordLocked(event.Name, info)
}

// scanLocked records every regular file under dir, adding watches for
// directories when watch is set.
func (t *Tracker) scanLocked(dir string, watch bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if watch {
				if err := t.watcher.Add(path); err != nil {
					return fmt.Errorf("watch %s: %w", path, err)
				}
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		t.recordLocked(path, info)
		return nil
	})
}

func (t *Tracker) recordLocked(path string, info fs.FileInfo) {
	if !info.Mode().IsRegular() {
		return
	}
	rel, err := filepath.Rel(t.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	t.files[rel] = ports.TrackedFile{
		Path:     rel,
		Size:     info.Size(),
		Modified: info.ModTime(),
	}
}

func (t *Tracker) forgetLocked(path string) {
	rel, err := filepath.Rel(t.root, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	delete(t.files, rel)
	prefix := rel + "/"
	for p := range t.files {
		if strings.HasPrefix(p, prefix) {
			delete(t.files, p)
		}
	}
}
