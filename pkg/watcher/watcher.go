// Package watcher reports changes to the local artifact files so the
// explorer can reload them (--watch). It uses fsnotify and falls back to
// polling on remote filesystems or when TAXVIEW_FORCE_POLL is set.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/taxview/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoPaths        = errors.New("no files to watch")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange sets the callback invoked when a watched file changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors one or more files.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	state       map[string]fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a watcher for the given files. Empty entries are
// ignored.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	var abs []string
	seen := make(map[string]bool)
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if !seen[a] {
			seen[a] = true
			abs = append(abs, a)
		}
	}
	if len(abs) == 0 {
		return nil, ErrNoPaths
	}

	w := &Watcher{
		paths:            abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
		state:            make(map[string]fileState),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = w.forcePoll || envBool("TAXVIEW_FORCE_POLL")

	w.fsType = DetectFilesystemType(w.paths[0])
	for _, p := range w.paths {
		if isRemoteFilesystem(DetectFilesystemType(p)) {
			w.useFallback = true
		}
	}

	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsPermission(err) {
				w.cancel()
				return ErrPermission
			}
			// Not created yet.
			w.state[p] = fileState{}
			continue
		}
		w.state[p] = fileState{mtime: info.ModTime(), size: info.Size()}
	}

	if !w.useFallback {
		if fsw, err := w.newFsnotify(); err == nil {
			w.fsWatcher = fsw
			go w.watchFsnotify(fsw)
		} else {
			debug.Log("watcher: fsnotify unavailable (%v), polling", err)
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// newFsnotify watches the directories holding the files, which survives
// atomic rename-over writes.
func (w *Watcher) newFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// Stop stops watching. The change channel is left open so a pending
// receiver is not woken spuriously.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when a file changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Paths returns the watched absolute paths.
func (w *Watcher) Paths() []string {
	return w.paths
}

// FilesystemType returns the classification of the first watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) isTarget(name string) bool {
	clean := filepath.Clean(name)
	for _, p := range w.paths {
		if p == clean {
			return true
		}
	}
	return false
}

func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.isTarget(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.pollOnce() {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// pollOnce stats every file and reports whether any changed.
func (w *Watcher) pollOnce() bool {
	changed := false
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			w.mu.RLock()
			hadFile := !w.state[p].mtime.IsZero()
			w.mu.RUnlock()
			switch {
			case os.IsNotExist(err):
				if hadFile {
					w.onError(ErrFileRemoved)
				}
			case os.IsPermission(err):
				w.onError(ErrPermission)
			default:
				w.onError(err)
			}
			continue
		}

		w.mu.Lock()
		prev := w.state[p]
		if info.ModTime().After(prev.mtime) || info.Size() != prev.size {
			w.state[p] = fileState{mtime: info.ModTime(), size: info.Size()}
			changed = true
		}
		w.mu.Unlock()
	}
	return changed
}

func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()
	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
