// Package watcher reports changes to an element source on disk: a JSON or
// YAML elements file, or a SQLite graph store together with its WAL sidecar.
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

	"github.com/vanderheijden86/graphcanvas/pkg/debug"
)

// DefaultPollInterval matches the watch.poll_interval config default.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnv forces polling when set to a truthy value.
const ForcePollEnv = "GCV_FORCE_POLL"

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithOnChange sets a callback run after each debounced change.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets a callback for removal, permission and backend errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// WithSidecars also treats path+suffix as part of the watched source, e.g.
// "-wal" for a SQLite database in WAL mode.
func WithSidecars(suffixes ...string) Option {
	return func(w *Watcher) { w.sidecars = append(w.sidecars, suffixes...) }
}

// Watcher monitors one element source using fsnotify on the parent
// directory, falling back to stat polling.
type Watcher struct {
	path         string
	sidecars     []string
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool
	onChange     func()
	onError      func(error)

	debouncer *Debouncer
	changed   chan struct{}

	mu       sync.RWMutex
	started  bool
	polling  bool
	fsType   FilesystemType
	cancel   context.CancelFunc
	fsw      *fsnotify.Watcher
	snapshot map[string]fileStamp
}

type fileStamp struct {
	mtime time.Time
	size  int64
}

// New creates a watcher for path. Nothing is watched until Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:         abs,
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		onChange:     func() {},
		onError:      func(error) {},
		changed:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins watching. Watching stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	if _, err := os.Stat(w.path); err != nil && os.IsPermission(err) {
		return ErrPermission
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.snapshot = w.stamps()
	w.fsType = DetectFilesystemType(w.path)
	w.polling = w.forcePoll || envBool(ForcePollEnv) || isRemoteFilesystem(w.fsType)

	if !w.polling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fsw.Add(filepath.Dir(w.path))
			if err != nil {
				fsw.Close()
			}
		}
		if err != nil {
			debug.Log("watcher: fsnotify unavailable for %s, polling: %v", w.path, err)
			w.polling = true
		} else {
			w.fsw = fsw
			go w.watchEvents(ctx, fsw)
		}
	}
	if w.polling {
		go w.watchPolling(ctx)
	}

	debug.Log("watcher: watching %s (fs=%s polling=%v)", w.path, w.fsType, w.polling)
	w.started = true
	return nil
}

// Stop stops watching. The Changed channel stays open so a receiver blocked
// on it does not spin.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.cancel()
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// Changed receives once per debounced change. Bursts that arrive while a
// signal is pending collapse into it.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

func (w *Watcher) Path() string { return w.path }

func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

func (w *Watcher) PollInterval() time.Duration { return w.pollInterval }

// watches reports whether name (a full path) is the source or a sidecar.
func (w *Watcher) watches(name string) bool {
	base := filepath.Base(w.path)
	got := filepath.Base(name)
	if got == base {
		return true
	}
	for _, s := range w.sidecars {
		if got == base+s {
			return true
		}
	}
	return false
}

func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.watches(ev.Name) {
				continue
			}
			switch {
			case ev.Op&fsnotify.Remove != 0 && filepath.Base(ev.Name) == filepath.Base(w.path):
				w.onError(ErrFileRemoved)
			case ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notify)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := os.Stat(w.path); err != nil {
			w.mu.RLock()
			_, existed := w.snapshot[w.path]
			w.mu.RUnlock()
			switch {
			case os.IsNotExist(err):
				if existed {
					w.mu.Lock()
					delete(w.snapshot, w.path)
					w.mu.Unlock()
					w.onError(ErrFileRemoved)
				}
			case os.IsPermission(err):
				w.onError(ErrPermission)
			default:
				w.onError(err)
			}
			continue
		}

		now := w.stamps()
		w.mu.Lock()
		changed := !sameStamps(w.snapshot, now)
		w.snapshot = now
		w.mu.Unlock()
		if changed {
			w.debouncer.Trigger(w.notify)
		}
	}
}

// stamps stats the source and its sidecars. Missing files are omitted.
func (w *Watcher) stamps() map[string]fileStamp {
	out := make(map[string]fileStamp, 1+len(w.sidecars))
	for _, p := range append([]string{w.path}, w.sidecarPaths()...) {
		if info, err := os.Stat(p); err == nil {
			out[p] = fileStamp{mtime: info.ModTime(), size: info.Size()}
		}
	}
	return out
}

func (w *Watcher) sidecarPaths() []string {
	paths := make([]string, len(w.sidecars))
	for i, s := range w.sidecars {
		paths[i] = w.path + s
	}
	return paths
}

func sameStamps(a, b map[string]fileStamp) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if o, ok := b[k]; !ok || !o.mtime.Equal(v.mtime) || o.size != v.size {
			return false
		}
	}
	return true
}

func (w *Watcher) notify() {
	if !w.IsStarted() {
		return
	}
	w.onChange()
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
