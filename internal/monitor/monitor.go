// Package monitor implements the watch session: recursive change
// tracking for one folder with checkpoint and rollback support.
package monitor

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vigialabs/vigia/internal/ignore"
	"github.com/vigialabs/vigia/internal/ledger"
	"github.com/vigialabs/vigia/internal/snapshot"
	"github.com/vigialabs/vigia/internal/suppress"
)

// Notification is pushed onto the session's bounded event channel after
// every accepted raw event. Consumers drain the channel on their own
// schedule; when it is full the notification is dropped.
type Notification struct {
	Root string
	Path string // root-relative, slash-separated
	Kind ledger.Kind
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithSuppressWindow overrides the self-event suppression window.
func WithSuppressWindow(d time.Duration) Option {
	return func(m *Monitor) { m.suppressWindow = d }
}

// WithEventBuffer sets the notification channel capacity.
func WithEventBuffer(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.eventBuffer = n
		}
	}
}

// Monitor watches one folder recursively, records file-level changes,
// and can snapshot the tree so later changes can be reverted. Exactly
// one Monitor is bound to a root for its lifetime.
type Monitor struct {
	root   string
	logger *slog.Logger

	suppressWindow time.Duration
	eventBuffer    int

	matcher *ignore.Matcher
	changes *ledger.Ledger
	sup     *suppress.List
	snap    *snapshot.Store

	events chan Notification

	// cpMu serializes checkpoint creation, cancel and rollback; bulk file
	// I/O runs under it but never under the ledger lock.
	cpMu sync.Mutex

	// lifecycle
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	running bool
}

// New creates a Monitor for root, which must be an existing directory.
func New(root string, opts ...Option) (*Monitor, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("monitor: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("monitor: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("monitor: root is not a directory: %s", abs)
	}

	m := &Monitor{
		root:           abs,
		logger:         slog.Default(),
		suppressWindow: suppress.DefaultWindow,
		eventBuffer:    256,
		matcher:        ignore.NewMatcher(abs),
		changes:        ledger.New(),
		snap:           snapshot.New(abs),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sup = suppress.New(m.suppressWindow)
	m.events = make(chan Notification, m.eventBuffer)
	return m, nil
}

// Root returns the absolute watched root.
func (m *Monitor) Root() string { return m.root }

// LivePath returns the absolute path for a root-relative file.
func (m *Monitor) LivePath(rel string) string {
	return filepath.Join(m.root, filepath.FromSlash(rel))
}

// Events returns the bounded notification channel. It is never closed;
// consumers stop draining when the session stops.
func (m *Monitor) Events() <-chan Notification { return m.events }

// Done returns a channel that is closed once the session's event loop
// has exited. Before Start it reports an already-finished session.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

// Start subscribes to recursive filesystem notifications for the root.
// Calling Start on a running session is a no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor: create watcher: %w", err)
	}
	if err := m.addDirsRecursive(w, m.root); err != nil {
		w.Close()
		return fmt.Errorf("monitor: watch root: %w", err)
	}

	m.watcher = w
	m.done = make(chan struct{})
	m.running = true

	go m.loop(w, m.done)

	m.logger.Info("monitor: started", slog.String("root", m.root))
	return nil
}

// Stop unsubscribes, joins the delivery goroutine and deletes any
// dangling checkpoint staging directory (cleanup only, no restore).
// Calling Stop on a stopped session is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	w, done := m.watcher, m.done
	m.watcher = nil
	m.running = false
	m.mu.Unlock()

	_ = w.Close()
	<-done

	m.cpMu.Lock()
	if m.snap.Active() {
		m.snap.Discard()
		m.changes.EndCheckpoint(false)
	}
	m.cpMu.Unlock()

	m.logger.Info("monitor: stopped", slog.String("root", m.root))
}

// addDirsRecursive adds dir and all non-ignored subdirectories to the
// watcher. fsnotify has no recursive mode, so every directory is added
// individually.
func (m *Monitor) addDirsRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != m.root && m.matcher.Ignored(p) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// loop delivers raw fsnotify events until the watcher is closed.
func (m *Monitor) loop(w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			m.handleEvent(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			m.logger.Error("monitor: watcher error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent filters one raw event through the ignore matcher and
// suppressor and records it in the ledger.
func (m *Monitor) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	abs := ev.Name

	// New directories are added to the watch list; files that already
	// landed inside before the watch was active are registered as created.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			if m.matcher.Ignored(abs) {
				return
			}
			if err := m.addDirsRecursive(w, abs); err != nil {
				m.logger.Warn("monitor: watch new dir failed",
					slog.String("path", abs), slog.String("error", err.Error()))
			}
			m.registerTree(abs)
			return
		}
	}

	kind, ok := decodeOp(ev.Op)
	if !ok {
		return
	}

	// Only file-level events are tracked. For Remove/Rename the path is
	// gone, so a watched directory is recognised via the watch list.
	if kind == ledger.KindDeleted || kind == ledger.KindMoved {
		if m.wasWatchedDir(w, abs) {
			return
		}
	} else if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return
	}

	m.register(abs, kind)
}

// registerTree records every non-ignored file under dir as created.
func (m *Monitor) registerTree(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if m.matcher.Ignored(p) {
				return filepath.SkipDir
			}
			return nil
		}
		m.register(p, ledger.KindCreated)
		return nil
	})
}

// register runs the filter pipeline for one decoded event and notifies
// listeners on acceptance.
func (m *Monitor) register(abs string, kind ledger.Kind) {
	if m.matcher.Ignored(abs) {
		return
	}

	rel, err := filepath.Rel(m.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	if m.sup.Active(rel) {
		return
	}

	m.changes.Register(rel, kind, time.Now())

	select {
	case m.events <- Notification{Root: m.root, Path: rel, Kind: kind}:
	default:
		m.logger.Debug("monitor: event channel full, notification dropped",
			slog.String("path", rel))
	}
}

// wasWatchedDir reports whether abs is on the watcher's directory list.
func (m *Monitor) wasWatchedDir(w *fsnotify.Watcher, abs string) bool {
	for _, watched := range w.WatchList() {
		if watched == abs {
			return true
		}
	}
	return false
}

// decodeOp maps a raw fsnotify op onto the closed change-kind variant.
// A rename is reported on the old path; the destination arrives as a
// separate create event. Chmod-only events are not tracked.
func decodeOp(op fsnotify.Op) (ledger.Kind, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return ledger.KindCreated, true
	case op&fsnotify.Write != 0:
		return ledger.KindModified, true
	case op&fsnotify.Remove != 0:
		return ledger.KindDeleted, true
	case op&fsnotify.Rename != 0:
		return ledger.KindMoved, true
	default:
		return "", false
	}
}

// Changes returns the visible change table: since-checkpoint while a
// checkpoint is active, all-time otherwise.
func (m *Monitor) Changes() map[string]ledger.Change {
	return m.changes.Snapshot()
}

// HasCheckpoint reports whether a checkpoint is active.
func (m *Monitor) HasCheckpoint() bool {
	return m.changes.Active()
}

// IgnorePatterns returns the active ignore pattern list.
func (m *Monitor) IgnorePatterns() []string {
	return m.matcher.Patterns()
}

// ReloadIgnorePatterns re-reads the per-root override file.
func (m *Monitor) ReloadIgnorePatterns() {
	m.matcher.Reload()
	m.logger.Info("monitor: ignore patterns reloaded", slog.String("root", m.root))
}
