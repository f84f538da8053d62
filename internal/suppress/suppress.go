// Package suppress implements the short-lived allow-list that hides the
// engine's own restorative writes from change tracking.
package suppress

import (
	"sync"
	"time"
)

// DefaultWindow must exceed typical OS event-delivery latency for a file
// the engine has just written, and stay short enough that a genuine edit
// shortly after a rollback is not swallowed.
const DefaultWindow = 3 * time.Second

// List maps root-relative paths to an expiry instant. While now is before
// the expiry, events for the path are dropped instead of recorded. The
// mechanism is advisory and best-effort: a missed suppression causes a
// spurious change record, never a correctness failure.
type List struct {
	window time.Duration

	mu    sync.Mutex
	until map[string]time.Time
}

// New returns a List with the given window; zero or negative falls back
// to DefaultWindow.
func New(window time.Duration) *List {
	if window <= 0 {
		window = DefaultWindow
	}
	return &List{
		window: window,
		until:  make(map[string]time.Time),
	}
}

// Add suppresses events for rel until the window elapses. Called before
// every write the engine performs itself.
func (l *List) Add(rel string) {
	l.mu.Lock()
	l.until[rel] = time.Now().Add(l.window)
	l.mu.Unlock()
}

// Active reports whether rel is currently suppressed. The entry stays
// live until it expires: one restore write can fan out into several OS
// events and all of them must be swallowed. Expired entries are pruned
// lazily here.
func (l *List) Active(rel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.until[rel]
	if !ok {
		return false
	}
	if time.Now().Before(expiry) {
		return true
	}
	delete(l.until, rel)
	return false
}
