// Package ledger keeps the in-memory record of per-file change kinds and
// timestamps for one watch session.
package ledger

import (
	"sync"
	"time"
)

// Kind is the effective change type recorded for a path. Raw OS events are
// decoded into a Kind at the notification boundary; platform event types
// never reach this package.
type Kind string

// The four change kinds.
const (
	KindCreated  Kind = "created"
	KindModified Kind = "modified"
	KindDeleted  Kind = "deleted"
	KindMoved    Kind = "moved"
)

// Change is the recorded state for one relative path.
type Change struct {
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`
}

// Ledger holds two parallel change tables keyed by root-relative path:
// the all-time table (every change since the last clear) and the
// since-checkpoint table (populated only while a checkpoint is active).
// External readers see exactly one of the two, never both.
//
// All methods are safe for concurrent use; Register is called from the
// event-delivery goroutine while reads come from API handlers.
type Ledger struct {
	mu     sync.Mutex
	all    map[string]Change
	since  map[string]Change
	active bool
}

// New returns an empty Ledger with no active checkpoint.
func New() *Ledger {
	return &Ledger{
		all:   make(map[string]Change),
		since: make(map[string]Change),
	}
}

// coalesce merges a new raw kind with a previously recorded one.
// Windows often delivers created followed immediately by modified for a
// brand-new file; a file deleted then recreated is net modified; every
// other transition takes the newest kind verbatim.
func coalesce(prev Kind, hasPrev bool, next Kind) Kind {
	switch {
	case !hasPrev:
		return next
	case prev == KindCreated && next == KindModified:
		return KindCreated
	case prev == KindDeleted && next == KindCreated:
		return KindModified
	default:
		return next
	}
}

// Register records a raw change for rel at the given time, coalescing
// independently into the all-time table and, if a checkpoint is active,
// the since-checkpoint table.
func (l *Ledger) Register(rel string, kind Kind, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.all[rel]
	l.all[rel] = Change{Kind: coalesce(prev.Kind, ok, kind), Time: at}

	if l.active {
		prev, ok := l.since[rel]
		l.since[rel] = Change{Kind: coalesce(prev.Kind, ok, kind), Time: at}
	}
}

// Snapshot returns a defensive copy of the visible table: since-checkpoint
// while a checkpoint is active, all-time otherwise.
func (l *Ledger) Snapshot() map[string]Change {
	l.mu.Lock()
	defer l.mu.Unlock()

	src := l.all
	if l.active {
		src = l.since
	}
	out := make(map[string]Change, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Remove drops rel from both tables.
func (l *Ledger) Remove(rel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.all, rel)
	delete(l.since, rel)
}

// ClearAll empties both tables. The checkpoint flag is left alone.
func (l *Ledger) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = make(map[string]Change)
	l.since = make(map[string]Change)
}

// Active reports whether a checkpoint is currently active.
func (l *Ledger) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// BeginCheckpoint marks a checkpoint active with an empty
// since-checkpoint table.
func (l *Ledger) BeginCheckpoint() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
	l.since = make(map[string]Change)
}

// EndCheckpoint deactivates the checkpoint and empties the
// since-checkpoint table. With resetAll set (full rollback) the all-time
// table is emptied too; a cancel leaves it untouched so monitoring
// continues as if no checkpoint had existed.
func (l *Ledger) EndCheckpoint(resetAll bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
	l.since = make(map[string]Change)
	if resetAll {
		l.all = make(map[string]Change)
	}
}

// CreatedSinceCheckpoint lists paths whose since-checkpoint record is
// KindCreated. These did not exist at checkpoint time, so a full rollback
// removes them.
func (l *Ledger) CreatedSinceCheckpoint() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for rel, c := range l.since {
		if c.Kind == KindCreated {
			out = append(out, rel)
		}
	}
	return out
}

// Lookup returns the recorded change for rel, preferring the
// since-checkpoint table over the all-time table.
func (l *Ledger) Lookup(rel string) (Change, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.since[rel]; ok {
		return c, true
	}
	c, ok := l.all[rel]
	return c, ok
}
