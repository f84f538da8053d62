package monitor

import (
	"log/slog"

	"github.com/vigialabs/vigia/internal/apperr"
)

// CreateCheckpoint snapshots the current tree state into a private
// staging directory and starts tracking changes against it. An existing
// checkpoint is discarded first; at most one is live per session.
// Per-file copy failures are returned as warnings and do not abort.
//
// The bulk copy runs without the ledger lock; only the final flag flip
// and table swap take it.
func (m *Monitor) CreateCheckpoint() ([]string, error) {
	m.cpMu.Lock()
	defer m.cpMu.Unlock()

	warnings, err := m.snap.Create(m.matcher)
	if err != nil {
		return nil, err
	}

	m.changes.BeginCheckpoint()

	m.logger.Info("monitor: checkpoint created",
		slog.String("root", m.root),
		slog.String("staging", m.snap.Dir()),
		slog.Int("warnings", len(warnings)))
	for _, w := range warnings {
		m.logger.Warn("monitor: checkpoint copy failed", slog.String("detail", w))
	}
	return warnings, nil
}

// CancelCheckpoint discards the snapshot without touching live files.
// The since-checkpoint table is cleared; the all-time table is kept, so
// monitoring continues uninterrupted as if no checkpoint had existed.
func (m *Monitor) CancelCheckpoint() error {
	m.cpMu.Lock()
	defer m.cpMu.Unlock()

	if !m.snap.Active() {
		return apperr.ErrNoCheckpoint
	}
	m.snap.Discard()
	m.changes.EndCheckpoint(false)

	m.logger.Info("monitor: checkpoint cancelled", slog.String("root", m.root))
	return nil
}

// CheckpointPath returns the staged copy's path for rel if the snapshot
// holds one. Pure lookup, used by the diff renderer.
func (m *Monitor) CheckpointPath(rel string) (string, bool) {
	return m.snap.Path(rel)
}

// CheckpointSum returns the snapshot manifest digest for rel, when a
// staged copy exists.
func (m *Monitor) CheckpointSum(rel string) (uint64, bool) {
	return m.snap.Sum(rel)
}

// ClearChanges empties the all-time change table. Only permitted while
// no checkpoint is active.
func (m *Monitor) ClearChanges() error {
	m.cpMu.Lock()
	defer m.cpMu.Unlock()

	if m.changes.Active() {
		return apperr.ErrCheckpointActive
	}
	m.changes.ClearAll()
	return nil
}
