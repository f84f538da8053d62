package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vigialabs/vigia/internal/apperr"
	"github.com/vigialabs/vigia/internal/ledger"
)

// Rollback restores every file to its checkpoint state: staged copies
// are written back over the live tree and files created after the
// checkpoint are deleted. Each write is suppressed first so the session
// does not re-record its own restores. Per-file I/O errors are collected
// as warnings; the snapshot is discarded and both ledger tables are
// cleared unconditionally. The operation succeeded fully when the
// returned warning list is empty.
func (m *Monitor) Rollback() ([]string, error) {
	m.cpMu.Lock()
	defer m.cpMu.Unlock()

	if !m.snap.Active() {
		return nil, apperr.ErrNoCheckpoint
	}

	var warnings []string

	staged, err := m.snap.Files()
	if err != nil {
		warnings = append(warnings, err.Error())
	}
	for _, rel := range staged {
		m.sup.Add(rel)
		if restoreErr := m.snap.Restore(rel); restoreErr != nil {
			warnings = append(warnings, restoreErr.Error())
		}
	}

	// Files created after the checkpoint did not exist at snapshot time;
	// restoring them means removing them.
	for _, rel := range m.changes.CreatedSinceCheckpoint() {
		m.sup.Add(rel)
		target := filepath.Join(m.root, filepath.FromSlash(rel))
		if rmErr := os.Remove(target); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			warnings = append(warnings, fmt.Sprintf("%s: %v", target, rmErr))
		}
	}

	m.snap.Discard()
	m.changes.EndCheckpoint(true)

	m.logger.Info("monitor: rollback finished",
		slog.String("root", m.root),
		slog.Int("restored", len(staged)),
		slog.Int("warnings", len(warnings)))
	for _, w := range warnings {
		m.logger.Warn("monitor: rollback warning", slog.String("detail", w))
	}
	return warnings, nil
}

// RollbackFile restores a single file to its checkpoint state:
//
//   - recorded as created → the live file is deleted (it did not exist
//     at checkpoint time; a missing file is not an error)
//   - a staged copy exists → it is copied back over the live file
//   - tracked with any other kind but no staged copy → the live file is
//     deleted, same as the created case
//   - untracked and unstaged → apperr.ErrNotFound; nothing is touched
//
// On success the path is removed from both ledger tables.
func (m *Monitor) RollbackFile(rel string) error {
	m.cpMu.Lock()
	defer m.cpMu.Unlock()

	if !m.snap.Active() {
		return apperr.ErrNoCheckpoint
	}

	change, tracked := m.changes.Lookup(rel)
	_, staged := m.snap.Path(rel)
	if !tracked && !staged {
		return apperr.ErrNotFound
	}

	live := filepath.Join(m.root, filepath.FromSlash(rel))

	switch {
	case tracked && change.Kind == ledger.KindCreated:
		m.sup.Add(rel)
		if err := os.Remove(live); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("monitor: rollback file failed",
				slog.String("path", rel), slog.String("error", err.Error()))
			return fmt.Errorf("monitor: delete %s: %w", rel, err)
		}

	case staged:
		m.sup.Add(rel)
		if err := m.snap.Restore(rel); err != nil {
			m.logger.Warn("monitor: rollback file failed",
				slog.String("path", rel), slog.String("error", err.Error()))
			return err
		}

	default:
		// Tracked but absent from the snapshot (for example deleted before
		// the checkpoint captured it). Removing the live file is the
		// closest match to checkpoint state.
		m.sup.Add(rel)
		if err := os.Remove(live); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("monitor: rollback file failed",
				slog.String("path", rel), slog.String("error", err.Error()))
			return fmt.Errorf("monitor: delete %s: %w", rel, err)
		}
	}

	m.changes.Remove(rel)
	m.logger.Info("monitor: file rolled back", slog.String("path", rel))
	return nil
}
