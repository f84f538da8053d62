// Package snapshot materializes a point-in-time copy of a watched tree
// into a private staging directory and restores files from it.
package snapshot

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vigialabs/vigia/internal/checksum"
	"github.com/vigialabs/vigia/internal/ignore"
)

// Store owns at most one live staging directory for a single watch
// session. Creating a new snapshot discards the previous one first.
type Store struct {
	root string // absolute watched root

	mu       sync.Mutex
	dir      string            // staging directory, "" when no snapshot
	manifest map[string]uint64 // rel path -> xxh3 digest at copy time
}

// New returns a Store for the given watched root.
func New(root string) *Store {
	return &Store{root: root}
}

// Active reports whether a staging directory currently exists.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir != ""
}

// Dir returns the staging directory path, or "" when no snapshot exists.
func (s *Store) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Create walks the watched root, pruning ignored directories, and copies
// every non-ignored file into a fresh staging directory, mirroring the
// relative structure and preserving mode and mtime. Per-file copy
// failures are collected as warnings and do not abort the snapshot: a
// partial snapshot is better than none, though files that failed to copy
// will not be restorable.
func (s *Store) Create(matcher *ignore.Matcher) ([]string, error) {
	s.Discard()

	tmp, err := os.MkdirTemp("", "vigia-checkpoint-*")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create staging dir: %w", err)
	}

	var warnings []string
	manifest := make(map[string]uint64)

	walkErr := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root {
				return err
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v", p, err))
			return nil
		}
		if d.IsDir() {
			if p != s.root && matcher.Ignored(p) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.Ignored(p) {
			return nil
		}

		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		dst := filepath.Join(tmp, filepath.FromSlash(rel))
		if copyErr := copyFile(p, dst); copyErr != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", p, copyErr))
			return nil
		}
		if sum, sumErr := checksum.SumFile(dst); sumErr == nil {
			manifest[rel] = sum
		}
		return nil
	})
	if walkErr != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("snapshot: walk root: %w", walkErr)
	}

	s.mu.Lock()
	s.dir = tmp
	s.manifest = manifest
	s.mu.Unlock()

	return warnings, nil
}

// Discard removes the staging directory, best-effort. Failures are
// swallowed: an orphaned staging directory is a cleanup nuisance, not a
// correctness issue.
func (s *Store) Discard() {
	s.mu.Lock()
	dir := s.dir
	s.dir = ""
	s.manifest = nil
	s.mu.Unlock()

	if dir != "" {
		_ = os.RemoveAll(dir)
	}
}

// Path returns the staged copy's path for rel if it exists on disk.
func (s *Store) Path(rel string) (string, bool) {
	s.mu.Lock()
	dir := s.dir
	s.mu.Unlock()

	if dir == "" {
		return "", false
	}
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Sum returns the manifest digest recorded for rel at copy time.
func (s *Store) Sum(rel string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.manifest[rel]
	return sum, ok
}

// Files lists the relative (slash-separated) paths of every staged file.
func (s *Store) Files() ([]string, error) {
	s.mu.Lock()
	dir := s.dir
	s.mu.Unlock()

	if dir == "" {
		return nil, nil
	}
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: list staged files: %w", err)
	}
	return out, nil
}

// Restore copies the staged file for rel back over the live path,
// creating parent directories as needed.
func (s *Store) Restore(rel string) error {
	src, ok := s.Path(rel)
	if !ok {
		return fmt.Errorf("snapshot: no staged copy for %s", rel)
	}
	dst := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("snapshot: restore %s: %w", rel, err)
	}
	return nil
}

// copyFile copies src to dst, creating dst's parents and carrying over
// the source mode and mtime where the platform allows.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	_ = os.Chmod(dst, info.Mode().Perm())
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}
