// Package ignore decides which paths are excluded from change tracking
// and snapshotting, combining built-in defaults with a per-root override file.
package ignore

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// OverrideFilename is the per-root pattern file, one glob per line.
// Lines starting with # and blank lines are skipped.
const OverrideFilename = ".vigiaignore"

// defaultPatterns are always in effect, similar to a built-in .gitignore:
// VCS metadata, dependency caches, OS metadata, temp/log extensions,
// IDE folders, and the engine's own backup naming.
var defaultPatterns = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"__pycache__",
	"*.pyc",
	".DS_Store",
	"Thumbs.db",
	"*.tmp",
	"*.log",
	"*.swp",
	"*~",
	".idea",
	".vscode",
	".vigia_backup",
}

// Matcher matches paths under a single watched root against an ordered
// pattern list. Patterns are loaded once at construction and only change
// on an explicit Reload, never mid-walk.
type Matcher struct {
	root string // absolute watched root

	mu       sync.RWMutex
	patterns []string
}

// NewMatcher creates a Matcher rooted at the given absolute directory and
// loads built-in defaults plus the override file (if present).
func NewMatcher(root string) *Matcher {
	m := &Matcher{root: root}
	m.patterns = m.load()
	return m
}

// load returns defaults plus the override file's patterns. A missing or
// unreadable override file is not an error.
func (m *Matcher) load() []string {
	patterns := make([]string, len(defaultPatterns))
	copy(patterns, defaultPatterns)

	f, err := os.Open(filepath.Join(m.root, OverrideFilename))
	if err != nil {
		return patterns
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// Reload re-reads the override file. Safe to call while the event loop
// is matching.
func (m *Matcher) Reload() {
	patterns := m.load()
	m.mu.Lock()
	m.patterns = patterns
	m.mu.Unlock()
}

// Patterns returns a copy of the active pattern list.
func (m *Matcher) Patterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.patterns))
	copy(out, m.patterns)
	return out
}

// Ignored reports whether path (absolute or root-relative) is excluded.
// A path is ignored when any single segment, or the whole root-relative
// path, matches any pattern. Paths outside the root are never ignored.
func (m *Matcher) Ignored(p string) bool {
	rel := p
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(m.root, p)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." {
		return false
	}
	segments := strings.Split(rel, "/")

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pattern := range m.patterns {
		for _, seg := range segments {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
		if ok, _ := path.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}
	return false
}
