package monitor

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vigialabs/vigia/internal/ledger"
	"github.com/vigialabs/vigia/internal/testutil"
)

const (
	waitFor = 5 * time.Second
	tick    = 20 * time.Millisecond
)

func newTestMonitor(t *testing.T, root string, opts ...Option) *Monitor {
	t.Helper()
	opts = append([]Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	m, err := New(root, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)

	// Give the watcher a moment to become active.
	time.Sleep(100 * time.Millisecond)
	return m
}

func waitForChange(t *testing.T, m *Monitor, rel string, kind ledger.Kind) {
	t.Helper()
	testutil.Eventually(t, waitFor, tick, func() bool {
		c, ok := m.Changes()[rel]
		return ok && c.Kind == kind
	}, "no "+string(kind)+" change recorded for "+rel)
}

func TestNewRejectsNonDirectory(t *testing.T) {
	root := testutil.TestRoot(t, map[string]string{"f.txt": "x"})
	if _, err := New(filepath.Join(root, "f.txt")); err == nil {
		t.Fatal("expected error for file root")
	}
	if _, err := New(filepath.Join(root, "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestTracksCreatedFile(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	testutil.WriteFile(t, root, "new.txt", "hello")
	waitForChange(t, m, "new.txt", ledger.KindCreated)
}

func TestTracksModifiedFile(t *testing.T) {
	root := testutil.TestRoot(t, map[string]string{"f.txt": "v1"})
	m := newTestMonitor(t, root)

	testutil.WriteFile(t, root, "f.txt", "v2")
	waitForChange(t, m, "f.txt", ledger.KindModified)
}

func TestTracksDeletedFile(t *testing.T) {
	root := testutil.TestRoot(t, map[string]string{"f.txt": "x"})
	m := newTestMonitor(t, root)

	if err := os.Remove(filepath.Join(root, "f.txt")); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, m, "f.txt", ledger.KindDeleted)
}

func TestRenameRecordsMoveAndCreate(t *testing.T) {
	root := testutil.TestRoot(t, map[string]string{"old.txt": "x"})
	m := newTestMonitor(t, root)

	if err := os.Rename(filepath.Join(root, "old.txt"), filepath.Join(root, "new.txt")); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, m, "old.txt", ledger.KindMoved)
	waitForChange(t, m, "new.txt", ledger.KindCreated)
}

func TestIgnoredPathsNotTracked(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	testutil.WriteFile(t, root, "build.log", "noise")
	testutil.WriteFile(t, root, "tracked.txt", "signal")

	waitForChange(t, m, "tracked.txt", ledger.KindCreated)
	if _, ok := m.Changes()["build.log"]; ok {
		t.Error("ignored file was tracked")
	}
}

func TestIgnoredDirectoryNotWatched(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	testutil.WriteFile(t, root, "node_modules/pkg/index.js", "dep")
	testutil.WriteFile(t, root, "src/main.go", "code")

	waitForChange(t, m, "src/main.go", ledger.KindCreated)
	for rel := range m.Changes() {
		if strings.HasPrefix(rel, "node_modules/") {
			t.Errorf("change recorded under ignored directory: %s", rel)
		}
	}
}

func TestNewDirectoryWatchedRecursively(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Let the new directories land on the watch list first.
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, root, "a/b/deep.txt", "x")
	waitForChange(t, m, "a/b/deep.txt", ledger.KindCreated)
}

func TestNotificationsDelivered(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	testutil.WriteFile(t, root, "n.txt", "x")

	select {
	case n := <-m.Events():
		if n.Root != m.Root() || n.Path != "n.txt" || n.Kind != ledger.KindCreated {
			t.Errorf("notification = %+v", n)
		}
	case <-time.After(waitFor):
		t.Fatal("no notification delivered")
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	if err := m.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	m.Stop()
	m.Stop()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
}

func TestReloadIgnorePatterns(t *testing.T) {
	root := testutil.TestRoot(t, nil)
	m := newTestMonitor(t, root)

	base := len(m.IgnorePatterns())
	testutil.WriteFile(t, root, ".vigiaignore", "*.secret\n")
	m.ReloadIgnorePatterns()

	patterns := m.IgnorePatterns()
	if got := len(patterns); got != base+1 {
		t.Errorf("pattern count = %d, want %d defaults plus the override", got, base+1)
	}
	found := false
	for _, p := range patterns {
		if p == "*.secret" {
			found = true
		}
	}
	if !found {
		t.Errorf("override pattern missing from %v", patterns)
	}
}
