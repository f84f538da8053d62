package diff

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUnifiedDiff(t *testing.T) {
	old := writeTemp(t, "old.txt", "one\ntwo\nthree\n")
	cur := writeTemp(t, "cur.txt", "one\n2\nthree\nfour\n")

	res, err := File("f.txt", cur, old)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if res.Identical || res.Binary {
		t.Fatalf("unexpected state: %+v", res)
	}
	if !strings.Contains(res.Unified, "--- checkpoint/f.txt") {
		t.Errorf("missing from-header in %q", res.Unified)
	}
	if !strings.Contains(res.Unified, "+++ current/f.txt") {
		t.Errorf("missing to-header in %q", res.Unified)
	}
	if res.Added != 2 || res.Removed != 1 {
		t.Errorf("added/removed = %d/%d, want 2/1", res.Added, res.Removed)
	}
}

func TestIdentical(t *testing.T) {
	old := writeTemp(t, "old.txt", "same\ncontent\n")
	cur := writeTemp(t, "cur.txt", "same\ncontent\n")

	res, err := File("f.txt", cur, old)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.Identical {
		t.Errorf("expected identical, got %+v", res)
	}
	if res.Unified != "" {
		t.Errorf("unified should be empty, got %q", res.Unified)
	}
}

func TestBinaryDetected(t *testing.T) {
	old := writeTemp(t, "old.bin", "plain")
	cur := writeTemp(t, "cur.bin", "bin\x00ary")

	res, err := File("f.bin", cur, old)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.Binary {
		t.Errorf("expected binary state, got %+v", res)
	}
}

func TestMissingSides(t *testing.T) {
	cur := writeTemp(t, "cur.txt", "new file\n")

	res, err := File("f.txt", cur, "")
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.OldMissing || res.NewMissing {
		t.Errorf("states = %+v, want old missing only", res)
	}
	if res.Added == 0 {
		t.Error("new file should count added lines")
	}

	res, err = File("f.txt", filepath.Join(t.TempDir(), "gone.txt"), "")
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if !res.BothMissing {
		t.Errorf("states = %+v, want both missing", res)
	}
}
