package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	root := t.TempDir()
	m := NewMatcher(root)

	cases := []struct {
		path string
		want bool
	}{
		{".git", true},
		{".git/config", true},
		{"sub/.git/HEAD", true},
		{"node_modules", true},
		{"a/b/node_modules/pkg/index.js", true},
		{"scratch.tmp", true},
		{"logs/build.log", true},
		{".idea/workspace.xml", true},
		{".vigia_backup", true},
		{"main.go", false},
		{"docs/readme.md", false},
		{"gitignore", false},
		{"tmp/data.txt", false},
	}
	for _, tc := range cases {
		if got := m.Ignored(tc.path); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	m := NewMatcher(root)

	if !m.Ignored(filepath.Join(root, "node_modules", "x.js")) {
		t.Error("absolute path under root should match")
	}
	if m.Ignored(filepath.Join(root, "src", "main.go")) {
		t.Error("absolute path should not match")
	}
	// Paths outside the root are never ignored.
	if m.Ignored("/etc/passwd") {
		t.Error("path outside root should not be ignored")
	}
}

func TestOverrideFile(t *testing.T) {
	root := t.TempDir()
	override := "# custom rules\n\nsecrets\n*.bak\nbuild/out/*.bin\n"
	if err := os.WriteFile(filepath.Join(root, OverrideFilename), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewMatcher(root)

	cases := []struct {
		path string
		want bool
	}{
		{"secrets", true},
		{"deep/secrets/key.pem", true},
		{"db.bak", true},
		{"build/out/app.bin", true},
		{"build/other/app.bin", false},
		{"main.go", false},
	}
	for _, tc := range cases {
		if got := m.Ignored(tc.path); got != tc.want {
			t.Errorf("Ignored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}

	// Defaults still apply alongside the override.
	if !m.Ignored(".git/config") {
		t.Error("defaults should remain active with an override file")
	}
}

func TestMissingOverrideIsNotAnError(t *testing.T) {
	m := NewMatcher(t.TempDir())
	if len(m.Patterns()) != len(defaultPatterns) {
		t.Errorf("patterns = %d, want %d defaults", len(m.Patterns()), len(defaultPatterns))
	}
}

func TestReload(t *testing.T) {
	root := t.TempDir()
	m := NewMatcher(root)

	if m.Ignored("private") {
		t.Fatal("precondition: private should not be ignored yet")
	}

	if err := os.WriteFile(filepath.Join(root, OverrideFilename), []byte("private\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Patterns never change silently; only an explicit reload picks them up.
	if m.Ignored("private") {
		t.Error("pattern applied before Reload")
	}

	m.Reload()
	if !m.Ignored("private") {
		t.Error("pattern not applied after Reload")
	}
}
