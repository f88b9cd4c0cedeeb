package workflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Add user authentication", "add-user-authentication"},
		{"Fix   multiple   spaces", "fix-multiple-spaces"},
		{"Under_scores_too", "under-scores-too"},
		{"Special!@#Characters", "specialcharacters"},
		{"--leading-and-trailing--", "leading-and-trailing"},
		{"ALL CAPS TITLE", "all-caps-title"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSlugify_LengthLimit(t *testing.T) {
	long := "this is a very long change description that should definitely be truncated somewhere"
	slug := Slugify(long)
	if len(slug) > 50 {
		t.Errorf("slug length = %d, want <= 50", len(slug))
	}
	if slug[len(slug)-1] == '-' {
		t.Error("slug must not end on a hyphen")
	}
}

func TestManagerPaths(t *testing.T) {
	m := NewManager("/repo")

	tests := []struct {
		got  string
		want string
	}{
		{m.RootPath(), "/repo/.specgov"},
		{m.SpecsPath(), "/repo/.specgov/specs"},
		{m.ChangesPath(), "/repo/.specgov/changes"},
		{m.ArchivePath(), "/repo/.specgov/archive"},
		{m.ChangePath("add-auth"), "/repo/.specgov/changes/add-auth"},
		{m.BaselinePath("auth"), "/repo/.specgov/specs/auth/spec.md"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestManagerWithCustomRoot(t *testing.T) {
	m := NewManagerWithRoot("/repo", ".governance")
	if m.RootPath() != "/repo/.governance" {
		t.Errorf("RootPath = %q", m.RootPath())
	}

	fallback := NewManagerWithRoot("/repo", "")
	if fallback.RootPath() != "/repo/.specgov" {
		t.Errorf("empty rootDir should fall back to default, got %q", fallback.RootPath())
	}
}

func TestEnsureDirectories(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{m.RootPath(), m.SpecsPath(), m.ChangesPath(), m.ArchivePath()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s missing after EnsureDirectories", dir)
		}
	}

	// Idempotent.
	if err := m.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
}

func TestDeltaFiles(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	changeDir := m.ChangePath("add-auth")
	for _, capability := range []string{"sessions", "auth"} {
		dir := filepath.Join(changeDir, SpecsDir, capability)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, SpecFile), []byte("## ADDED Requirements\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	// A stray non-spec file must not be picked up.
	if err := os.WriteFile(filepath.Join(changeDir, SpecsDir, "notes.md"), []byte("notes"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := m.DeltaFiles("add-auth")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d delta files, want 2", len(files))
	}
	// Sorted by capability.
	if files[0].Capability != "auth" || files[1].Capability != "sessions" {
		t.Errorf("capabilities = %s, %s; want auth, sessions", files[0].Capability, files[1].Capability)
	}
}

func TestListChangeNames(t *testing.T) {
	m := NewManager(t.TempDir())

	// Missing changes directory is not an error.
	names, err := m.ListChangeNames()
	if err != nil || names != nil {
		t.Fatalf("names=%v err=%v, want nil/nil", names, err)
	}

	if err := m.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"zeta", "alpha"} {
		if err := os.MkdirAll(m.ChangePath(name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// Files at the changes level are ignored.
	if err := os.WriteFile(filepath.Join(m.ChangesPath(), "README.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err = m.ListChangeNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("names = %v, want [alpha zeta]", names)
	}
}
