package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newInitialized(t *testing.T) *Sandbox {
	t.Helper()
	s := New(t.TempDir())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func TestInitializeIdempotent(t *testing.T) {
	s := newInitialized(t)
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	for _, dir := range []string{s.TempDir(), s.OutputDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s, got err=%v", dir, err)
		}
	}
}

func TestWithin(t *testing.T) {
	s := newInitialized(t)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"direct child", filepath.Join(s.TempDir(), "example.com"), true},
		{"nested child", filepath.Join(s.TempDir(), "example.com", "assets"), true},
		{"temp dir itself", s.TempDir(), false},
		{"sandbox root", s.Root(), false},
		{"output dir", s.OutputDir(), false},
		{"dot-dot escape", filepath.Join(s.TempDir(), "..", "output_zips"), false},
		{"unrelated absolute", "/etc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Within(tt.path); got != tt.want {
				t.Errorf("Within(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestWithinRejectsSymlinkEscape(t *testing.T) {
	s := newInitialized(t)

	outside := t.TempDir()
	link := filepath.Join(s.TempDir(), "sneaky")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if s.Within(link) {
		t.Error("symlink pointing outside the temp dir must not pass the boundary check")
	}
}

func TestClearFolderInsideBoundary(t *testing.T) {
	s := newInitialized(t)

	target := filepath.Join(s.TempDir(), "example.com")
	if err := os.MkdirAll(filepath.Join(target, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "sub", "index.html"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.ClearFolder(target)

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("expected %s to be removed, stat err=%v", target, err)
	}
}

func TestClearFolderOutsideBoundaryIsNoop(t *testing.T) {
	s := newInitialized(t)

	outside := t.TempDir()
	marker := filepath.Join(outside, "keep.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	s.ClearFolder(outside)

	b, err := os.ReadFile(marker)
	if err != nil || string(b) != "keep" {
		t.Errorf("file outside boundary was touched: %v %q", err, b)
	}
}

func TestSweepExpired(t *testing.T) {
	s := newInitialized(t)

	fresh := filepath.Join(s.OutputDir(), "fresh.zip")
	stale := filepath.Join(s.OutputDir(), "stale.zip")
	other := filepath.Join(s.OutputDir(), "notes.txt")
	for _, p := range []string{fresh, stale, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now()
	if err := os.Chtimes(fresh, now, now.Add(-30*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(stale, now, now.Add(-90*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, now, now.Add(-90*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if got := s.SweepExpired(60 * time.Minute); got != 1 {
		t.Errorf("SweepExpired = %d, want 1", got)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("90-minute-old archive should be deleted")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("30-minute-old archive should survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-zip files are not the sweep's business")
	}
}
