package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"sitemirror/internal/logger"
)

const (
	tempDirName   = "temp_sites"
	outputDirName = "output_zips"
)

// Sandbox owns a storage root and guarantees that destructive operations
// never escape it. In-progress mirrors live under temp_sites, finished
// archives under output_zips.
type Sandbox struct {
	root      string
	tempDir   string
	outputDir string
	log       *logger.Logger
}

func New(root string) *Sandbox {
	return &Sandbox{
		root:      root,
		tempDir:   filepath.Join(root, tempDirName),
		outputDir: filepath.Join(root, outputDirName),
		log:       logger.New("Sandbox"),
	}
}

func (s *Sandbox) Root() string      { return s.root }
func (s *Sandbox) TempDir() string   { return s.tempDir }
func (s *Sandbox) OutputDir() string { return s.outputDir }

// Initialize creates the storage tree. Idempotent; an error here means the
// filesystem itself is unusable and the caller should treat it as fatal.
func (s *Sandbox) Initialize() error {
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", s.tempDir)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", s.outputDir)
	}
	s.log.LogInfof("storage initialized at %s", s.root)
	return nil
}

// Within reports whether path resolves to a location strictly inside the
// temp directory. Both sides are canonicalized (symlinks resolved on the
// deepest existing ancestor), so `..` segments and symlink hops cannot
// widen the boundary.
func (s *Sandbox) Within(path string) bool {
	tempResolved, err := canonicalize(s.tempDir)
	if err != nil {
		return false
	}
	pathResolved, err := canonicalize(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(tempResolved, pathResolved)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalize returns the absolute, symlink-resolved form of path. The
// path itself need not exist: the deepest existing ancestor is resolved
// and the remaining segments are reattached lexically.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	existing := abs
	var tail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		tail = append([]string{filepath.Base(existing)}, tail...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, tail...)...), nil
}

// ClearFolder deletes the directory at path if and only if it sits inside
// the temp boundary. A path outside the boundary is logged as a security
// warning and left untouched; deletion failures are logged, never fatal.
func (s *Sandbox) ClearFolder(path string) {
	if !s.Within(path) {
		s.log.LogWarnf("security: refusing to delete outside temp dir: %s", path)
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		s.log.LogErrorf("failed to clear %s: %v", path, err)
		return
	}
	s.log.LogInfof("removed temp folder %s", filepath.Base(path))
}

// SweepExpired deletes archives in the output directory whose modification
// time is older than maxAge. One file failing to delete does not stop the
// sweep. Returns the number of archives removed.
func (s *Sandbox) SweepExpired(maxAge time.Duration) int {
	matches, err := filepath.Glob(filepath.Join(s.outputDir, "*.zip"))
	if err != nil {
		s.log.LogErrorf("sweep glob failed: %v", err)
		return 0
	}

	now := time.Now()
	count := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.LogErrorf("failed to delete expired archive %s: %v", filepath.Base(path), err)
			continue
		}
		count++
		s.log.LogInfof("deleted expired archive %s", filepath.Base(path))
	}
	if count > 0 {
		s.log.LogInfof("sweep removed %d expired archives", count)
	}
	return count
}
