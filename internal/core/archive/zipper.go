// Package archive packages a mirrored site directory into a ZIP file in
// the sandbox output directory.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sitemirror/internal/logger"
	"sitemirror/internal/platform/sandbox"
)

type Zipper struct {
	sandbox *sandbox.Sandbox
	log     *logger.Logger
}

func NewZipper(sb *sandbox.Sandbox) *Zipper {
	return &Zipper{sandbox: sb, log: logger.New("Zipper")}
}

// Compress packs sourceDir into <output>/<base>.zip, keeping the folder
// name as the top-level directory inside the archive. On a name
// collision a unix-timestamp suffix is appended.
func (z *Zipper) Compress(sourceDir string) (string, error) {
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("source directory not found: %s", sourceDir)
	}

	base := filepath.Base(filepath.Clean(sourceDir))
	zipPath := filepath.Join(z.sandbox.OutputDir(), base+".zip")
	if _, err := os.Stat(zipPath); err == nil {
		zipPath = filepath.Join(z.sandbox.OutputDir(), fmt.Sprintf("%s_%d.zip", base, time.Now().Unix()))
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	err = filepath.Walk(sourceDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(base, rel))
		if fi.IsDir() {
			if rel == "." {
				return nil
			}
			_, err := w.Create(name + "/")
			return err
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		dst, err := w.Create(name)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(dst, src)
		return err
	})
	if err != nil {
		w.Close()
		os.Remove(zipPath)
		return "", fmt.Errorf("compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("compression failed: %w", err)
	}

	z.log.LogInfof("archived %s -> %s", base, strings.TrimPrefix(zipPath, z.sandbox.Root()+string(filepath.Separator)))
	return zipPath, nil
}
