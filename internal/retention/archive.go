package retention

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Archive compresses the whole corpus into archived/{name}.zip. An empty
// name defaults to a timestamp. The archived directory itself is excluded
// so the bundle never contains earlier archives (or itself, mid-write).
func (m *Manager) Archive(name string) (string, error) {
	if name == "" {
		name = "archive_" + time.Now().Format("20060102_150405")
	}

	destDir := filepath.Join(m.base, "archived")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	dest := filepath.Join(destDir, name+".zip")
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.Walk(m.base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.base, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if rel == "archived" {
				return filepath.SkipDir
			}
			return nil
		}

		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})

	if walkErr == nil {
		walkErr = zw.Close()
	} else {
		zw.Close()
	}
	if cerr := out.Close(); walkErr == nil {
		walkErr = cerr
	}

	if walkErr != nil {
		os.Remove(dest)
		return "", fmt.Errorf("archiving corpus: %w", walkErr)
	}

	log.Printf("Created archive: %s", filepath.Base(dest))
	return dest, nil
}
