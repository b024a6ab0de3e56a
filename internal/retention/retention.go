// Package retention manages the artifact corpus lifecycle: organizing
// artifacts into date partitions, expiring old ones, creating backups and
// archives, and validating corpus integrity.
//
// Retention operations move and delete files. They must not run
// concurrently with pipeline writes against the same partitions; callers
// either serialize them (the schedule package holds one mutex across runs
// and sweeps) or schedule sweeps outside ingestion windows.
package retention

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Directories never touched by organize, expire, backup, or archive.
var reservedDirs = map[string]bool{
	"backups":  true,
	"archived": true,
	"logs":     true,
}

// kindDirs are the un-partitioned top-level artifact directories.
var kindDirs = []string{"raw", "analyzed", "processed", "insights", "reports"}

// Manager performs lifecycle operations on the artifact corpus. It is the
// only component that deletes or moves artifacts.
type Manager struct {
	base string
}

// NewManager creates a Manager over the corpus rooted at base.
func NewManager(base string) *Manager {
	return &Manager{base: base}
}

// OrganizeByDate moves artifacts out of the flat kind directories into
// {date}/{kind}/ when their filename encodes the date (dashes stripped).
// Files that don't match stay where they are; re-running is a no-op.
func (m *Manager) OrganizeByDate(date string) (map[string][]string, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	compact := strings.ReplaceAll(date, "-", "")
	moved := make(map[string][]string)

	for _, kind := range kindDirs {
		srcDir := filepath.Join(m.base, kind)
		entries, err := os.ReadDir(srcDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", srcDir, err)
		}

		destDir := filepath.Join(m.base, date, kind)
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			if !strings.Contains(entry.Name(), compact) {
				continue
			}

			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return nil, fmt.Errorf("creating partition %s: %w", destDir, err)
			}
			src := filepath.Join(srcDir, entry.Name())
			dest := filepath.Join(destDir, entry.Name())
			if err := os.Rename(src, dest); err != nil {
				return nil, fmt.Errorf("moving %s: %w", src, err)
			}
			moved[kind] = append(moved[kind], entry.Name())
		}
	}

	log.Printf("Organized %d files into partition %s", countMoved(moved), date)
	return moved, nil
}

// Expire deletes date partitions older than daysToKeep and loose files in
// the kind directories past the cutoff by modification time. The sweep is
// best-effort: per-entry failures are logged and skipped. Directories whose
// names don't parse as dates are never touched. Returns the removed paths.
func (m *Manager) Expire(daysToKeep int) []string {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	var removed []string

	// Sweep 1: whole date partitions.
	entries, err := os.ReadDir(m.base)
	if err != nil {
		log.Printf("Expire: reading corpus root: %v", err)
		return removed
	}
	for _, entry := range entries {
		if !entry.IsDir() || reservedDirs[entry.Name()] {
			continue
		}
		dirDate, err := time.Parse("2006-01-02", entry.Name())
		if err != nil {
			continue // not a date partition
		}
		if !dirDate.Before(cutoff) {
			continue
		}

		path := filepath.Join(m.base, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Expire: removing partition %s: %v", path, err)
			continue
		}
		removed = append(removed, path)
	}

	// Sweep 2: loose files in the flat kind directories.
	for _, kind := range kindDirs {
		dir := filepath.Join(m.base, kind)
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}

			path := filepath.Join(dir, f.Name())
			if err := os.Remove(path); err != nil {
				log.Printf("Expire: removing %s: %v", path, err)
				continue
			}
			removed = append(removed, path)
		}
	}

	log.Printf("Expired %d entries older than %d days", len(removed), daysToKeep)
	return removed
}

// Backup copies every top-level directory except the reserved ones, plus
// loose files, into backups/{name}. An empty name defaults to a timestamp.
// On failure the partial backup directory is removed.
func (m *Manager) Backup(name string) (string, error) {
	if name == "" {
		name = "backup_" + time.Now().Format("20060102_150405")
	}

	dest := filepath.Join(m.base, "backups", name)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	if err := m.copyCorpus(dest); err != nil {
		os.RemoveAll(dest)
		return "", fmt.Errorf("creating backup %s: %w", name, err)
	}

	log.Printf("Created backup: %s", name)
	return dest, nil
}

func (m *Manager) copyCorpus(dest string) error {
	entries, err := os.ReadDir(m.base)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		src := filepath.Join(m.base, entry.Name())
		target := filepath.Join(dest, entry.Name())

		if entry.IsDir() {
			if reservedDirs[entry.Name()] {
				continue
			}
			if err := copyDir(src, target); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(src, target); err != nil {
			return err
		}
	}
	return nil
}

func copyDir(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dest, entry.Name())
		if entry.IsDir() {
			if err := copyDir(s, d); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(s, d); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

func countMoved(moved map[string][]string) int {
	n := 0
	for _, files := range moved {
		n += len(files)
	}
	return n
}
