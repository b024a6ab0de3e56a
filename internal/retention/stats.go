package retention

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InvalidArtifact records one artifact that failed to parse.
type InvalidArtifact struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// IntegrityReport is the result of a corpus validation walk.
type IntegrityReport struct {
	Valid   []string          `json:"valid"`
	Invalid []InvalidArtifact `json:"invalid"`
	Total   int               `json:"total"`
}

// ValidateIntegrity parses every JSON artifact in the corpus. Parse
// failures are reported as data, never raised.
func (m *Manager) ValidateIntegrity() (*IntegrityReport, error) {
	report := &IntegrityReport{}

	err := filepath.Walk(m.base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		report.Total++
		data, err := os.ReadFile(path)
		if err != nil {
			report.Invalid = append(report.Invalid, InvalidArtifact{Path: path, Error: err.Error()})
			return nil
		}
		if !json.Valid(data) {
			report.Invalid = append(report.Invalid, InvalidArtifact{Path: path, Error: "invalid JSON"})
			return nil
		}
		report.Valid = append(report.Valid, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// DirStats holds file count and total size for one grouping.
type DirStats struct {
	Files int   `json:"files"`
	Size  int64 `json:"size"`
}

// FileActivity records one recently modified file.
type FileActivity struct {
	Path     string    `json:"file"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// Statistics is a full storage report over the corpus.
type Statistics struct {
	TotalFiles     int                 `json:"total_files"`
	TotalSizeBytes int64               `json:"total_size_bytes"`
	TotalSizeMB    float64             `json:"total_size_mb"`
	ByDirectory    map[string]DirStats `json:"by_directory"`
	ByEntity       map[string]DirStats `json:"by_entity"`
	RecentActivity []FileActivity      `json:"recent_activity"`
}

// Statistics walks the corpus once and reports sizes by directory and by
// entity (inferred from the filename prefix), plus files modified within
// the last 7 days. Pure read.
func (m *Manager) Statistics() (*Statistics, error) {
	stats := &Statistics{
		ByDirectory: make(map[string]DirStats),
		ByEntity:    make(map[string]DirStats),
	}
	recentCutoff := time.Now().AddDate(0, 0, -7)

	err := filepath.Walk(m.base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		size := info.Size()
		stats.TotalFiles++
		stats.TotalSizeBytes += size

		dir := filepath.Base(filepath.Dir(path))
		ds := stats.ByDirectory[dir]
		ds.Files++
		ds.Size += size
		stats.ByDirectory[dir] = ds

		name := info.Name()
		if idx := strings.Index(name, "_"); idx > 0 {
			entity := name[:idx]
			es := stats.ByEntity[entity]
			es.Files++
			es.Size += size
			stats.ByEntity[entity] = es
		}

		if info.ModTime().After(recentCutoff) {
			stats.RecentActivity = append(stats.RecentActivity, FileActivity{
				Path:     path,
				Modified: info.ModTime(),
				Size:     size,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.TotalSizeMB = float64(stats.TotalSizeBytes) / (1024 * 1024)
	return stats, nil
}

// Summary is a compact storage usage overview.
type Summary struct {
	TotalSize   int64               `json:"total_size"`
	TotalSizeMB float64             `json:"total_size_mb"`
	Directories map[string]DirStats `json:"directories"`
}

// Summary walks the corpus and reports total size and per-directory usage.
// Pure read.
func (m *Manager) Summary() (*Summary, error) {
	stats, err := m.Statistics()
	if err != nil {
		return nil, err
	}
	return &Summary{
		TotalSize:   stats.TotalSizeBytes,
		TotalSizeMB: stats.TotalSizeMB,
		Directories: stats.ByDirectory,
	}, nil
}
