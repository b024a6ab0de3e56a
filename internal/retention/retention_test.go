package retention

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeArtifact(t *testing.T, base, kind, name string) string {
	t.Helper()
	dir := filepath.Join(base, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOrganizeByDate(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	matching := writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	other := writeArtifact(t, base, "raw", "acme_raw_20260829_120000.json")
	nonJSON := writeArtifact(t, base, "raw", "notes_20260830.txt")

	moved, err := m.OrganizeByDate("2026-08-30")
	if err != nil {
		t.Fatalf("OrganizeByDate: %v", err)
	}

	if len(moved["raw"]) != 1 {
		t.Fatalf("moved %v, want one raw file", moved)
	}
	dest := filepath.Join(base, "2026-08-30", "raw", "acme_raw_20260830_120000.json")
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("moved file missing at %s", dest)
	}
	if _, err := os.Stat(matching); !os.IsNotExist(err) {
		t.Error("original file still in flat directory")
	}
	// Files for other dates and non-JSON files stay put.
	if _, err := os.Stat(other); err != nil {
		t.Error("file for another date was moved")
	}
	if _, err := os.Stat(nonJSON); err != nil {
		t.Error("non-JSON file was moved")
	}
}

func TestOrganizeByDateIdempotent(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	writeArtifact(t, base, "analyzed", "acme_analyzed_20260830_120000.json")

	if _, err := m.OrganizeByDate("2026-08-30"); err != nil {
		t.Fatalf("first organize: %v", err)
	}
	moved, err := m.OrganizeByDate("2026-08-30")
	if err != nil {
		t.Fatalf("second organize: %v", err)
	}
	if len(moved) != 0 {
		t.Errorf("second run moved %v, want nothing", moved)
	}
}

func TestOrganizeByDateRejectsBadDate(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.OrganizeByDate("30-08-2026"); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestExpirePartitions(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	oldDate := time.Now().AddDate(0, 0, -40).Format("2006-01-02")
	freshDate := time.Now().AddDate(0, 0, -3).Format("2006-01-02")
	for _, d := range []string{oldDate, freshDate} {
		if err := os.MkdirAll(filepath.Join(base, d, "raw"), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	// Non-date directories are never swept, reserved ones included.
	if err := os.MkdirAll(filepath.Join(base, "backups", "b1"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(base, "scratch"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	removed := m.Expire(30)

	if len(removed) != 1 {
		t.Fatalf("removed %v, want exactly the old partition", removed)
	}
	if _, err := os.Stat(filepath.Join(base, oldDate)); !os.IsNotExist(err) {
		t.Error("expired partition still present")
	}
	for _, keep := range []string{freshDate, "backups", "scratch"} {
		if _, err := os.Stat(filepath.Join(base, keep)); err != nil {
			t.Errorf("directory %s should survive the sweep", keep)
		}
	}
}

func TestExpireLooseFiles(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	oldFile := writeArtifact(t, base, "raw", "acme_raw_20260101_120000.json")
	freshFile := writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	past := time.Now().AddDate(0, 0, -40)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	removed := m.Expire(30)

	if len(removed) != 1 || removed[0] != oldFile {
		t.Errorf("removed %v, want only %s", removed, oldFile)
	}
	if _, err := os.Stat(freshFile); err != nil {
		t.Error("fresh file was expired")
	}
}

func TestBackup(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	// Reserved directories stay out of backups.
	writeArtifact(t, base, "logs", "run.log")
	writeArtifact(t, base, "archived", "old.zip")

	dest, err := m.Backup("snapshot")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "raw", "acme_raw_20260830_120000.json")); err != nil {
		t.Error("artifact missing from backup")
	}
	for _, excluded := range []string{"logs", "archived", "backups"} {
		if _, err := os.Stat(filepath.Join(dest, excluded)); !os.IsNotExist(err) {
			t.Errorf("reserved directory %s leaked into backup", excluded)
		}
	}
}

func TestBackupFailureLeavesNoPartialDirectory(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	// A dangling symlink makes the copy fail partway through, after the
	// backup directory already exists.
	link := filepath.Join(base, "raw", "broken.json")
	if err := os.Symlink(filepath.Join(base, "missing.json"), link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	if _, err := m.Backup("snapshot"); err == nil {
		t.Fatal("expected backup to fail")
	}
	if _, err := os.Stat(filepath.Join(base, "backups", "snapshot")); !os.IsNotExist(err) {
		t.Errorf("partial backup directory left behind (stat err = %v)", err)
	}
}

func TestBackupDefaultName(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)
	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")

	dest, err := m.Backup("")
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if filepath.Dir(dest) != filepath.Join(base, "backups") {
		t.Errorf("backup not under backups/: %s", dest)
	}
}

func TestArchive(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	writeArtifact(t, base, "archived", "previous.zip")

	dest, err := m.Archive("corpus")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	r, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names["raw/acme_raw_20260830_120000.json"] {
		t.Errorf("artifact missing from archive, got %v", names)
	}
	for name := range names {
		if strings.HasPrefix(name, "archived") {
			t.Errorf("archive contains archived/ entry: %s", name)
		}
	}
}

func TestValidateIntegrity(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	bad := filepath.Join(base, "raw", "acme_raw_20260830_120001.json")
	if err := os.WriteFile(bad, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	report, err := m.ValidateIntegrity()
	if err != nil {
		t.Fatalf("ValidateIntegrity: %v", err)
	}
	if report.Total != 2 {
		t.Errorf("total = %d, want 2", report.Total)
	}
	if len(report.Valid) != 1 {
		t.Errorf("valid = %v, want one entry", report.Valid)
	}
	if len(report.Invalid) != 1 || report.Invalid[0].Path != bad {
		t.Errorf("invalid = %+v, want the corrupt file", report.Invalid)
	}
}

func TestStatistics(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base)

	writeArtifact(t, base, "raw", "acme_raw_20260830_120000.json")
	writeArtifact(t, base, "raw", "globex_raw_20260830_120000.json")
	writeArtifact(t, base, "analyzed", "acme_analyzed_20260830_120000.json")

	stats, err := m.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}

	if stats.TotalFiles != 3 {
		t.Errorf("total files = %d, want 3", stats.TotalFiles)
	}
	if stats.ByDirectory["raw"].Files != 2 {
		t.Errorf("raw dir files = %d, want 2", stats.ByDirectory["raw"].Files)
	}
	if stats.ByEntity["acme"].Files != 2 {
		t.Errorf("acme files = %d, want 2", stats.ByEntity["acme"].Files)
	}
	if stats.ByEntity["globex"].Files != 1 {
		t.Errorf("globex files = %d, want 1", stats.ByEntity["globex"].Files)
	}
	// All files were just written, so all show up as recent.
	if len(stats.RecentActivity) != 3 {
		t.Errorf("recent activity = %d, want 3", len(stats.RecentActivity))
	}
}
