package store

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

type payload struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewCreatesKindDirs(t *testing.T) {
	base := t.TempDir()
	if _, err := New(base); err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, kind := range Kinds {
		info, err := os.Stat(filepath.Join(base, string(kind)))
		if err != nil || !info.IsDir() {
			t.Errorf("kind directory %s missing", kind)
		}
	}
}

func TestStoreRoundtrip(t *testing.T) {
	s := testStore(t)

	in := payload{Entity: "acme", Count: 3}
	artifact, err := s.Store(KindRaw, "acme", in)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	name := filepath.Base(artifact.Path)
	pattern := regexp.MustCompile(`^acme_raw_\d{8}_\d{6}(_\d{2})?\.json$`)
	if !pattern.MatchString(name) {
		t.Errorf("filename %q does not match naming contract", name)
	}
	if artifact.SizeBytes == 0 {
		t.Error("artifact size not recorded")
	}

	var out payload
	found, err := s.RetrieveLatest("acme", KindRaw, &out)
	if err != nil {
		t.Fatalf("RetrieveLatest: %v", err)
	}
	if !found {
		t.Fatal("stored artifact not found")
	}
	if out != in {
		t.Errorf("roundtrip = %+v, want %+v", out, in)
	}
}

func TestRetrieveLatestMissing(t *testing.T) {
	s := testStore(t)

	var out payload
	found, err := s.RetrieveLatest("nobody", KindRaw, &out)
	if err != nil {
		t.Fatalf("RetrieveLatest: %v", err)
	}
	if found {
		t.Error("found an artifact for an entity with none")
	}
}

func TestRetrieveLatestPicksNewest(t *testing.T) {
	s := testStore(t)

	first, err := s.Store(KindAnalyzed, "acme", payload{Entity: "acme", Count: 1})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	second, err := s.Store(KindAnalyzed, "acme", payload{Entity: "acme", Count: 2})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Same-second writes share an mtime; force a clear ordering.
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(first.Path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	var out payload
	found, err := s.RetrieveLatest("acme", KindAnalyzed, &out)
	if err != nil || !found {
		t.Fatalf("RetrieveLatest: found=%v err=%v", found, err)
	}
	if out.Count != 2 {
		t.Errorf("latest count = %d, want 2 (%s vs %s)", out.Count, first.Path, second.Path)
	}
}

func TestSameSecondWritesGetDistinctNames(t *testing.T) {
	s := testStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		artifact, err := s.Store(KindRaw, "acme", payload{Count: i})
		if err != nil {
			t.Fatalf("Store #%d: %v", i, err)
		}
		if seen[artifact.Path] {
			t.Fatalf("duplicate artifact path %s", artifact.Path)
		}
		seen[artifact.Path] = true
	}

	artifacts, err := s.List("acme", KindRaw)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artifacts) != 5 {
		t.Errorf("got %d artifacts, want 5", len(artifacts))
	}
}

func TestSeparateStoresNeverCollide(t *testing.T) {
	base := t.TempDir()
	first, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// A second instance on the same base stands in for another process,
	// which shares no in-memory counter state.
	second, err := New(base)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 4; i++ {
		for _, s := range []*Store{first, second} {
			artifact, err := s.Store(KindRaw, "acme", payload{Count: i})
			if err != nil {
				t.Fatalf("Store #%d: %v", i, err)
			}
			if seen[artifact.Path] {
				t.Fatalf("duplicate artifact path %s", artifact.Path)
			}
			seen[artifact.Path] = true
		}
	}

	artifacts, err := first.List("acme", KindRaw)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(artifacts) != 8 {
		t.Errorf("got %d artifacts, want 8", len(artifacts))
	}
}

func TestRetrieveLatestCorrupt(t *testing.T) {
	s := testStore(t)

	artifact, err := s.Store(KindRaw, "acme", payload{Count: 1})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := os.WriteFile(artifact.Path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupting artifact: %v", err)
	}

	var out payload
	_, err = s.RetrieveLatest("acme", KindRaw, &out)
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("error = %v, want CorruptError", err)
	}
	if corrupt.Path != artifact.Path {
		t.Errorf("CorruptError path = %s, want %s", corrupt.Path, artifact.Path)
	}
}

func TestRetrieveAll(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Store(KindInsights, "acme", payload{Count: i}); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	// A different entity's artifacts stay out of the result.
	if _, err := s.Store(KindInsights, "globex", payload{Count: 9}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	payloads, err := s.RetrieveAll("acme", KindInsights)
	if err != nil {
		t.Fatalf("RetrieveAll: %v", err)
	}
	if len(payloads) != 3 {
		t.Errorf("got %d payloads, want 3", len(payloads))
	}
	for _, p := range payloads {
		if strings.Contains(string(p), "globex") {
			t.Error("payload from another entity leaked into results")
		}
	}
}

func TestEntities(t *testing.T) {
	s := testStore(t)

	for _, entity := range []string{"globex", "acme", "acme"} {
		if _, err := s.Store(KindRaw, entity, payload{}); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	entities, err := s.Entities(KindRaw)
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	if len(entities) != 2 || entities[0] != "acme" || entities[1] != "globex" {
		t.Errorf("entities = %v, want [acme globex]", entities)
	}

	empty, err := s.Entities(KindReports)
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("entities for unused kind = %v, want none", empty)
	}
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)

	if _, err := s.Store(KindRaw, "acme", payload{Count: 1}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(s.Base(), "raw"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
