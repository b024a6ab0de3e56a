package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Kind identifies an artifact category and the directory it lives in.
type Kind string

const (
	KindRaw       Kind = "raw"
	KindAnalyzed  Kind = "analyzed"
	KindProcessed Kind = "processed"
	KindInsights  Kind = "insights"
	KindReports   Kind = "reports"
)

// Kinds lists the artifact kinds in their canonical order.
var Kinds = []Kind{KindRaw, KindAnalyzed, KindProcessed, KindInsights, KindReports}

// Artifact describes one persisted file.
type Artifact struct {
	Kind      Kind
	Entity    string
	Path      string
	SizeBytes int64
	CreatedAt time.Time
}

// CorruptError reports an artifact that exists but fails to parse.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt artifact %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store persists JSON artifacts under {base}/{kind}/{entity}_{kind}_{ts}.json.
// Writes go to a temp file first and are linked into place, so a failed
// write never leaves a partial artifact visible. Filenames carry a counter
// suffix when two writes land within the same second, so concurrent writers
// for the same (kind, entity) never target the same path, even across
// processes.
type Store struct {
	base string

	mu        sync.Mutex
	lastStamp string
	seq       int
}

// New creates a Store rooted at base, creating the kind directories.
func New(base string) (*Store, error) {
	for _, kind := range Kinds {
		if err := os.MkdirAll(filepath.Join(base, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s directory: %w", kind, err)
		}
	}
	return &Store{base: base}, nil
}

// Base returns the store's root directory.
func (s *Store) Base() string { return s.base }

// Store serializes payload as an artifact of the given kind for an entity.
func (s *Store) Store(kind Kind, entity string, payload any) (*Artifact, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload for %s: %w", kind, entity, err)
	}

	dir := filepath.Join(s.base, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", kind, err)
	}

	path, err := s.writeUnique(dir, entity, kind, data)
	if err != nil {
		return nil, fmt.Errorf("writing %s artifact for %s: %w", kind, entity, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return &Artifact{
		Kind:      kind,
		Entity:    entity,
		Path:      path,
		SizeBytes: info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// RetrieveLatest unmarshals the most recently modified artifact for
// (entity, kind) into out. Returns false when none exist.
func (s *Store) RetrieveLatest(entity string, kind Kind, out any) (bool, error) {
	artifacts, err := s.List(entity, kind)
	if err != nil {
		return false, err
	}
	if len(artifacts) == 0 {
		return false, nil
	}

	latest := artifacts[len(artifacts)-1]
	data, err := os.ReadFile(latest.Path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", latest.Path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, &CorruptError{Path: latest.Path, Err: err}
	}
	return true, nil
}

// RetrieveAll returns the raw payloads for (entity, kind) ordered by
// modification time ascending.
func (s *Store) RetrieveAll(entity string, kind Kind) ([]json.RawMessage, error) {
	artifacts, err := s.List(entity, kind)
	if err != nil {
		return nil, err
	}

	payloads := make([]json.RawMessage, 0, len(artifacts))
	for _, a := range artifacts {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", a.Path, err)
		}
		if !json.Valid(data) {
			return nil, &CorruptError{Path: a.Path, Err: fmt.Errorf("invalid JSON")}
		}
		payloads = append(payloads, json.RawMessage(data))
	}
	return payloads, nil
}

// List returns artifacts for (entity, kind) ordered by modification time
// ascending.
func (s *Store) List(entity string, kind Kind) ([]Artifact, error) {
	pattern := filepath.Join(s.base, string(kind), fmt.Sprintf("%s_%s_*.json", entity, kind))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s artifacts for %s: %w", kind, entity, err)
	}

	var artifacts []Artifact
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue // removed between glob and stat
		}
		artifacts = append(artifacts, Artifact{
			Kind:      kind,
			Entity:    entity,
			Path:      path,
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].Path < artifacts[j].Path
		}
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}

// Entities returns the distinct entity names that have artifacts of the
// given kind, sorted.
func (s *Store) Entities(kind Kind) ([]string, error) {
	pattern := filepath.Join(s.base, string(kind), fmt.Sprintf("*_%s_*.json", kind))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, path := range matches {
		name := filepath.Base(path)
		idx := strings.Index(name, "_"+string(kind)+"_")
		if idx <= 0 {
			continue
		}
		seen[name[:idx]] = struct{}{}
	}

	entities := make([]string, 0, len(seen))
	for e := range seen {
		entities = append(entities, e)
	}
	sort.Strings(entities)
	return entities, nil
}

// writeUnique writes data to a fresh artifact path in dir. The full payload
// goes to a temp file first and is hard-linked into place; link fails with
// EEXIST when the name is already taken, including by another process, and
// the next counter suffix is tried. Readers never see a partial artifact.
func (s *Store) writeUnique(dir, entity string, kind Kind, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return "", werr
	}

	stamp := time.Now().UTC().Format("20060102_150405")

	s.mu.Lock()
	defer s.mu.Unlock()
	if stamp != s.lastStamp {
		s.lastStamp = stamp
		s.seq = 0
	}
	for {
		name := fmt.Sprintf("%s_%s_%s.json", entity, kind, stamp)
		if s.seq > 0 {
			name = fmt.Sprintf("%s_%s_%s_%02d.json", entity, kind, stamp, s.seq)
		}
		path := filepath.Join(dir, name)
		switch err := os.Link(tmp.Name(), path); {
		case err == nil:
			return path, nil
		case errors.Is(err, fs.ErrExist):
			s.seq++
		default:
			return "", err
		}
	}
}
