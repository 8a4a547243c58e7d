package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Item is one artifact to be saved.
type Item struct {
	Key   Key
	Value any
	Rows  int
}

// Store reads and writes artifacts under a data directory.
type Store struct {
	root     string
	manifest *Manifest
	logger   *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, manifest *Manifest, logger *slog.Logger) *Store {
	return &Store{root: dir, manifest: manifest, logger: logger}
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// Has reports whether key is committed and its file is still on disk.
func (s *Store) Has(ctx context.Context, key Key) (bool, error) {
	e, ok, err := s.manifest.Lookup(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if _, err := os.Stat(filepath.Join(s.root, e.Path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("manifest entry without file", "artifact", key.String(), "path", e.Path)
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", e.Path, err)
	}
	return true, nil
}

// Load decodes the committed artifact for key into out.
func (s *Store) Load(ctx context.Context, key Key, out any) error {
	e, ok, err := s.manifest.Lookup(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, key)
	}
	data, err := os.ReadFile(filepath.Join(s.root, e.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s (file missing)", domain.ErrArtifactNotFound, key)
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if sum := Checksum(data); sum != e.Checksum {
		return fmt.Errorf("artifact %s checksum %s, manifest has %s", key, sum, e.Checksum)
	}
	if err := decode(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// LoadTable loads a table artifact.
func (s *Store) LoadTable(ctx context.Context, key Key) (domain.Table, error) {
	var t domain.Table
	err := s.Load(ctx, key, &t)
	return t, err
}

// Save writes every item and then commits all of them to the manifest in one
// transaction. Until the commit, none of the items is visible to Has or Load,
// so a failure part way leaves no partial result behind.
func (s *Store) Save(ctx context.Context, items []Item) error {
	type staged struct {
		tmp, final string
		entry      Entry
	}
	stagedItems := make([]staged, 0, len(items))
	cleanup := func() {
		for _, st := range stagedItems {
			_ = os.Remove(st.tmp)
		}
	}

	for _, it := range items {
		data, err := encode(it.Value)
		if err != nil {
			cleanup()
			return fmt.Errorf("encode %s: %w", it.Key, err)
		}
		rel := it.Key.RelPath()
		final := filepath.Join(s.root, rel)
		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			cleanup()
			return fmt.Errorf("create artifact dir: %w", err)
		}
		f, err := os.CreateTemp(filepath.Dir(final), ".tmp-*")
		if err != nil {
			cleanup()
			return fmt.Errorf("create temp file: %w", err)
		}
		stagedItems = append(stagedItems, staged{tmp: f.Name(), final: final, entry: Entry{
			Key:       it.Key,
			Path:      rel,
			Checksum:  Checksum(data),
			SizeBytes: int64(len(data)),
			Rows:      it.Rows,
		}})
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			cleanup()
			return fmt.Errorf("write %s: %w", it.Key, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", it.Key, err)
		}
	}

	entries := make([]Entry, len(stagedItems))
	for i, st := range stagedItems {
		if err := os.Rename(st.tmp, st.final); err != nil {
			cleanup()
			return fmt.Errorf("rename %s: %w", st.entry.Key, err)
		}
		entries[i] = st.entry
	}
	if err := s.manifest.Commit(ctx, entries); err != nil {
		return err
	}
	s.logger.Debug("artifacts committed", "count", len(entries))
	return nil
}
