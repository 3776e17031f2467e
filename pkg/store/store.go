// Copyright 2025 Truthcrawl Project
//
// Package store implements the content-addressed record store: every
// ObservationRecord lives at <root>/<hh>/<hash>.txt, where hh is the
// first two hex characters of its record hash. A non-existent root is a
// valid, empty store.

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/truthcrawl/node/pkg/record"
)

var ErrNotFound = errors.New("store: record not found")

// RecordStore owns every file under its root. Callers that Load a
// record get back an independent value; the store never hands out a
// reference into its own files.
type RecordStore struct {
	root string
}

// New returns a store rooted at dir. The directory is not required to
// exist yet; it is created lazily on first Store.
func New(dir string) *RecordStore {
	return &RecordStore{root: dir}
}

func (s *RecordStore) pathFor(hash string) string {
	return filepath.Join(s.root, hash[:2], hash+".txt")
}

// Store writes rec's canonical text under its record hash. Writing an
// already-present record is a no-op that returns the existing hash —
// idempotence here is mandatory, not an optimization.
func (s *RecordStore) Store(rec *record.ObservationRecord) (string, error) {
	hash, err := rec.Hash()
	if err != nil {
		return "", fmt.Errorf("store: compute hash: %w", err)
	}

	path := s.pathFor(hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("store: stat %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("store: mkdir: %w", err)
	}

	data, err := rec.Emit()
	if err != nil {
		return "", fmt.Errorf("store: emit: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("store: rename into place: %w", err)
	}

	return hash, nil
}

// Load reads and parses the record with the given hash, or ErrNotFound.
func (s *RecordStore) Load(hash string) (*record.ObservationRecord, error) {
	data, err := os.ReadFile(s.pathFor(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: read %s: %w", hash, err)
	}
	return record.Parse(data)
}

// Has reports whether a record with the given hash is present, without
// parsing it.
func (s *RecordStore) Has(hash string) bool {
	_, err := os.Stat(s.pathFor(hash))
	return err == nil
}

// ListHashes returns every stored record's hash, sorted lexicographically.
// A non-existent root is treated as an empty store, not an error.
func (s *RecordStore) ListHashes() ([]string, error) {
	var hashes []string
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return hashes, nil
		}
		return nil, fmt.Errorf("store: read root: %w", err)
	}

	for _, shard := range entries {
		if !shard.IsDir() {
			continue
		}
		shardPath := filepath.Join(s.root, shard.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			return nil, fmt.Errorf("store: read shard %s: %w", shard.Name(), err)
		}
		for _, f := range files {
			name := f.Name()
			if filepath.Ext(name) != ".txt" {
				continue
			}
			hashes = append(hashes, name[:len(name)-len(".txt")])
		}
	}

	sort.Strings(hashes)
	return hashes, nil
}

// Size returns the number of record files in the store.
func (s *RecordStore) Size() (int, error) {
	hashes, err := s.ListHashes()
	if err != nil {
		return 0, err
	}
	return len(hashes), nil
}

// Root returns the store's root directory.
func (s *RecordStore) Root() string {
	return s.root
}
