package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/record"
)

func newSignedRecord(t *testing.T, url string) *record.ObservationRecord {
	t.Helper()
	_, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	rec := &record.ObservationRecord{
		RecordVersion: record.Version,
		ObservedAt:    time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		URL:           url,
		FinalURL:      url,
		StatusCode:    200,
		FetchMS:       10,
		ContentHash:   strings.Repeat("cd", 32),
	}
	if err := rec.Sign(priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return rec
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	s := New(dir)

	rec := newSignedRecord(t, "https://example.com/a")
	hash, err := s.Store(rec)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	loaded, err := s.Load(hash)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.URL != rec.URL {
		t.Fatalf("loaded record mismatch")
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	s := New(dir)

	rec := newSignedRecord(t, "https://example.com/a")
	h1, err := s.Store(rec)
	if err != nil {
		t.Fatalf("store 1: %v", err)
	}
	h2, err := s.Store(rec)
	if err != nil {
		t.Fatalf("store 2: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hash on re-store")
	}
	size, err := s.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 1 {
		t.Fatalf("expected 1 record after duplicate store, got %d", size)
	}
}

func TestNonExistentRootIsEmptyStore(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"))
	hashes, err := s.ListHashes()
	if err != nil {
		t.Fatalf("list hashes on missing root: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("expected empty store, got %d hashes", len(hashes))
	}
}

func TestListHashesSortedLexicographically(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	s := New(dir)
	for i := 0; i < 5; i++ {
		rec := newSignedRecord(t, "https://example.com/"+string(rune('a'+i)))
		if _, err := s.Store(rec); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	hashes, err := s.ListHashes()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(hashes); i++ {
		if hashes[i-1] >= hashes[i] {
			t.Fatalf("hashes not sorted: %v", hashes)
		}
	}
}

func TestIndexBuilder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	s := New(dir)

	r1 := newSignedRecord(t, "https://example.com/a")
	r2 := newSignedRecord(t, "https://example.com/a")
	h1, _ := s.Store(r1)
	h2, _ := s.Store(r2)

	idx, err := NewIndexBuilder(s).Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	byURL := idx.ByURL("https://example.com/a")
	if len(byURL) != 2 {
		t.Fatalf("expected 2 hashes for url, got %d", len(byURL))
	}
	if byURL[0] >= byURL[1] && h1 != h2 {
		t.Fatalf("expected sorted hashes for url")
	}

	byNode := idx.ByNodeID(r1.NodeID)
	if len(byNode) != 1 {
		t.Fatalf("expected 1 hash for node id, got %d", len(byNode))
	}
}
