// Copyright 2025 Truthcrawl Project

package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/truthcrawl/node/pkg/batch"
	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/record"
	"github.com/truthcrawl/node/pkg/store"
)

func signedRecord(t *testing.T, priv []byte) *record.ObservationRecord {
	t.Helper()
	rec := &record.ObservationRecord{
		RecordVersion: record.Version,
		ObservedAt:    time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
		URL:           "https://example.com",
		FinalURL:      "https://example.com",
		StatusCode:    200,
		FetchMS:       10,
		ContentHash:   crypto.Sum256Hex([]byte("body")),
	}
	if err := rec.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return rec
}

func TestExportImportRoundTrip(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	root := t.TempDir()
	s := store.New(filepath.Join(root, "store"))
	rec := signedRecord(t, priv)
	hash, err := s.Store(rec)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	manifest := &batch.Manifest{Hashes: []string{hash}}
	link, err := batch.ChainLinkFromManifest("2026-07-31", manifest, batch.GenesisRoot)
	if err != nil {
		t.Fatalf("ChainLinkFromManifest: %v", err)
	}

	chainDir := filepath.Join(root, "batches")
	pub2 := batch.NewPublisher(chainDir, priv)
	if err := pub2.PublishChainLink(manifest, link); err != nil {
		t.Fatalf("PublishChainLink: %v", err)
	}

	bundleDir := filepath.Join(root, "bundle")
	b := &Bundle{ChainDir: chainDir, Store: s}
	if err := b.Write("2026-07-31", bundleDir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(bundleDir, "records", hash+".txt")); err != nil {
		t.Fatalf("expected exported record file: %v", err)
	}

	importStore := store.New(filepath.Join(root, "imported"))
	im := &Importer{Store: importStore}
	receipt, err := im.ImportBatch(bundleDir, pub)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if !receipt.Valid {
		t.Fatalf("expected valid receipt, got errors: %v", receipt.Errors)
	}
	if receipt.RecordsImported != 1 {
		t.Fatalf("RecordsImported = %d, want 1", receipt.RecordsImported)
	}
	if !importStore.Has(hash) {
		t.Fatalf("expected record imported into local store")
	}
}

func TestImportDetectsHashMismatch(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	root := t.TempDir()
	s := store.New(filepath.Join(root, "store"))
	rec := signedRecord(t, priv)
	hash, err := s.Store(rec)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	manifest := &batch.Manifest{Hashes: []string{hash}}
	md, err := batch.MetadataFromManifest("2026-07-31", manifest)
	if err != nil {
		t.Fatalf("MetadataFromManifest: %v", err)
	}

	chainDir := filepath.Join(root, "batches")
	publisher := batch.NewPublisher(chainDir, priv)
	if err := publisher.PublishMetadata(manifest, md); err != nil {
		t.Fatalf("PublishMetadata: %v", err)
	}

	bundleDir := filepath.Join(root, "bundle")
	b := &Bundle{ChainDir: chainDir, Store: s}
	if err := b.Write("2026-07-31", bundleDir); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Corrupt the exported record so its hash no longer matches the
	// manifest entry.
	corrupt := signedRecord(t, priv)
	corrupt.URL = "https://tampered.example.com"
	data, err := corrupt.Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "records", hash+".txt"), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	importStore := store.New(filepath.Join(root, "imported"))
	im := &Importer{Store: importStore}
	receipt, err := im.ImportBatch(bundleDir, pub)
	if err != nil {
		t.Fatalf("ImportBatch: %v", err)
	}
	if receipt.Valid {
		t.Fatalf("expected invalid receipt after tampering")
	}
}
