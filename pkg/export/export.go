// Copyright 2025 Truthcrawl Project
//
// Package export implements the self-contained, cross-verifiable batch
// bundle: a directory holding a batch's metadata/chain-link, manifest,
// signature, and every record the manifest names, so a peer can verify
// and import it without any other context.

package export

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/truthcrawl/node/pkg/batch"
	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/record"
	"github.com/truthcrawl/node/pkg/store"
)

const (
	manifestFile   = "manifest.txt"
	metadataFile   = "metadata.txt"
	chainLinkFile  = "chain-link.txt"
	signatureFile  = "signature.txt"
	recordsSubdir  = "records"
)

// Bundle bundles a published batch's own files plus every record its
// manifest names, for a single self-contained directory a peer can
// verify offline.
type Bundle struct {
	ChainDir string // chain directory a batch was published under
	Store    *store.RecordStore
}

func batchSourceDir(chainDir, batchID string) string {
	return filepath.Join(chainDir, "batch-"+batchID)
}

// Write assembles the export bundle for batchID into destDir, atomically
// (built in a sibling temp directory, then renamed into place).
func (b *Bundle) Write(batchID, destDir string) error {
	src := batchSourceDir(b.ChainDir, batchID)

	manifestData, err := os.ReadFile(filepath.Join(src, manifestFile))
	if err != nil {
		return fmt.Errorf("export: read manifest: %w", err)
	}
	manifest, err := batch.ParseManifest(manifestData)
	if err != nil {
		return fmt.Errorf("export: parse manifest: %w", err)
	}

	metaName := metadataFile
	metaData, err := os.ReadFile(filepath.Join(src, metaName))
	if os.IsNotExist(err) {
		metaName = chainLinkFile
		metaData, err = os.ReadFile(filepath.Join(src, metaName))
	}
	if err != nil {
		return fmt.Errorf("export: read metadata/chain-link: %w", err)
	}

	sigData, err := os.ReadFile(filepath.Join(src, signatureFile))
	if err != nil {
		return fmt.Errorf("export: read signature: %w", err)
	}

	tmp := destDir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("export: clear stale temp dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(tmp, recordsSubdir), 0o755); err != nil {
		return fmt.Errorf("export: mkdir: %w", err)
	}

	writes := map[string][]byte{
		manifestFile:  manifestData,
		metaName:      metaData,
		signatureFile: sigData,
	}
	for name, data := range writes {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("export: write %s: %w", name, err)
		}
	}

	for _, hash := range manifest.Hashes {
		rec, err := b.Store.Load(hash)
		if err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("export: load record %s: %w", hash, err)
		}
		data, err := rec.Emit()
		if err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("export: emit record %s: %w", hash, err)
		}
		path := filepath.Join(tmp, recordsSubdir, hash+".txt")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("export: write record %s: %w", hash, err)
		}
	}

	if err := os.Rename(tmp, destDir); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("export: rename bundle into place: %w", err)
	}
	return nil
}

// Receipt is the outcome of importing one bundle.
type Receipt struct {
	BatchID         string
	Valid           bool
	RecordsImported int
	Errors          []string
}

// Emit renders the receipt as canonical text.
func (rc *Receipt) Emit() []byte {
	w := codec.NewWriter()
	w.Field("batch_id", rc.BatchID)
	w.Field("valid", strconv.FormatBool(rc.Valid))
	w.Field("records_imported", strconv.Itoa(rc.RecordsImported))
	for _, e := range rc.Errors {
		w.Raw("error:" + e)
	}
	return w.Bytes()
}

// Importer re-verifies an export bundle and, for every record hash its
// manifest names, stores a local copy. A hash mismatch or unreadable
// record marks the receipt invalid but leaves already-imported records
// in the local store — the store is append-only, so partial progress is
// never rolled back.
type Importer struct {
	Store *store.RecordStore
}

// ImportBatch verifies the bundle at srcDir under publisherKey and
// imports every record it names into the importer's local store.
func (im *Importer) ImportBatch(srcDir string, publisherKey ed25519.PublicKey) (*Receipt, error) {
	manifestData, err := os.ReadFile(filepath.Join(srcDir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("export: read manifest: %w", err)
	}
	manifest, err := batch.ParseManifest(manifestData)
	if err != nil {
		return nil, fmt.Errorf("export: parse manifest: %w", err)
	}

	sigData, err := os.ReadFile(filepath.Join(srcDir, signatureFile))
	if err != nil {
		return nil, fmt.Errorf("export: read signature: %w", err)
	}

	isChainLink := false
	metaData, err := os.ReadFile(filepath.Join(srcDir, metadataFile))
	if os.IsNotExist(err) {
		isChainLink = true
		metaData, err = os.ReadFile(filepath.Join(srcDir, chainLinkFile))
	}
	if err != nil {
		return nil, fmt.Errorf("export: read metadata/chain-link: %w", err)
	}

	sig, err := crypto.DecodeSignature(strings.TrimRight(string(sigData), "\n"))
	if err != nil {
		return nil, fmt.Errorf("export: decode signature: %w", err)
	}

	var batchID string
	var verifyResult *batch.Result
	var bv batch.BatchVerifier
	if isChainLink {
		link, err := batch.ParseChainLink(metaData)
		if err != nil {
			return nil, fmt.Errorf("export: parse chain link: %w", err)
		}
		batchID = link.BatchID
		verifyResult = bv.VerifyChainLink(link, manifest, sig, publisherKey)
	} else {
		md, err := batch.ParseMetadata(metaData)
		if err != nil {
			return nil, fmt.Errorf("export: parse metadata: %w", err)
		}
		batchID = md.BatchID
		verifyResult = bv.Verify(md, manifest, sig, publisherKey)
	}

	receipt := &Receipt{BatchID: batchID, Valid: verifyResult.Valid, Errors: append([]string(nil), verifyResult.Errors...)}

	for _, hash := range manifest.Hashes {
		recData, err := os.ReadFile(filepath.Join(srcDir, recordsSubdir, hash+".txt"))
		if err != nil {
			receipt.Valid = false
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("record %s: %v", hash, err))
			continue
		}
		rec, err := record.Parse(recData)
		if err != nil {
			receipt.Valid = false
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("record %s: parse: %v", hash, err))
			continue
		}
		recomputed, err := rec.Hash()
		if err != nil || recomputed != hash {
			receipt.Valid = false
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("record %s: hash mismatch", hash))
			continue
		}
		if _, err := im.Store.Store(rec); err != nil {
			receipt.Valid = false
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("record %s: store: %v", hash, err))
			continue
		}
		receipt.RecordsImported++
	}

	return receipt, nil
}
