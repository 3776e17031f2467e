// Copyright 2025 Truthcrawl Project

package batch

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/truthcrawl/node/pkg/codec"
)

var batchIDPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(-\d{3})?$`)

// ValidateBatchID reports whether id matches YYYY-MM-DD or YYYY-MM-DD-NNN.
func ValidateBatchID(id string) error {
	if !batchIDPattern.MatchString(id) {
		return fmt.Errorf("%w: batch_id %q does not match YYYY-MM-DD[-NNN]", codec.ErrInvalidCanonicalForm, id)
	}
	return nil
}

// Metadata is the signed commitment to a batch's manifest: four fixed
// fields, in order.
type Metadata struct {
	BatchID      string
	MerkleRoot   string
	ManifestHash string
	RecordCount  int
}

// MetadataFromManifest computes (merkle_root, manifest_hash, record_count)
// for the given manifest and batch id.
func MetadataFromManifest(batchID string, m *Manifest) (*Metadata, error) {
	if err := ValidateBatchID(batchID); err != nil {
		return nil, err
	}
	root, err := m.MerkleRoot()
	if err != nil {
		return nil, err
	}
	manifestHash, err := m.Hash()
	if err != nil {
		return nil, err
	}
	return &Metadata{
		BatchID:      batchID,
		MerkleRoot:   root,
		ManifestHash: manifestHash,
		RecordCount:  m.RecordCount(),
	}, nil
}

// Emit renders the metadata's canonical signing input.
func (md *Metadata) Emit() []byte {
	w := codec.NewWriter()
	w.Field("batch_id", md.BatchID)
	w.Field("merkle_root", md.MerkleRoot)
	w.Field("manifest_hash", md.ManifestHash)
	w.Field("record_count", strconv.Itoa(md.RecordCount))
	return w.Bytes()
}

// ParseMetadata reads the four fixed metadata fields in order.
func ParseMetadata(data []byte) (*Metadata, error) {
	r := codec.NewReader(data)
	md := &Metadata{}

	var err error
	if md.BatchID, err = r.ExpectField("batch_id"); err != nil {
		return nil, err
	}
	if err := ValidateBatchID(md.BatchID); err != nil {
		return nil, err
	}
	if md.MerkleRoot, err = r.ExpectField("merkle_root"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(md.MerkleRoot) {
		return nil, fmt.Errorf("%w: merkle_root", codec.ErrInvalidHex)
	}
	if md.ManifestHash, err = r.ExpectField("manifest_hash"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(md.ManifestHash) {
		return nil, fmt.Errorf("%w: manifest_hash", codec.ErrInvalidHex)
	}
	countStr, err := r.ExpectField("record_count")
	if err != nil {
		return nil, err
	}
	md.RecordCount, err = strconv.Atoi(countStr)
	if err != nil {
		return nil, fmt.Errorf("%w: record_count: %v", codec.ErrInvalidCanonicalForm, err)
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after metadata", codec.ErrInvalidCanonicalForm)
	}
	return md, nil
}
