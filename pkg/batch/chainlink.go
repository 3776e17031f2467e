// Copyright 2025 Truthcrawl Project

package batch

import (
	"fmt"
	"strconv"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

// GenesisRoot is the all-zero 64-hex string, the conventional
// previous_root of a publisher's first chain link.
var GenesisRoot = codec.ZeroHex64

// ChainLink is a superset of Metadata carrying a back-reference to the
// previous link's merkle_root, forming a publisher's append-only chain.
type ChainLink struct {
	Metadata
	PreviousRoot string
}

// ChainLinkFromManifest computes batch metadata for m and records the
// back-reference to previousRoot (GenesisRoot for a chain's first link).
func ChainLinkFromManifest(batchID string, m *Manifest, previousRoot string) (*ChainLink, error) {
	if !codec.IsLowerHex64(previousRoot) {
		return nil, fmt.Errorf("%w: previous_root", codec.ErrInvalidHex)
	}
	md, err := MetadataFromManifest(batchID, m)
	if err != nil {
		return nil, err
	}
	return &ChainLink{Metadata: *md, PreviousRoot: previousRoot}, nil
}

// Emit renders the chain link's canonical signing input.
func (c *ChainLink) Emit() []byte {
	w := codec.NewWriter()
	w.Field("batch_id", c.BatchID)
	w.Field("merkle_root", c.MerkleRoot)
	w.Field("manifest_hash", c.ManifestHash)
	w.Field("record_count", strconv.Itoa(c.RecordCount))
	w.Field("previous_root", c.PreviousRoot)
	return w.Bytes()
}

// Hash returns the link hash: SHA-256 of the canonical chain-link bytes.
func (c *ChainLink) Hash() string {
	return crypto.Sum256Hex(c.Emit())
}

// ParseChainLink reads a chain link's five fixed fields in order.
func ParseChainLink(data []byte) (*ChainLink, error) {
	r := codec.NewReader(data)
	c := &ChainLink{}

	var err error
	if c.BatchID, err = r.ExpectField("batch_id"); err != nil {
		return nil, err
	}
	if err := ValidateBatchID(c.BatchID); err != nil {
		return nil, err
	}
	if c.MerkleRoot, err = r.ExpectField("merkle_root"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(c.MerkleRoot) {
		return nil, fmt.Errorf("%w: merkle_root", codec.ErrInvalidHex)
	}
	if c.ManifestHash, err = r.ExpectField("manifest_hash"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(c.ManifestHash) {
		return nil, fmt.Errorf("%w: manifest_hash", codec.ErrInvalidHex)
	}
	countStr, err := r.ExpectField("record_count")
	if err != nil {
		return nil, err
	}
	c.RecordCount, err = strconv.Atoi(countStr)
	if err != nil {
		return nil, fmt.Errorf("%w: record_count: %v", codec.ErrInvalidCanonicalForm, err)
	}
	if c.PreviousRoot, err = r.ExpectField("previous_root"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(c.PreviousRoot) {
		return nil, fmt.Errorf("%w: previous_root", codec.ErrInvalidHex)
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after chain link", codec.ErrInvalidCanonicalForm)
	}
	return c, nil
}
