// Copyright 2025 Truthcrawl Project
//
// Package batch implements the batched commitment over a set of record
// hashes: the manifest that names them in order, the metadata/chain-link
// that commits to their Merkle root, and the publisher/verifier pair
// that sign and independently re-check that commitment.

package batch

import (
	"errors"
	"fmt"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/merkle"
)

var ErrEmptyManifest = errors.New("batch: manifest has no entries")

// Manifest is an ordered list of record hashes. Order is part of a
// batch's identity and is preserved exactly as given — a manifest is
// never sorted before being committed.
type Manifest struct {
	Hashes []string
}

// Emit renders the manifest as canonical text: one 64-hex hash per line.
func (m *Manifest) Emit() ([]byte, error) {
	if len(m.Hashes) == 0 {
		return nil, ErrEmptyManifest
	}
	w := codec.NewWriter()
	for _, h := range m.Hashes {
		if !codec.IsLowerHex64(h) {
			return nil, fmt.Errorf("%w: %q", codec.ErrInvalidHex, h)
		}
		w.Raw(h)
	}
	return w.Bytes(), nil
}

// ParseManifest reads an ordered list of 64-hex record hashes, one per
// line, in the order given.
func ParseManifest(data []byte) (*Manifest, error) {
	r := codec.NewReader(data)
	var hashes []string
	for !r.Done() {
		line, _ := r.Next()
		if !codec.IsLowerHex64(line) {
			return nil, fmt.Errorf("%w: manifest line %q is not 64-hex", codec.ErrInvalidCanonicalForm, line)
		}
		hashes = append(hashes, line)
	}
	if len(hashes) == 0 {
		return nil, ErrEmptyManifest
	}
	return &Manifest{Hashes: hashes}, nil
}

// Hash returns the manifest hash: SHA-256 of the canonical manifest bytes.
func (m *Manifest) Hash() (string, error) {
	data, err := m.Emit()
	if err != nil {
		return "", err
	}
	return crypto.Sum256Hex(data), nil
}

// MerkleRoot builds a Merkle tree over the manifest's ordered hashes and
// returns its root as 64-hex.
func (m *Manifest) MerkleRoot() (string, error) {
	tree, err := merkle.BuildTreeHex(m.Hashes)
	if err != nil {
		return "", fmt.Errorf("batch: merkle root: %w", err)
	}
	return tree.RootHex(), nil
}

// RecordCount returns the number of entries in the manifest.
func (m *Manifest) RecordCount() int {
	return len(m.Hashes)
}
