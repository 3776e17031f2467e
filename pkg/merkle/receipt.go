// Copyright 2025 Truthcrawl Project
//
// Portable Merkle receipt: a proof structure that can be shipped inside
// an export bundle and independently re-verified without trusting the
// node that produced it.

package merkle

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Receipt is a portable Merkle proof: the leaf being proven, the root
// it is proven against, and the sibling path between them.
//
// Verification invariants (fail-closed):
//  1. Leaf must be exactly 32 bytes (64 lowercase hex chars)
//  2. Root must be exactly 32 bytes
//  3. Each Entries[i].Hash must be exactly 32 bytes
//  4. Merkle recomputation from Leaf through Entries must equal Root
type Receipt struct {
	Leaf    string         `json:"leaf"`
	Root    string         `json:"root"`
	Entries []ReceiptEntry `json:"entries"`
}

// ReceiptEntry is a single step in the Merkle proof path.
type ReceiptEntry struct {
	Hash string `json:"hash"` // sibling hash at this level, 64-char lowercase hex

	// Right indicates the sibling's position:
	// true:  sibling is on the right, compute SHA256(current || sibling)
	// false: sibling is on the left,  compute SHA256(sibling || current)
	Right bool `json:"right"`
}

// ReceiptFromProof converts an InclusionProof (as produced by Tree) into
// its portable wire form.
func ReceiptFromProof(leafHex, rootHex string, proof *InclusionProof) *Receipt {
	r := &Receipt{
		Leaf:    leafHex,
		Root:    rootHex,
		Entries: make([]ReceiptEntry, len(proof.Path)),
	}
	for i, node := range proof.Path {
		r.Entries[i] = ReceiptEntry{Hash: node.Hash, Right: node.Position == Right}
	}
	return r
}

// Validate verifies the receipt's structure and Merkle recomputation.
// Returns nil if valid, error otherwise (fail-closed).
func (r *Receipt) Validate() error {
	leafHex, err := mustHex32Lower(r.Leaf, "receipt.leaf")
	if err != nil {
		return err
	}
	rootHex, err := mustHex32Lower(r.Root, "receipt.root")
	if err != nil {
		return err
	}

	leaf, _ := hexDecode(leafHex)
	root, _ := hexDecode(rootHex)

	current := leaf
	for i, entry := range r.Entries {
		entryHex, err := mustHex32Lower(entry.Hash, fmt.Sprintf("receipt.entries[%d].hash", i))
		if err != nil {
			return err
		}
		sibling, _ := hexDecode(entryHex)

		if entry.Right {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
	}

	if !bytes.Equal(current, root) {
		return fmt.Errorf("merkle recomputation mismatch: computed=%x, expected=%x", current, root)
	}

	return nil
}

// ComputeRoot recomputes the Merkle root from Leaf through Entries,
// rejecting a Leaf or entry hash that is not 64 lowercase hex chars.
// Root is neither checked nor compared — call Validate for that.
func (r *Receipt) ComputeRoot() ([32]byte, error) {
	leafHex, err := mustHex32Lower(r.Leaf, "receipt.leaf")
	if err != nil {
		return [32]byte{}, err
	}
	leaf, _ := hexDecode(leafHex)

	current := leaf
	for i, entry := range r.Entries {
		entryHex, err := mustHex32Lower(entry.Hash, fmt.Sprintf("receipt.entries[%d].hash", i))
		if err != nil {
			return [32]byte{}, err
		}
		sibling, _ := hexDecode(entryHex)

		if entry.Right {
			current = hashPair(current, sibling)
		} else {
			current = hashPair(sibling, current)
		}
	}

	var result [32]byte
	copy(result[:], current)
	return result, nil
}

// ToJSON serializes the receipt for inclusion in an export bundle.
func (r *Receipt) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ReceiptFromJSON deserializes a receipt read from an export bundle.
func ReceiptFromJSON(data []byte) (*Receipt, error) {
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// hexDecode is a thin local wrapper so this file only ever touches hex
// through one place; mustHex32Lower has already validated the input.
func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// mustHex32Lower validates that a hex string is exactly 32 bytes
// (64 hex chars) and lowercase, returning it unchanged.
func mustHex32Lower(s string, label string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%s: empty", label)
	}
	if !isLowerHex64(s) {
		return "", fmt.Errorf("%s: expected 64 lowercase hex chars, got %q", label, s)
	}
	return s, nil
}

func isLowerHex64(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
