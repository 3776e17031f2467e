// Copyright 2025 Truthcrawl Project

package batch

import (
	"crypto/ed25519"
	"fmt"

	"github.com/truthcrawl/node/pkg/crypto"
)

// Result collects every failed verification check rather than stopping
// at the first one — callers see the full picture of what is wrong.
type Result struct {
	Valid  bool
	Errors []string
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// BatchVerifier independently re-checks a published batch: that the
// manifest hashes to what metadata claims, that its Merkle root matches,
// that the record count matches, and that the signature verifies.
type BatchVerifier struct{}

// Verify runs every check independently and returns a Result whose error
// list enumerates all of them that failed. signature must cover md.Emit()
// (the canonical metadata bytes), which is what Publisher.PublishMetadata
// signs for a standalone (non-chained) batch.
func (BatchVerifier) Verify(md *Metadata, m *Manifest, signature []byte, pub ed25519.PublicKey) *Result {
	result := &Result{Valid: true}
	checkManifestAgainstMetadata(result, md, m)

	if !crypto.Verify(pub, md.Emit(), signature) {
		result.fail("signature does not verify over canonical metadata bytes")
	}

	return result
}

// VerifyChainLink checks a single chain link's manifest/metadata
// consistency and its signature, without any chain-continuity check
// against neighboring links — for verifying one exported batch bundle in
// isolation, where there is no earlier link to compare against.
func (BatchVerifier) VerifyChainLink(link *ChainLink, m *Manifest, signature []byte, pub ed25519.PublicKey) *Result {
	result := &Result{Valid: true}
	checkManifestAgainstMetadata(result, &link.Metadata, m)

	if !crypto.Verify(pub, link.Emit(), signature) {
		result.fail("signature does not verify over canonical chain-link bytes")
	}

	return result
}

// checkManifestAgainstMetadata runs the manifest/metadata consistency
// checks shared by BatchVerifier and ChainVerifier, recording failures on
// result without touching the signature.
func checkManifestAgainstMetadata(result *Result, md *Metadata, m *Manifest) {
	manifestHash, err := m.Hash()
	if err != nil {
		result.fail("manifest: %v", err)
	} else if manifestHash != md.ManifestHash {
		result.fail("manifest_hash mismatch: metadata says %s, computed %s", md.ManifestHash, manifestHash)
	}

	if m.RecordCount() != md.RecordCount {
		result.fail("record_count mismatch: metadata says %d, manifest has %d", md.RecordCount, m.RecordCount())
	}

	root, err := m.MerkleRoot()
	if err != nil {
		result.fail("merkle root: %v", err)
	} else if root != md.MerkleRoot {
		result.fail("merkle_root mismatch: metadata says %s, computed %s", md.MerkleRoot, root)
	}
}

// ChainVerifier additionally checks back-reference continuity across an
// ordered sequence of chain links, presented in chain order by the
// caller — an out-of-order sequence is a verification failure, not an
// input error.
type ChainVerifier struct{}

// Verify checks every link's batch commitment (as BatchVerifier does)
// plus that links[0].previous_root is the genesis root and that each
// subsequent link's previous_root equals the prior link's merkle_root.
func (cv ChainVerifier) Verify(links []*ChainLink, manifests []*Manifest, signatures [][]byte, publisherKey ed25519.PublicKey) *Result {
	result := &Result{Valid: true}

	if len(links) != len(manifests) || len(links) != len(signatures) {
		result.fail("links, manifests, and signatures must have matching lengths (%d, %d, %d)", len(links), len(manifests), len(signatures))
		return result
	}
	if len(links) == 0 {
		result.fail("chain is empty")
		return result
	}

	if links[0].PreviousRoot != GenesisRoot {
		result.fail("links[0].previous_root (%s) is not the genesis root", links[0].PreviousRoot)
	}

	for i := 1; i < len(links); i++ {
		if links[i].PreviousRoot != links[i-1].MerkleRoot {
			result.fail("links[%d].previous_root (%s) does not match links[%d].merkle_root (%s)",
				i, links[i].PreviousRoot, i-1, links[i-1].MerkleRoot)
		}
	}

	for i, link := range links {
		sub := &Result{Valid: true}
		checkManifestAgainstMetadata(sub, &link.Metadata, manifests[i])

		// Chain links are signed over their full 5-field canonical bytes
		// (including previous_root), not the 4-field Metadata subset.
		if !crypto.Verify(publisherKey, link.Emit(), signatures[i]) {
			sub.fail("signature does not verify over canonical chain-link bytes")
		}

		if !sub.Valid {
			for _, e := range sub.Errors {
				result.fail("batch %s: %s", link.BatchID, e)
			}
		}
	}

	return result
}
