// Copyright 2025 Truthcrawl Project
//
// Package crypto wires the log's single hash and signature implementation:
// SHA-256 for every digest, Ed25519 for every signature, and the node
// fingerprint derived from a public key. Keeping this in one place is what
// makes node_id equality (and every downstream hash/signature check) mean
// the same thing everywhere in the system.

package crypto

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/truthcrawl/node/pkg/codec"
)

// Sum256 returns the SHA-256 digest of data.
func Sum256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sum256Hex returns the lowercase hex SHA-256 digest of data.
func Sum256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return codec.EncodeHex(sum[:])
}

// NodeID returns the node fingerprint for a public key: SHA-256 of the
// raw public-key bytes, lowercase hex. This is used for both
// ObservationRecord.node_id and TimestampToken.tsa_key_id — two distinct
// fingerprint schemes would break node_id equality across the system.
func NodeID(pub ed25519.PublicKey) string {
	return Sum256Hex(pub)
}

// GenerateKey creates a fresh Ed25519 key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return pub, priv, nil
}

// Sign signs message with priv. The caller is always signing the
// canonical bytes of some entity — never raw user input.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

// Verify reports whether sig is a valid Ed25519 signature over message
// under pub. It never panics on malformed input: ed25519.Verify panics on
// a wrong-sized public key, so the key and signature sizes are checked
// first and a wrong size yields false.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}
