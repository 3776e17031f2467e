package crypto

import (
	"encoding/base64"
	"fmt"
)

// EncodeSignature returns the standard Base64 encoding of raw Ed25519
// signature bytes, as required for node_signature / tsa_signature fields.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature decodes a standard-Base64 Ed25519 signature.
func DecodeSignature(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid signature encoding: %w", err)
	}
	return b, nil
}

// EncodeKey returns the standard Base64 encoding of raw Ed25519 key bytes
// (public or private), matching the one-per-file key storage format.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey decodes a standard-Base64 Ed25519 key.
func DecodeKey(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid key encoding: %w", err)
	}
	return b, nil
}
