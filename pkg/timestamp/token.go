// Copyright 2025 Truthcrawl Project
//
// Package timestamp implements the timestamp authority: a token binding
// (data_hash, issued_at, issuer) so that a third party can later prove
// existence of a data hash by a given time. Tokens prove existence, not
// ordering — nothing in a token relates it to any other token.

package timestamp

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

var (
	ErrKeyIDMismatch   = errors.New("timestamp: tsa_key_id does not match supplied key")
	ErrSignatureInvalid = errors.New("timestamp: tsa_signature does not verify")
)

// Token is a signed attestation that dataHash existed at issuedAt,
// issued by the TSA identified by tsaKeyID.
type Token struct {
	DataHash     string // 64-hex
	IssuedAt     time.Time
	TSAKeyID     string // 64-hex = SHA-256(tsa public key)
	TSASignature string // base64, empty until signed
}

func (t *Token) emitUnsigned() ([]byte, error) {
	if !codec.IsLowerHex64(t.DataHash) {
		return nil, fmt.Errorf("%w: data_hash", codec.ErrInvalidHex)
	}
	if !codec.IsLowerHex64(t.TSAKeyID) {
		return nil, fmt.Errorf("%w: tsa_key_id", codec.ErrInvalidHex)
	}
	w := codec.NewWriter()
	w.Field("data_hash", t.DataHash)
	w.Field("issued_at", t.IssuedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("tsa_key_id", t.TSAKeyID)
	return w.Bytes(), nil
}

// Emit renders the full canonical text, including tsa_signature.
func (t *Token) Emit() ([]byte, error) {
	if t.TSASignature == "" {
		return nil, errors.New("timestamp: not signed")
	}
	if !codec.IsLowerHex64(t.DataHash) {
		return nil, fmt.Errorf("%w: data_hash", codec.ErrInvalidHex)
	}
	if !codec.IsLowerHex64(t.TSAKeyID) {
		return nil, fmt.Errorf("%w: tsa_key_id", codec.ErrInvalidHex)
	}
	w := codec.NewWriter()
	w.Field("data_hash", t.DataHash)
	w.Field("issued_at", t.IssuedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("tsa_key_id", t.TSAKeyID)
	w.Field("tsa_signature", t.TSASignature)
	return w.Bytes(), nil
}

// Authority issues tokens signed by a fixed TSA key pair.
type Authority struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewAuthority returns a TSA that signs with priv; pub must be priv's
// public half.
func NewAuthority(pub ed25519.PublicKey, priv ed25519.PrivateKey) *Authority {
	return &Authority{pub: pub, priv: priv}
}

// KeyID returns this authority's tsa_key_id: SHA-256(public key).
func (a *Authority) KeyID() string {
	return crypto.NodeID(a.pub)
}

// Issue produces a Token over dataHash, stamped issuedAt, signed by the
// authority's key.
func (a *Authority) Issue(dataHash string, issuedAt time.Time) (*Token, error) {
	t := &Token{
		DataHash: dataHash,
		IssuedAt: issuedAt,
		TSAKeyID: a.KeyID(),
	}
	unsigned, err := t.emitUnsigned()
	if err != nil {
		return nil, err
	}
	sig := crypto.Sign(a.priv, unsigned)
	t.TSASignature = crypto.EncodeSignature(sig)
	return t, nil
}

// Verifier checks tokens against a supplied TSA public key.
type Verifier struct{}

// Verify recomputes tsa_key_id from pub, requires it to equal the
// token's claimed tsa_key_id, and verifies the signature.
func (Verifier) Verify(t *Token, pub ed25519.PublicKey) error {
	if crypto.NodeID(pub) != t.TSAKeyID {
		return ErrKeyIDMismatch
	}
	unsigned, err := t.emitUnsigned()
	if err != nil {
		return err
	}
	sig, err := crypto.DecodeSignature(t.TSASignature)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if !crypto.Verify(pub, unsigned, sig) {
		return ErrSignatureInvalid
	}
	return nil
}

// Parse reads a full canonical Token, including its signature line.
func Parse(data []byte) (*Token, error) {
	r := codec.NewReader(data)
	t := &Token{}

	var err error
	if t.DataHash, err = r.ExpectField("data_hash"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(t.DataHash) {
		return nil, fmt.Errorf("%w: data_hash", codec.ErrInvalidHex)
	}
	issuedAtStr, err := r.ExpectField("issued_at")
	if err != nil {
		return nil, err
	}
	t.IssuedAt, err = time.Parse(time.RFC3339, issuedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: issued_at: %v", codec.ErrInvalidCanonicalForm, err)
	}
	if t.TSAKeyID, err = r.ExpectField("tsa_key_id"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(t.TSAKeyID) {
		return nil, fmt.Errorf("%w: tsa_key_id", codec.ErrInvalidHex)
	}
	if t.TSASignature, err = r.ExpectField("tsa_signature"); err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after timestamp token", codec.ErrInvalidCanonicalForm)
	}
	return t, nil
}
