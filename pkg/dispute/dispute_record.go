// Copyright 2025 Truthcrawl Project

package dispute

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

// DisputeRecord is one node's challenge against another node's
// observation of the same URL.
type DisputeRecord struct {
	DisputeID            string
	ChallengedRecordHash string
	ChallengerRecordHash string
	URL                  string
	FiledAt              time.Time
	ChallengerNodeID     string
	ChallengerSignature  string // base64, empty until signed
}

// NewDisputeRecord starts a dispute over challengedHash, minting a fresh
// dispute_id so two disputes filed in the same process never collide
// even when filed within the same wall-clock second.
func NewDisputeRecord(challengedHash, challengerHash, url string, filedAt time.Time) *DisputeRecord {
	return &DisputeRecord{
		DisputeID:            uuid.New().String(),
		ChallengedRecordHash: challengedHash,
		ChallengerRecordHash: challengerHash,
		URL:                  url,
		FiledAt:              filedAt,
	}
}

func (d *DisputeRecord) emitUnsigned() []byte {
	w := codec.NewWriter()
	w.Field("dispute_id", d.DisputeID)
	w.Field("challenged_record_hash", d.ChallengedRecordHash)
	w.Field("challenger_record_hash", d.ChallengerRecordHash)
	w.Field("url", d.URL)
	w.Field("filed_at", d.FiledAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("challenger_node_id", d.ChallengerNodeID)
	return w.Bytes()
}

// Hash returns the dispute hash: SHA-256 of the canonical text without
// the signature line.
func (d *DisputeRecord) Hash() string {
	return crypto.Sum256Hex(d.emitUnsigned())
}

// Sign computes challenger_node_id from priv's public half (if empty)
// and signs the unsigned canonical bytes.
func (d *DisputeRecord) Sign(priv ed25519.PrivateKey) error {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("dispute: private key has no ed25519 public half")
	}
	expectedID := crypto.NodeID(pub)
	if d.ChallengerNodeID == "" {
		d.ChallengerNodeID = expectedID
	} else if d.ChallengerNodeID != expectedID {
		return fmt.Errorf("dispute: challenger_node_id does not match signing key")
	}
	sig := crypto.Sign(priv, d.emitUnsigned())
	d.ChallengerSignature = crypto.EncodeSignature(sig)
	return nil
}

// Verify checks that challenger_node_id matches pub's fingerprint and
// that challenger_signature verifies over the unsigned canonical bytes.
func (d *DisputeRecord) Verify(pub ed25519.PublicKey) error {
	if crypto.NodeID(pub) != d.ChallengerNodeID {
		return fmt.Errorf("dispute: challenger_node_id does not match supplied key")
	}
	sig, err := crypto.DecodeSignature(d.ChallengerSignature)
	if err != nil {
		return fmt.Errorf("dispute: %w", err)
	}
	if !crypto.Verify(pub, d.emitUnsigned(), sig) {
		return fmt.Errorf("dispute: challenger_signature does not verify")
	}
	return nil
}

// Emit renders the full canonical text, including challenger_signature.
func (d *DisputeRecord) Emit() ([]byte, error) {
	if d.ChallengerSignature == "" {
		return nil, fmt.Errorf("dispute: not signed")
	}
	w := codec.NewWriter()
	w.Field("dispute_id", d.DisputeID)
	w.Field("challenged_record_hash", d.ChallengedRecordHash)
	w.Field("challenger_record_hash", d.ChallengerRecordHash)
	w.Field("url", d.URL)
	w.Field("filed_at", d.FiledAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("challenger_node_id", d.ChallengerNodeID)
	w.Field("challenger_signature", d.ChallengerSignature)
	return w.Bytes(), nil
}

// ParseDisputeRecord reads the seven fixed fields in order.
func ParseDisputeRecord(data []byte) (*DisputeRecord, error) {
	r := codec.NewReader(data)
	d := &DisputeRecord{}

	var err error
	if d.DisputeID, err = r.ExpectField("dispute_id"); err != nil {
		return nil, err
	}
	if d.ChallengedRecordHash, err = r.ExpectField("challenged_record_hash"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(d.ChallengedRecordHash) {
		return nil, fmt.Errorf("%w: challenged_record_hash", codec.ErrInvalidHex)
	}
	if d.ChallengerRecordHash, err = r.ExpectField("challenger_record_hash"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(d.ChallengerRecordHash) {
		return nil, fmt.Errorf("%w: challenger_record_hash", codec.ErrInvalidHex)
	}
	if d.URL, err = r.ExpectField("url"); err != nil {
		return nil, err
	}
	filedAtStr, err := r.ExpectField("filed_at")
	if err != nil {
		return nil, err
	}
	d.FiledAt, err = time.Parse(time.RFC3339, filedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: filed_at: %v", codec.ErrInvalidCanonicalForm, err)
	}
	if d.ChallengerNodeID, err = r.ExpectField("challenger_node_id"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(d.ChallengerNodeID) {
		return nil, fmt.Errorf("%w: challenger_node_id", codec.ErrInvalidHex)
	}
	if d.ChallengerSignature, err = r.ExpectField("challenger_signature"); err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after dispute record", codec.ErrInvalidCanonicalForm)
	}
	return d, nil
}
