// Copyright 2025 Truthcrawl Project

package timestamp

import (
	"testing"
	"time"

	"github.com/truthcrawl/node/pkg/crypto"
)

func TestIssueAndVerify(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	auth := NewAuthority(pub, priv)
	dataHash := crypto.Sum256Hex([]byte("hello"))

	tok, err := auth.Issue(dataHash, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.TSAKeyID != auth.KeyID() {
		t.Fatalf("tsa_key_id = %s, want %s", tok.TSAKeyID, auth.KeyID())
	}

	var v Verifier
	if err := v.Verify(tok, pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	otherPub, _, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if err := v.Verify(tok, otherPub); err != ErrKeyIDMismatch {
		t.Fatalf("got %v, want ErrKeyIDMismatch", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	auth := NewAuthority(pub, priv)
	dataHash := crypto.Sum256Hex([]byte("roundtrip"))
	tok, err := auth.Issue(dataHash, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	data, err := tok.Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.DataHash != tok.DataHash || parsed.TSAKeyID != tok.TSAKeyID || parsed.TSASignature != tok.TSASignature {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, tok)
	}

	var v Verifier
	if err := v.Verify(parsed, pub); err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
}

func TestStoreIdempotence(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	auth := NewAuthority(pub, priv)
	dataHash := crypto.Sum256Hex([]byte("store"))
	tok, err := auth.Issue(dataHash, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Store(tok); err != nil {
		t.Fatalf("first Store: %v", err)
	}
	if err := s.Store(tok); err != nil {
		t.Fatalf("second Store: %v", err)
	}

	loaded, err := s.Load(dataHash)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.TSASignature != tok.TSASignature {
		t.Fatalf("loaded signature mismatch")
	}

	if _, err := s.Load(crypto.Sum256Hex([]byte("missing"))); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
