// Copyright 2025 Truthcrawl Project

package profile

import (
	"testing"
	"time"

	"github.com/truthcrawl/node/pkg/crypto"
)

func TestRegistrationSignVerify(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	reg := &Registration{
		OperatorName: "Jordan Rivera",
		Organization: "Truthcrawl Cooperative",
		ContactEmail: "jordan@example.com",
		PublicKey:    pub,
		RegisteredAt: time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC),
	}
	if err := reg.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := reg.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestProfileEmitParseRoundTrip(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	reg := &Registration{
		OperatorName: "Jordan Rivera",
		Organization: "Truthcrawl Cooperative",
		ContactEmail: "jordan@example.com",
		PublicKey:    pub,
		RegisteredAt: time.Date(2026, 7, 31, 8, 0, 0, 0, time.UTC),
	}
	if err := reg.Sign(priv); err != nil {
		t.Fatalf("Sign registration: %v", err)
	}

	att := &Attestation{
		NodeID:     reg.NodeID(),
		AttestedAt: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
		Domains:    []string{"example.com", "example.org"},
	}
	if err := att.Sign(priv); err != nil {
		t.Fatalf("Sign attestation: %v", err)
	}

	p := &Profile{Registration: reg, Attestation: att}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got, err := Parse(p.Emit())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate after round trip: %v", err)
	}
	if len(got.Attestation.Domains) != 2 || got.Attestation.Domains[0] != "example.com" {
		t.Fatalf("domains round trip mismatch: got %v", got.Attestation.Domains)
	}
}

func TestValidateRejectsAttestationForDifferentNode(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherPub, otherPriv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	reg := &Registration{PublicKey: pub, RegisteredAt: time.Now()}
	if err := reg.Sign(priv); err != nil {
		t.Fatalf("Sign registration: %v", err)
	}

	att := &Attestation{NodeID: crypto.NodeID(otherPub), AttestedAt: time.Now()}
	if err := att.Sign(otherPriv); err != nil {
		t.Fatalf("Sign attestation: %v", err)
	}

	p := &Profile{Registration: reg, Attestation: att}
	if err := p.Validate(); err != ErrAttestationNodeID {
		t.Fatalf("got %v, want ErrAttestationNodeID", err)
	}
}

func TestStoreSaveLoadOverwrites(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	reg := &Registration{PublicKey: pub, RegisteredAt: time.Now()}
	if err := reg.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Save(&Profile{Registration: reg}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	att := &Attestation{NodeID: reg.NodeID(), AttestedAt: time.Now(), Domains: []string{"example.com"}}
	if err := att.Sign(priv); err != nil {
		t.Fatalf("Sign attestation: %v", err)
	}
	if err := s.Save(&Profile{Registration: reg, Attestation: att}); err != nil {
		t.Fatalf("Save with attestation: %v", err)
	}

	got, err := s.Load(reg.NodeID())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Attestation == nil {
		t.Fatal("expected the later save (with attestation) to win")
	}
}

func TestLoadMissingProfile(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Load("deadbeef"); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
