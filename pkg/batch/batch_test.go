// Copyright 2025 Truthcrawl Project

package batch

import (
	"testing"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

func hashesFor(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = crypto.Sum256Hex([]byte{byte(i)})
	}
	return out
}

func TestManifestEmitParseRoundTrip(t *testing.T) {
	m := &Manifest{Hashes: hashesFor(4)}
	data, err := m.Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	got, err := ParseManifest(data)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(got.Hashes) != len(m.Hashes) {
		t.Fatalf("hash count: got %d, want %d", len(got.Hashes), len(m.Hashes))
	}
	for i := range m.Hashes {
		if got.Hashes[i] != m.Hashes[i] {
			t.Fatalf("hash %d: got %s, want %s (manifest order must survive round trip)", i, got.Hashes[i], m.Hashes[i])
		}
	}
}

func TestManifestEmitRejectsEmpty(t *testing.T) {
	m := &Manifest{}
	if _, err := m.Emit(); err != ErrEmptyManifest {
		t.Fatalf("got %v, want ErrEmptyManifest", err)
	}
}

func TestValidateBatchID(t *testing.T) {
	cases := map[string]bool{
		"2026-07-31":     true,
		"2026-07-31-001": true,
		"2026-7-31":      false,
		"not-a-date":     false,
	}
	for id, want := range cases {
		got := ValidateBatchID(id) == nil
		if got != want {
			t.Errorf("ValidateBatchID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestPublishChainLinkAndVerify(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m := &Manifest{Hashes: hashesFor(3)}
	link, err := ChainLinkFromManifest("2026-07-31", m, GenesisRoot)
	if err != nil {
		t.Fatalf("ChainLinkFromManifest: %v", err)
	}

	dir := t.TempDir()
	p := NewPublisher(dir, priv)
	if err := p.PublishChainLink(m, link); err != nil {
		t.Fatalf("PublishChainLink: %v", err)
	}

	sig := crypto.Sign(priv, link.Emit())
	var bv BatchVerifier
	result := bv.VerifyChainLink(link, m, sig, pub)
	if !result.Valid {
		t.Fatalf("expected valid batch, got errors: %v", result.Errors)
	}
}

func TestBatchVerifierDetectsRecordCountMismatch(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	m := &Manifest{Hashes: hashesFor(3)}
	md, err := MetadataFromManifest("2026-07-31", m)
	if err != nil {
		t.Fatalf("MetadataFromManifest: %v", err)
	}
	md.RecordCount = 99

	sig := crypto.Sign(priv, md.Emit())
	var bv BatchVerifier
	result := bv.Verify(md, m, sig, pub)
	if result.Valid {
		t.Fatal("expected record_count mismatch to invalidate the batch")
	}
}

func TestChainVerifierDetectsBrokenLink(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	m1 := &Manifest{Hashes: hashesFor(2)}
	link1, err := ChainLinkFromManifest("2026-07-30", m1, GenesisRoot)
	if err != nil {
		t.Fatalf("ChainLinkFromManifest: %v", err)
	}
	sig1 := crypto.Sign(priv, link1.Emit())

	m2 := &Manifest{Hashes: hashesFor(3)}
	// Deliberately break the chain: previous_root should be link1.MerkleRoot.
	link2, err := ChainLinkFromManifest("2026-07-31", m2, codec.ZeroHex64)
	if err != nil {
		t.Fatalf("ChainLinkFromManifest: %v", err)
	}
	sig2 := crypto.Sign(priv, link2.Emit())

	var cv ChainVerifier
	result := cv.Verify(
		[]*ChainLink{link1, link2},
		[]*Manifest{m1, m2},
		[][]byte{sig1, sig2},
		pub,
	)
	if result.Valid {
		t.Fatal("expected broken previous_root back-reference to invalidate the chain")
	}
}
