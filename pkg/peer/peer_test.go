// Copyright 2025 Truthcrawl Project

package peer

import (
	"strings"
	"testing"

	"github.com/truthcrawl/node/pkg/crypto"
)

func newInfo(t *testing.T, endpoint string) *Info {
	t.Helper()
	pub, _, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return &Info{NodeID: crypto.NodeID(pub), EndpointURL: endpoint, PublicKey: pub}
}

func TestInfoEmitParseRoundTrip(t *testing.T) {
	info := newInfo(t, "https://node-a.example.com")
	got, err := Parse(info.Emit())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.NodeID != info.NodeID || got.EndpointURL != info.EndpointURL {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, info)
	}
}

func TestParseRejectsNodeIDMismatch(t *testing.T) {
	info := newInfo(t, "https://node-a.example.com")
	data := info.Emit()
	otherPub, _, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tampered := &Info{NodeID: info.NodeID, EndpointURL: info.EndpointURL, PublicKey: otherPub}
	if _, err := Parse(tampered.Emit()); err == nil {
		t.Fatal("expected error for node_id not matching public_key fingerprint")
	}
	_ = data
}

func TestRegistryAddGetList(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)

	a := newInfo(t, "https://a.example.com")
	b := newInfo(t, "https://b.example.com")
	if err := reg.Add(a); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	if err := reg.Add(b); err != nil {
		t.Fatalf("Add b: %v", err)
	}

	got, err := reg.Get(a.NodeID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EndpointURL != a.EndpointURL {
		t.Fatalf("Get endpoint: got %s, want %s", got.EndpointURL, a.EndpointURL)
	}

	list, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List length: got %d, want 2", len(list))
	}
}

func TestRegistryGetMissingIsNilNil(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	info, err := reg.Get(strings.Repeat("0", 64))
	if err != nil {
		t.Fatalf("Get on missing peer: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info for missing peer, got %+v", info)
	}
}
