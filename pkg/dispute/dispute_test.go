// Copyright 2025 Truthcrawl Project

package dispute

import (
	"testing"
	"time"

	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/record"
)

func observationFor(t *testing.T, url string, statusCode int, contentHash string) *record.ObservationRecord {
	t.Helper()
	_, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	rec := &record.ObservationRecord{
		RecordVersion: record.Version,
		ObservedAt:    time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC),
		URL:           url,
		FinalURL:      url,
		StatusCode:    statusCode,
		FetchMS:       5,
		ContentHash:   contentHash,
	}
	if err := rec.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return rec
}

func TestObservationSetRejectsFewerThanThree(t *testing.T) {
	a := observationFor(t, "https://example.com", 200, crypto.Sum256Hex([]byte("a")))
	b := observationFor(t, "https://example.com", 200, crypto.Sum256Hex([]byte("a")))
	if _, err := Of([]*record.ObservationRecord{a, b}); err != ErrInsufficientObservations {
		t.Fatalf("got %v, want ErrInsufficientObservations", err)
	}
}

func TestObservationSetRejectsDuplicateNode(t *testing.T) {
	_, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	make1 := func() *record.ObservationRecord {
		r := &record.ObservationRecord{
			RecordVersion: record.Version,
			ObservedAt:    time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC),
			URL:           "https://example.com",
			FinalURL:      "https://example.com",
			StatusCode:    200,
			ContentHash:   crypto.Sum256Hex([]byte("x")),
		}
		if err := r.Sign(priv); err != nil {
			t.Fatalf("Sign: %v", err)
		}
		return r
	}
	a := make1()
	b := make1() // same node_id, same url
	c := observationFor(t, "https://example.com", 200, crypto.Sum256Hex([]byte("x")))
	if _, err := Of([]*record.ObservationRecord{a, b, c}); err == nil {
		t.Fatal("expected error for duplicate (node_id, url) pair")
	}
}

func TestDisputeUpheld(t *testing.T) {
	// spec.md §8 scenario 4: node A says 404/hash X; nodes B, C say 200/hash Y.
	hashY := crypto.Sum256Hex([]byte("y"))
	hashX := crypto.Sum256Hex([]byte("x"))
	a := observationFor(t, "https://example.com", 404, hashX)
	b := observationFor(t, "https://example.com", 200, hashY)
	c := observationFor(t, "https://example.com", 200, hashY)

	set, err := Of([]*record.ObservationRecord{a, b, c})
	if err != nil {
		t.Fatalf("Of: %v", err)
	}

	challengedHash, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	res, err := Resolve("dispute-1", challengedHash, set, time.Date(2026, 7, 31, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Upheld {
		t.Fatalf("outcome: got %s, want UPHELD", res.Outcome)
	}
	if len(res.MajorityNodes) != 2 {
		t.Fatalf("majority_nodes: got %v, want 2 entries (B, C)", res.MajorityNodes)
	}
	if len(res.MinorityNodes) != 1 || res.MinorityNodes[0] != a.NodeID {
		t.Fatalf("minority_nodes: got %v, want [%s]", res.MinorityNodes, a.NodeID)
	}
}

func TestDisputeDismissed(t *testing.T) {
	// spec.md §8 scenario 5: all three report 200/hash Y.
	hashY := crypto.Sum256Hex([]byte("y"))
	a := observationFor(t, "https://example.com", 200, hashY)
	b := observationFor(t, "https://example.com", 200, hashY)
	c := observationFor(t, "https://example.com", 200, hashY)

	set, err := Of([]*record.ObservationRecord{a, b, c})
	if err != nil {
		t.Fatalf("Of: %v", err)
	}
	challengedHash, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	res, err := Resolve("dispute-2", challengedHash, set, time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Dismissed {
		t.Fatalf("outcome: got %s, want DISMISSED", res.Outcome)
	}
	if len(res.MajorityNodes) != 0 || len(res.MinorityNodes) != 0 {
		t.Fatalf("expected no majority/minority nodes for a dismissed dispute")
	}
}

func TestDisputeInconclusiveOnTie(t *testing.T) {
	a := observationFor(t, "https://example.com", 200, crypto.Sum256Hex([]byte("x")))
	b := observationFor(t, "https://example.com", 404, crypto.Sum256Hex([]byte("y")))
	c := observationFor(t, "https://example.com", 500, crypto.Sum256Hex([]byte("z")))

	set, err := Of([]*record.ObservationRecord{a, b, c})
	if err != nil {
		t.Fatalf("Of: %v", err)
	}
	challengedHash, err := a.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	res, err := Resolve("dispute-3", challengedHash, set, time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Outcome != Inconclusive {
		t.Fatalf("outcome: got %s, want INCONCLUSIVE (three-way split leaves status_code and content_hash with no strict majority)", res.Outcome)
	}
}

func TestReputationComputeUpheldOnly(t *testing.T) {
	resUpheld := &Resolution{Outcome: Upheld, MajorityNodes: []string{"b", "c"}, MinorityNodes: []string{"a"}}
	resDismissed := &Resolution{Outcome: Dismissed, MajorityNodes: []string{"a"}, MinorityNodes: []string{}}
	resInconclusive := &Resolution{Outcome: Inconclusive}

	rep := Compute([]*Resolution{resUpheld, resDismissed, resInconclusive}, nil)
	if rep["b"].Wins != 1 || rep["c"].Wins != 1 {
		t.Fatalf("expected b and c to each have 1 win, got %+v", rep)
	}
	if rep["a"].Losses != 1 {
		t.Fatalf("expected a to have 1 loss, got %+v", rep["a"])
	}
	if _, ok := rep["a"]; !ok || rep["a"].Wins != 0 {
		t.Fatalf("a's dismissed-outcome majority role should not grant a win: %+v", rep["a"])
	}
}

func TestReputationEmitSortOrder(t *testing.T) {
	rep := Reputation{
		"zzz": {Wins: 2, Losses: 0},
		"aaa": {Wins: 2, Losses: 1},
		"bbb": {Wins: 5, Losses: 0},
	}
	got := string(rep.Emit())
	want := "bbb:5:0\naaa:2:1\nzzz:2:0\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNewDisputeRecordGeneratesUniqueIDs(t *testing.T) {
	pub, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	a := NewDisputeRecord(crypto.Sum256Hex([]byte("x")), crypto.Sum256Hex([]byte("y")), "https://example.com", now)
	b := NewDisputeRecord(crypto.Sum256Hex([]byte("x")), crypto.Sum256Hex([]byte("y")), "https://example.com", now)
	if a.DisputeID == "" || b.DisputeID == "" {
		t.Fatal("expected a non-empty generated dispute_id")
	}
	if a.DisputeID == b.DisputeID {
		t.Fatal("expected two disputes filed at the same instant to get distinct dispute_ids")
	}
	if err := a.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := a.Verify(pub); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
