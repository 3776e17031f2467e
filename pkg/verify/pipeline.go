// Copyright 2025 Truthcrawl Project

package verify

import (
	"fmt"

	"github.com/truthcrawl/node/pkg/batch"
	"github.com/truthcrawl/node/pkg/store"
)

// PipelineResult is the outcome of auditing a sample of a batch's
// records against its committed Merkle root.
type PipelineResult struct {
	BatchID    string
	Sampled    []string
	Matched    []string
	Mismatched []string
	Missing    []string
}

// addMatched, addMismatched, and addMissing record one sampled hash's
// outcome; a hash belongs to exactly one of the three.
func (r *PipelineResult) addMatched(hash string)    { r.Matched = append(r.Matched, hash) }
func (r *PipelineResult) addMismatched(hash string) { r.Mismatched = append(r.Mismatched, hash) }
func (r *PipelineResult) addMissing(hash string)    { r.Missing = append(r.Missing, hash) }

// VerificationPipeline re-derives a batch's Merkle root from its
// manifest, draws a deterministic sample, and checks every sampled
// record against the store it claims to live in.
type VerificationPipeline struct {
	Store *store.RecordStore
}

// NewVerificationPipeline returns a pipeline backed by s.
func NewVerificationPipeline(s *store.RecordStore) *VerificationPipeline {
	return &VerificationPipeline{Store: s}
}

// Run executes the pipeline for one batch: recompute the manifest's
// Merkle root and compare it to merkleRoot, draw the sample, and for
// each sampled hash fetch the record from the store and recompute its
// hash. A root mismatch still runs the sample so the returned result is
// always fully populated; the caller decides the terminal status.
func (p *VerificationPipeline) Run(batchID string, m *batch.Manifest, merkleRoot, userSeed string, maxSample int) (*PipelineResult, bool, error) {
	computedRoot, err := m.MerkleRoot()
	if err != nil {
		return nil, false, fmt.Errorf("verify: compute merkle root: %w", err)
	}
	rootMatches := computedRoot == merkleRoot

	sampled := Sample(m, merkleRoot, userSeed, maxSample)
	result := &PipelineResult{BatchID: batchID, Sampled: sampled}

	for _, hash := range sampled {
		rec, err := p.Store.Load(hash)
		if err != nil {
			result.addMissing(hash)
			continue
		}
		recomputed, err := rec.Hash()
		if err == nil && recomputed == hash {
			result.addMatched(hash)
		} else {
			result.addMismatched(hash)
		}
	}
	return result, rootMatches, nil
}
