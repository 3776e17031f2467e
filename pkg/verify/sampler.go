// Copyright 2025 Truthcrawl Project
//
// Package verify implements the deterministic cross-node audit: a
// reproducible sample of a batch's record hashes, and the pipeline that
// re-derives a batch's root, fetches each sampled record, and compares.

package verify

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/truthcrawl/node/pkg/batch"
)

// DefaultSampleSize is the sampler's default maxSample when a caller
// does not override it. Exposed (spec.md Open Question (b)) so it can
// be threaded through configuration rather than hardcoded at call sites.
const DefaultSampleSize = 16

// Sample deterministically selects up to maxSample record hashes from
// manifest: the same (manifest, merkleRoot, userSeed, maxSample) always
// produces the same ordered output, on any machine.
func Sample(m *batch.Manifest, merkleRoot, userSeed string, maxSample int) []string {
	n := len(m.Hashes)
	if n == 0 {
		return nil
	}
	if maxSample <= 0 {
		maxSample = DefaultSampleSize
	}

	perm := permutation(n, seedFor(merkleRoot, userSeed))

	k := maxSample
	if k > n {
		k = n
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = m.Hashes[perm[i]]
	}
	return out
}

// seedFor computes the sampler's PRNG seed: SHA-256(merkleRoot||userSeed),
// folded down to a uint64 for use as a counter-mode keystream key.
func seedFor(merkleRoot, userSeed string) uint64 {
	sum := sha256.Sum256([]byte(merkleRoot + userSeed))
	return binary.BigEndian.Uint64(sum[:8])
}

// permutation returns a deterministic Fisher-Yates shuffle of
// [0, n) driven by a counter-mode SHA-256 keystream keyed on seed —
// no math/rand dependency, so the result never varies with the
// standard library's PRNG algorithm across Go versions.
func permutation(n int, seed uint64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	var counter uint64
	for i := n - 1; i > 0; i-- {
		r := streamUint64(seed, counter)
		counter++
		j := int(r % uint64(i+1))
		indices[i], indices[j] = indices[j], indices[i]
	}
	return indices
}

// streamUint64 derives the counter-th 8 bytes of a SHA-256-based
// keystream keyed on seed.
func streamUint64(seed, counter uint64) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seed)
	binary.BigEndian.PutUint64(buf[8:], counter)
	sum := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[:8])
}
