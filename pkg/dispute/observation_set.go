// Copyright 2025 Truthcrawl Project
//
// Package dispute implements majority-consensus adjudication of
// conflicting observations of the same URL: an ObservationSet gathers
// the independent records, a DisputeResolver computes a per-field
// majority verdict, and NodeReputation folds resolutions into a
// win/loss table.

package dispute

import (
	"errors"
	"fmt"

	"github.com/truthcrawl/node/pkg/record"
)

var ErrInsufficientObservations = errors.New("dispute: fewer than 3 independent observations of the same url")

// ObservationSet is a validated group of independent observations of a
// single URL: no two records share a (node_id, url) pair, and there are
// at least three of them.
type ObservationSet struct {
	URL     string
	Records []*record.ObservationRecord
}

// Of validates records into an ObservationSet. All records must share
// the same URL, no (node_id, url) pair may repeat, and at least three
// records are required — otherwise ErrInsufficientObservations.
func Of(records []*record.ObservationRecord) (*ObservationSet, error) {
	if len(records) < 3 {
		return nil, ErrInsufficientObservations
	}

	url := records[0].URL
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.URL != url {
			return nil, fmt.Errorf("%w: records do not share a single url (%q vs %q)", ErrInsufficientObservations, url, r.URL)
		}
		key := r.NodeID + "\x00" + r.URL
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate observation from node %s for %s", ErrInsufficientObservations, r.NodeID, r.URL)
		}
		seen[key] = true
	}

	return &ObservationSet{URL: url, Records: records}, nil
}
