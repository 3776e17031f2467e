// Copyright 2025 Truthcrawl Project

package dispute

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/record"
)

// Outcome is the terminal verdict of resolving a dispute.
type Outcome string

const (
	Upheld       Outcome = "UPHELD"
	Dismissed    Outcome = "DISMISSED"
	Inconclusive Outcome = "INCONCLUSIVE"
)

// comparableFields lists the six fields a resolution judges, in the
// fixed order they appear in canonical text.
var comparableFields = []string{
	"status_code",
	"content_hash",
	"final_url",
	"directive:canonical",
	"directive:robots_meta",
	"directive:robots_header",
}

func fieldValue(r *record.ObservationRecord, field string) string {
	switch field {
	case "status_code":
		return strconv.Itoa(r.StatusCode)
	case "content_hash":
		return r.ContentHash
	case "final_url":
		return r.FinalURL
	case "directive:canonical":
		return r.Canonical
	case "directive:robots_meta":
		return r.RobotsMeta
	case "directive:robots_header":
		return r.RobotsHeader
	default:
		panic("dispute: unknown comparable field " + field)
	}
}

// FieldVerdict is one field's majority outcome.
type FieldVerdict struct {
	Field      string
	Majority   string // majority value; may itself be "" (e.g. an absent directive)
	Count      int    // votes for Majority; 0 if no strict majority (a tie)
	Total      int    // total observations
	Challenged string // the challenged record's value for this field
	Nodes      []string
}

// strictMajority returns, for the value counts given, the value with a
// strict (>n/2) plurality, its vote count, and the node_ids that voted
// for it, or ("", 0, nil) if no value clears that bar.
func strictMajority(votes map[string]int, voters map[string][]string, n int) (string, int, []string) {
	bestValue, bestCount := "", 0
	for v, c := range votes {
		if c > bestCount {
			bestValue, bestCount = v, c
		}
	}
	if bestCount*2 > n {
		return bestValue, bestCount, voters[bestValue]
	}
	return "", 0, nil
}

// Resolve computes the per-field majority and overall outcome for a
// dispute challenging challengedHash within set. now stamps resolved_at.
func Resolve(disputeID string, challengedHash string, set *ObservationSet, now time.Time) (*Resolution, error) {
	var challenged *record.ObservationRecord
	for _, r := range set.Records {
		hash, err := r.Hash()
		if err != nil {
			return nil, fmt.Errorf("dispute: hash observation: %w", err)
		}
		if hash == challengedHash {
			challenged = r
			break
		}
	}
	if challenged == nil {
		return nil, fmt.Errorf("dispute: challenged_record_hash %s is not among the observations", challengedHash)
	}

	n := len(set.Records)
	verdicts := make([]FieldVerdict, 0, len(comparableFields))
	anyUpheldField := false
	majoritySet := make(map[string]bool)

	for _, field := range comparableFields {
		votes := make(map[string]int)
		voters := make(map[string][]string)
		for _, r := range set.Records {
			v := fieldValue(r, field)
			votes[v]++
			voters[v] = append(voters[v], r.NodeID)
		}
		majority, count, nodes := strictMajority(votes, voters, n)
		challengedValue := fieldValue(challenged, field)

		fv := FieldVerdict{
			Field:      field,
			Majority:   majority,
			Count:      count,
			Total:      n,
			Challenged: challengedValue,
			Nodes:      nodes,
		}
		verdicts = append(verdicts, fv)

		if count > 0 && majority != challengedValue {
			anyUpheldField = true
			for _, node := range nodes {
				majoritySet[node] = true
			}
		}
	}

	var outcome Outcome
	switch {
	case anyUpheldField:
		outcome = Upheld
	case allFieldsAgreeWithChallenged(verdicts):
		outcome = Dismissed
	default:
		outcome = Inconclusive
	}

	var majorityNodes, minorityNodes []string
	if outcome == Upheld {
		for node := range majoritySet {
			majorityNodes = append(majorityNodes, node)
		}
		sort.Strings(majorityNodes)
		for _, r := range set.Records {
			if !majoritySet[r.NodeID] {
				minorityNodes = append(minorityNodes, r.NodeID)
			}
		}
		sort.Strings(minorityNodes)
	}

	return &Resolution{
		DisputeID:        disputeID,
		Outcome:          outcome,
		ResolvedAt:       now,
		ObservationCount: n,
		FieldVerdicts:    verdicts,
		MajorityNodes:    majorityNodes,
		MinorityNodes:    minorityNodes,
	}, nil
}

func allFieldsAgreeWithChallenged(verdicts []FieldVerdict) bool {
	for _, v := range verdicts {
		if v.Count == 0 || v.Majority != v.Challenged {
			return false
		}
	}
	return true
}

// Resolution is the outcome of resolving one dispute.
type Resolution struct {
	DisputeID        string
	Outcome          Outcome
	ResolvedAt       time.Time
	ObservationCount int
	FieldVerdicts    []FieldVerdict
	MajorityNodes    []string
	MinorityNodes    []string
}

// Emit renders the resolution as canonical text.
func (res *Resolution) Emit() []byte {
	w := codec.NewWriter()
	w.Field("dispute_id", res.DisputeID)
	w.Field("outcome", string(res.Outcome))
	w.Field("resolved_at", res.ResolvedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("observations_count", strconv.Itoa(res.ObservationCount))
	for _, fv := range res.FieldVerdicts {
		w.Raw(fmt.Sprintf("field:%s:%s:count:%d/%d:%s", fv.Field, fv.Majority, fv.Count, fv.Total, fv.Challenged))
	}
	w.Field("majority_nodes", strings.Join(res.MajorityNodes, ","))
	w.Field("minority_nodes", strings.Join(res.MinorityNodes, ","))
	return w.Bytes()
}
