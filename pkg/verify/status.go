// Copyright 2025 Truthcrawl Project

package verify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/truthcrawl/node/pkg/codec"
)

var ErrNotFound = errors.New("verify: no saved status for batch")

// Status is the terminal verdict a pipeline run reaches for one batch.
type Status string

const (
	VerifiedClean        Status = "VERIFIED_CLEAN"
	VerifiedWithFindings Status = "VERIFIED_WITH_FINDINGS"
	RootMismatch         Status = "ROOT_MISMATCH"
)

// VerificationStatus wraps a pipeline result with a wall-clock timestamp
// and the terminal status derived from it.
type VerificationStatus struct {
	BatchID    string
	CheckedAt  time.Time
	Status     Status
	Sampled    int
	Matched    int
	Mismatched int
	Missing    int
}

// DeriveStatus classifies a pipeline run: a root mismatch always wins
// (the batch's own commitment is broken, regardless of sample outcome);
// otherwise any mismatched or missing sample is a finding.
func DeriveStatus(batchID string, result *PipelineResult, rootMatches bool, checkedAt time.Time) *VerificationStatus {
	vs := &VerificationStatus{
		BatchID:    batchID,
		CheckedAt:  checkedAt,
		Sampled:    len(result.Sampled),
		Matched:    len(result.Matched),
		Mismatched: len(result.Mismatched),
		Missing:    len(result.Missing),
	}
	switch {
	case !rootMatches:
		vs.Status = RootMismatch
	case len(result.Mismatched) > 0 || len(result.Missing) > 0:
		vs.Status = VerifiedWithFindings
	default:
		vs.Status = VerifiedClean
	}
	return vs
}

// Emit renders the status as canonical text.
func (vs *VerificationStatus) Emit() []byte {
	w := codec.NewWriter()
	w.Field("batch_id", vs.BatchID)
	w.Field("checked_at", vs.CheckedAt.UTC().Format(time.RFC3339))
	w.Field("status", string(vs.Status))
	w.Field("sampled", strconv.Itoa(vs.Sampled))
	w.Field("matched", strconv.Itoa(vs.Matched))
	w.Field("mismatched", strconv.Itoa(vs.Mismatched))
	w.Field("missing", strconv.Itoa(vs.Missing))
	return w.Bytes()
}

// ParseStatus reads a persisted VerificationStatus back.
func ParseStatus(data []byte) (*VerificationStatus, error) {
	r := codec.NewReader(data)
	vs := &VerificationStatus{}

	var err error
	if vs.BatchID, err = r.ExpectField("batch_id"); err != nil {
		return nil, err
	}
	checkedAtStr, err := r.ExpectField("checked_at")
	if err != nil {
		return nil, err
	}
	vs.CheckedAt, err = time.Parse(time.RFC3339, checkedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: checked_at: %v", codec.ErrInvalidCanonicalForm, err)
	}
	statusStr, err := r.ExpectField("status")
	if err != nil {
		return nil, err
	}
	vs.Status = Status(statusStr)
	if vs.Status != VerifiedClean && vs.Status != VerifiedWithFindings && vs.Status != RootMismatch {
		return nil, fmt.Errorf("%w: unknown status %q", codec.ErrInvalidCanonicalForm, statusStr)
	}

	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"sampled", &vs.Sampled},
		{"matched", &vs.Matched},
		{"mismatched", &vs.Mismatched},
		{"missing", &vs.Missing},
	} {
		v, err := r.ExpectField(field.name)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", codec.ErrInvalidCanonicalForm, field.name, err)
		}
		*field.dst = n
	}

	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after verification status", codec.ErrInvalidCanonicalForm)
	}
	return vs, nil
}

// Save persists the status at <dir>/batch-<id>.txt, overwriting any
// existing status for the same batch — a re-audit is expected to
// supersede a prior result, not be rejected by it.
func (vs *VerificationStatus) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("verify: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, "batch-"+vs.BatchID+".txt")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, vs.Emit(), 0o644); err != nil {
		return fmt.Errorf("verify: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("verify: rename into place: %w", err)
	}
	return nil
}

// Load reads a previously saved status for batchID from dir, or reports
// ErrNotFound if none exists.
func Load(dir, batchID string) (*VerificationStatus, error) {
	path := filepath.Join(dir, "batch-"+batchID+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("verify: read %s: %w", path, err)
	}
	return ParseStatus(data)
}
