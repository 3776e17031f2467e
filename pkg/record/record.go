// Copyright 2025 Truthcrawl Project
//
// Package record implements ObservationRecord: one node's signed
// observation of one URL at one moment. Canonical text is the only
// wire/storage form; the record hash and the node signature are both
// defined over it.

package record

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

// HeaderWhitelist is the fixed set of response header names a record may
// carry. Anything outside this set is dropped by the fetcher before a
// record is built — the canonical form has no room for arbitrary headers.
var HeaderWhitelist = map[string]bool{
	"content-type":     true,
	"content-language": true,
	"last-modified":    true,
	"etag":             true,
	"cache-control":    true,
	"expires":          true,
	"server":           true,
	"x-robots-tag":     true,
}

var (
	ErrStatusCodeRange   = errors.New("record: status_code out of [100,599]")
	ErrNodeIDMismatch    = errors.New("record: node_id does not match signing key")
	ErrSignatureInvalid  = errors.New("record: node_signature does not verify")
	ErrHeaderNotAllowed  = errors.New("record: header name not in whitelist")
	ErrHeadersOutOfOrder = errors.New("record: header lines not sorted by name")
	ErrLinksOutOfOrder   = errors.New("record: link lines not sorted/deduplicated")
)

const Version = "1"

// ObservationRecord represents one observation of one URL by one node.
type ObservationRecord struct {
	RecordVersion string
	ObservedAt    time.Time // second precision, UTC
	URL           string
	FinalURL      string
	StatusCode    int
	FetchMS       int
	ContentHash   string // 64-hex
	Headers       map[string]string
	Canonical     string // directive:canonical
	RobotsMeta    string // directive:robots_meta
	RobotsHeader  string // directive:robots_header
	Links         []string
	NodeID        string // 64-hex = SHA-256(pubkey)
	NodeSignature string // base64, empty until signed
}

// buildWriter assembles the canonical field table through node_id, the
// single source for both the hashed/signed prefix and the full text.
func (r *ObservationRecord) buildWriter() (*codec.Writer, error) {
	if err := r.validateShape(); err != nil {
		return nil, err
	}

	w := codec.NewWriter()
	w.Field("version", r.RecordVersion)
	w.Field("observed_at", r.ObservedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	w.Field("url", r.URL)
	w.Field("final_url", r.FinalURL)
	w.Field("status_code", strconv.Itoa(r.StatusCode))
	w.Field("fetch_ms", strconv.Itoa(r.FetchMS))
	w.Field("content_hash", r.ContentHash)

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w.Raw("header:" + name + ":" + r.Headers[name])
	}

	w.Raw("directive:canonical:" + r.Canonical)
	w.Raw("directive:robots_meta:" + r.RobotsMeta)
	w.Raw("directive:robots_header:" + r.RobotsHeader)

	links := dedupeSorted(r.Links)
	for _, l := range links {
		w.Raw("link:" + l)
	}

	w.Field("node_id", r.NodeID)
	return w, nil
}

// emitUnsigned writes every field through node_id, the exact bytes that
// are hashed and signed. It never writes node_signature.
func (r *ObservationRecord) emitUnsigned() ([]byte, error) {
	w, err := r.buildWriter()
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (r *ObservationRecord) validateShape() error {
	if !codec.IsLowerHex64(r.ContentHash) {
		return fmt.Errorf("%w: content_hash", codec.ErrInvalidHex)
	}
	if r.StatusCode < 100 || r.StatusCode > 599 {
		return ErrStatusCodeRange
	}
	if !codec.IsLowerHex64(r.NodeID) {
		return fmt.Errorf("%w: node_id", codec.ErrInvalidHex)
	}
	for name := range r.Headers {
		if !HeaderWhitelist[name] {
			return fmt.Errorf("%w: %q", ErrHeaderNotAllowed, name)
		}
	}
	return nil
}

func dedupeSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Hash returns the record hash: SHA-256 of the canonical text up to and
// including the node_id line.
func (r *ObservationRecord) Hash() (string, error) {
	unsigned, err := r.emitUnsigned()
	if err != nil {
		return "", err
	}
	return crypto.Sum256Hex(unsigned), nil
}

// Sign computes node_id from priv's public half (if empty) and signs the
// canonical unsigned bytes, filling in NodeSignature.
func (r *ObservationRecord) Sign(priv ed25519.PrivateKey) error {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return errors.New("record: private key has no ed25519 public half")
	}
	expectedID := crypto.NodeID(pub)
	if r.NodeID == "" {
		r.NodeID = expectedID
	} else if r.NodeID != expectedID {
		return ErrNodeIDMismatch
	}

	unsigned, err := r.emitUnsigned()
	if err != nil {
		return err
	}
	sig := crypto.Sign(priv, unsigned)
	r.NodeSignature = crypto.EncodeSignature(sig)
	return nil
}

// Emit renders the full canonical text, including node_signature.
func (r *ObservationRecord) Emit() ([]byte, error) {
	if r.NodeSignature == "" {
		return nil, errors.New("record: not signed")
	}
	w, err := r.buildWriter()
	if err != nil {
		return nil, err
	}
	w.Field("node_signature", r.NodeSignature)
	return w.Bytes(), nil
}

// Verify checks content_hash shape, status_code range, node_id-matches-key,
// and the Ed25519 signature, using pub as the claimed signing key.
func (r *ObservationRecord) Verify(pub ed25519.PublicKey) error {
	if err := r.validateShape(); err != nil {
		return err
	}
	if crypto.NodeID(pub) != r.NodeID {
		return ErrNodeIDMismatch
	}
	unsigned, err := r.emitUnsigned()
	if err != nil {
		return err
	}
	sig, err := crypto.DecodeSignature(r.NodeSignature)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if !crypto.Verify(pub, unsigned, sig) {
		return ErrSignatureInvalid
	}
	return nil
}

// Parse reads a full canonical ObservationRecord, including its
// signature line when present, enforcing strict field order throughout.
func Parse(data []byte) (*ObservationRecord, error) {
	r := codec.NewReader(data)
	rec := &ObservationRecord{Headers: make(map[string]string)}

	var err error
	if rec.RecordVersion, err = r.ExpectField("version"); err != nil {
		return nil, err
	}

	observedAtStr, err := r.ExpectField("observed_at")
	if err != nil {
		return nil, err
	}
	rec.ObservedAt, err = time.Parse(time.RFC3339, observedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: observed_at: %v", codec.ErrInvalidCanonicalForm, err)
	}

	if rec.URL, err = r.ExpectField("url"); err != nil {
		return nil, err
	}
	if rec.FinalURL, err = r.ExpectField("final_url"); err != nil {
		return nil, err
	}

	statusStr, err := r.ExpectField("status_code")
	if err != nil {
		return nil, err
	}
	rec.StatusCode, err = strconv.Atoi(statusStr)
	if err != nil {
		return nil, fmt.Errorf("%w: status_code: %v", codec.ErrInvalidCanonicalForm, err)
	}

	fetchStr, err := r.ExpectField("fetch_ms")
	if err != nil {
		return nil, err
	}
	rec.FetchMS, err = strconv.Atoi(fetchStr)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch_ms: %v", codec.ErrInvalidCanonicalForm, err)
	}

	if rec.ContentHash, err = r.ExpectField("content_hash"); err != nil {
		return nil, err
	}

	var lastHeaderName string
	for _, line := range r.TakeWhilePrefix("header:") {
		rest := strings.TrimPrefix(line, "header:")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: malformed header line %q", codec.ErrInvalidCanonicalForm, line)
		}
		name, value := parts[0], parts[1]
		if !HeaderWhitelist[name] {
			return nil, fmt.Errorf("%w: %q", ErrHeaderNotAllowed, name)
		}
		if lastHeaderName != "" && name <= lastHeaderName {
			return nil, ErrHeadersOutOfOrder
		}
		lastHeaderName = name
		rec.Headers[name] = value
	}

	canonicalLine, ok := r.Next()
	if !ok || !strings.HasPrefix(canonicalLine, "directive:canonical:") {
		return nil, fmt.Errorf("%w: missing directive:canonical", codec.ErrInvalidCanonicalForm)
	}
	rec.Canonical = strings.TrimPrefix(canonicalLine, "directive:canonical:")

	metaLine, ok := r.Next()
	if !ok || !strings.HasPrefix(metaLine, "directive:robots_meta:") {
		return nil, fmt.Errorf("%w: missing directive:robots_meta", codec.ErrInvalidCanonicalForm)
	}
	rec.RobotsMeta = strings.TrimPrefix(metaLine, "directive:robots_meta:")

	headerDirLine, ok := r.Next()
	if !ok || !strings.HasPrefix(headerDirLine, "directive:robots_header:") {
		return nil, fmt.Errorf("%w: missing directive:robots_header", codec.ErrInvalidCanonicalForm)
	}
	rec.RobotsHeader = strings.TrimPrefix(headerDirLine, "directive:robots_header:")

	var lastLink string
	for _, line := range r.TakeWhilePrefix("link:") {
		link := strings.TrimPrefix(line, "link:")
		if lastLink != "" && link <= lastLink {
			return nil, ErrLinksOutOfOrder
		}
		lastLink = link
		rec.Links = append(rec.Links, link)
	}

	if rec.NodeID, err = r.ExpectField("node_id"); err != nil {
		return nil, err
	}

	sigLine, hasSig := r.Next()
	if hasSig {
		if !strings.HasPrefix(sigLine, "node_signature:") {
			return nil, fmt.Errorf("%w: expected node_signature, got %q", codec.ErrInvalidCanonicalForm, sigLine)
		}
		rec.NodeSignature = strings.TrimPrefix(sigLine, "node_signature:")
	}

	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after record", codec.ErrInvalidCanonicalForm)
	}

	return rec, nil
}
