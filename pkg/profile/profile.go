// Copyright 2025 Truthcrawl Project
//
// Package profile implements NodeProfile: an operator's signed
// registration (identity, contact, public key) optionally paired with a
// CrawlAttestation binding that operator's node_id to the set of domains
// it attests to crawling.

package profile

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

var (
	ErrSignatureInvalid  = errors.New("profile: registration_signature does not verify")
	ErrAttestationNodeID = errors.New("profile: attestation node_id does not match registration")
)

// Registration is an operator's signed identity claim.
type Registration struct {
	OperatorName           string
	Organization           string
	ContactEmail           string
	PublicKey              ed25519.PublicKey
	RegisteredAt           time.Time
	RegistrationSignature  string // base64, empty until signed
}

// NodeID returns SHA-256(public key) — the fingerprint this
// registration asserts.
func (r *Registration) NodeID() string {
	return crypto.NodeID(r.PublicKey)
}

func (r *Registration) emitUnsigned() *codec.Writer {
	w := codec.NewWriter()
	w.Field("operator_name", r.OperatorName)
	w.Field("organization", r.Organization)
	w.Field("contact_email", r.ContactEmail)
	w.Field("public_key", crypto.EncodeKey(r.PublicKey))
	w.Field("registered_at", r.RegisteredAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	return w
}

// Sign signs the canonical text minus the signature line with priv,
// which must be the private half of r.PublicKey.
func (r *Registration) Sign(priv ed25519.PrivateKey) error {
	sig := crypto.Sign(priv, r.emitUnsigned().Bytes())
	r.RegistrationSignature = crypto.EncodeSignature(sig)
	return nil
}

// Verify checks registration_signature over the canonical text minus
// the signature line, under r.PublicKey.
func (r *Registration) Verify() error {
	sig, err := crypto.DecodeSignature(r.RegistrationSignature)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if !crypto.Verify(r.PublicKey, r.emitUnsigned().Bytes(), sig) {
		return ErrSignatureInvalid
	}
	return nil
}

func (r *Registration) emit() []byte {
	w := r.emitUnsigned()
	w.Field("registration_signature", r.RegistrationSignature)
	return w.Bytes()
}

func parseRegistration(r *codec.Reader) (*Registration, error) {
	reg := &Registration{}
	var err error
	if reg.OperatorName, err = r.ExpectField("operator_name"); err != nil {
		return nil, err
	}
	if reg.Organization, err = r.ExpectField("organization"); err != nil {
		return nil, err
	}
	if reg.ContactEmail, err = r.ExpectField("contact_email"); err != nil {
		return nil, err
	}
	pubStr, err := r.ExpectField("public_key")
	if err != nil {
		return nil, err
	}
	pubBytes, err := crypto.DecodeKey(pubStr)
	if err != nil {
		return nil, fmt.Errorf("profile: public_key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public_key: expected %d bytes, got %d", codec.ErrInvalidCanonicalForm, ed25519.PublicKeySize, len(pubBytes))
	}
	reg.PublicKey = ed25519.PublicKey(pubBytes)

	registeredAtStr, err := r.ExpectField("registered_at")
	if err != nil {
		return nil, err
	}
	reg.RegisteredAt, err = time.Parse(time.RFC3339, registeredAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: registered_at: %v", codec.ErrInvalidCanonicalForm, err)
	}
	if reg.RegistrationSignature, err = r.ExpectField("registration_signature"); err != nil {
		return nil, err
	}
	return reg, nil
}

// Attestation binds a node_id to the set of domains it attests to
// crawling, as of attested_at.
type Attestation struct {
	NodeID              string
	AttestedAt          time.Time
	Domains             []string
	AttestationSignature string // base64, empty until signed
}

func (a *Attestation) emitUnsigned() *codec.Writer {
	w := codec.NewWriter()
	w.Field("node_id", a.NodeID)
	w.Field("attested_at", a.AttestedAt.UTC().Truncate(time.Second).Format(time.RFC3339))
	domains := append([]string(nil), a.Domains...)
	sort.Strings(domains)
	for _, d := range domains {
		w.Raw("domain:" + d)
	}
	return w
}

// Sign signs the canonical text minus the signature line.
func (a *Attestation) Sign(priv ed25519.PrivateKey) error {
	sig := crypto.Sign(priv, a.emitUnsigned().Bytes())
	a.AttestationSignature = crypto.EncodeSignature(sig)
	return nil
}

// Verify checks attestation_signature under pub.
func (a *Attestation) Verify(pub ed25519.PublicKey) error {
	sig, err := crypto.DecodeSignature(a.AttestationSignature)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if !crypto.Verify(pub, a.emitUnsigned().Bytes(), sig) {
		return ErrSignatureInvalid
	}
	return nil
}

func (a *Attestation) emit() []byte {
	w := a.emitUnsigned()
	w.Field("attestation_signature", a.AttestationSignature)
	return w.Bytes()
}

func parseAttestation(r *codec.Reader) (*Attestation, error) {
	a := &Attestation{}
	var err error
	if a.NodeID, err = r.ExpectField("node_id"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(a.NodeID) {
		return nil, fmt.Errorf("%w: node_id", codec.ErrInvalidHex)
	}
	attestedAtStr, err := r.ExpectField("attested_at")
	if err != nil {
		return nil, err
	}
	a.AttestedAt, err = time.Parse(time.RFC3339, attestedAtStr)
	if err != nil {
		return nil, fmt.Errorf("%w: attested_at: %v", codec.ErrInvalidCanonicalForm, err)
	}
	for _, line := range r.TakeWhilePrefix("domain:") {
		a.Domains = append(a.Domains, line[len("domain:"):])
	}
	if a.AttestationSignature, err = r.ExpectField("attestation_signature"); err != nil {
		return nil, err
	}
	return a, nil
}

// Profile is a node's registration optionally paired with a crawl
// attestation.
type Profile struct {
	Registration *Registration
	Attestation  *Attestation // nil if the node has not yet attested
}

// Validate checks the registration signature and, if present, that the
// attestation's node_id matches the registration's and its signature
// verifies.
func (p *Profile) Validate() error {
	if err := p.Registration.Verify(); err != nil {
		return err
	}
	if p.Attestation == nil {
		return nil
	}
	if p.Attestation.NodeID != p.Registration.NodeID() {
		return ErrAttestationNodeID
	}
	return p.Attestation.Verify(p.Registration.PublicKey)
}

// Emit renders the profile as canonical text: the registration, then
// (if present) the attestation.
func (p *Profile) Emit() []byte {
	out := p.Registration.emit()
	if p.Attestation != nil {
		out = append(out, p.Attestation.emit()...)
	}
	return out
}

// Parse reads a registration optionally followed by an attestation.
func Parse(data []byte) (*Profile, error) {
	r := codec.NewReader(data)
	reg, err := parseRegistration(r)
	if err != nil {
		return nil, err
	}
	p := &Profile{Registration: reg}
	if !r.Done() {
		att, err := parseAttestation(r)
		if err != nil {
			return nil, err
		}
		p.Attestation = att
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after profile", codec.ErrInvalidCanonicalForm)
	}
	return p, nil
}
