// Copyright 2025 Truthcrawl Project

package server

import (
	"crypto/ed25519"
	"net/http"

	"github.com/truthcrawl/node/pkg/crypto"
)

// RequestSigner signs outgoing peer requests so the receiving node can
// treat the caller's identity as advisory (servers are not required to
// reject an unsigned or misidentified request — the scheme exists for
// peer bookkeeping, not authorization).
type RequestSigner struct {
	NodeID string
	priv   ed25519.PrivateKey
}

// NewRequestSigner returns a signer for the node owning priv.
func NewRequestSigner(priv ed25519.PrivateKey) *RequestSigner {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return &RequestSigner{priv: priv}
	}
	return &RequestSigner{NodeID: crypto.NodeID(pub), priv: priv}
}

func signingMessage(method, path, timestamp string) []byte {
	return []byte(method + " " + path + " " + timestamp)
}

// Sign returns the X-Node-Id and X-Signature header values for a request
// with the given method, path, and timestamp.
func (s *RequestSigner) Sign(method, path, timestamp string) (nodeID, signature string) {
	sig := crypto.Sign(s.priv, signingMessage(method, path, timestamp))
	return s.NodeID, crypto.EncodeSignature(sig)
}

// Attach sets the signature headers on an outgoing request, signing
// with the caller-supplied timestamp.
func (s *RequestSigner) Attach(req *http.Request, timestamp string) {
	nodeID, sig := s.Sign(req.Method, req.URL.Path, timestamp)
	req.Header.Set("X-Node-Id", nodeID)
	req.Header.Set("X-Signature", sig)
	req.Header.Set("X-Timestamp", timestamp)
}

// VerifyRequestSignature checks a request's X-Node-Id/X-Signature
// headers under pub. Servers treat a failure as advisory (spec.md §6):
// callers decide whether to reject or merely log on error.
func VerifyRequestSignature(r *http.Request, pub ed25519.PublicKey) error {
	nodeID := r.Header.Get("X-Node-Id")
	sigStr := r.Header.Get("X-Signature")
	timestamp := r.Header.Get("X-Timestamp")

	if crypto.NodeID(pub) != nodeID {
		return errRequestSignature("node_id does not match supplied key")
	}
	sig, err := crypto.DecodeSignature(sigStr)
	if err != nil {
		return errRequestSignature(err.Error())
	}
	if !crypto.Verify(pub, signingMessage(r.Method, r.URL.Path, timestamp), sig) {
		return errRequestSignature("signature does not verify")
	}
	return nil
}

type requestSignatureError struct{ detail string }

func (e *requestSignatureError) Error() string { return "server: " + e.detail }

func errRequestSignature(detail string) error { return &requestSignatureError{detail: detail} }
