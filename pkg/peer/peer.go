// Copyright 2025 Truthcrawl Project
//
// Package peer implements PeerInfo and the directory-backed PeerRegistry
// a node consults to find other operators to sync batches with. The
// registry is a read-only view over files on disk: list operations take
// no locks and must tolerate another process creating a peer file
// concurrently (a transient ENOENT mid-scan is skipped, not fatal).

package peer

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/crypto"
)

// Info is one peer's directory entry: its node_id, HTTP endpoint, and
// Ed25519 public key.
type Info struct {
	NodeID      string
	EndpointURL string
	PublicKey   ed25519.PublicKey
}

// Emit renders the peer entry as canonical text.
func (p *Info) Emit() []byte {
	w := codec.NewWriter()
	w.Field("node_id", p.NodeID)
	w.Field("endpoint_url", p.EndpointURL)
	w.Field("public_key", crypto.EncodeKey(p.PublicKey))
	return w.Bytes()
}

// Parse reads a PeerInfo entry.
func Parse(data []byte) (*Info, error) {
	r := codec.NewReader(data)
	p := &Info{}

	var err error
	if p.NodeID, err = r.ExpectField("node_id"); err != nil {
		return nil, err
	}
	if !codec.IsLowerHex64(p.NodeID) {
		return nil, fmt.Errorf("%w: node_id", codec.ErrInvalidHex)
	}
	if p.EndpointURL, err = r.ExpectField("endpoint_url"); err != nil {
		return nil, err
	}
	pubStr, err := r.ExpectField("public_key")
	if err != nil {
		return nil, err
	}
	pubBytes, err := crypto.DecodeKey(pubStr)
	if err != nil {
		return nil, fmt.Errorf("peer: public_key: %w", err)
	}
	if len(pubBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public_key: expected %d bytes, got %d", codec.ErrInvalidCanonicalForm, ed25519.PublicKeySize, len(pubBytes))
	}
	p.PublicKey = ed25519.PublicKey(pubBytes)
	if crypto.NodeID(p.PublicKey) != p.NodeID {
		return nil, fmt.Errorf("peer: node_id does not match public_key fingerprint")
	}
	if !r.Done() {
		return nil, fmt.Errorf("%w: trailing data after peer info", codec.ErrInvalidCanonicalForm)
	}
	return p, nil
}

// Registry is a directory of known peers at <dir>/<nodeId>.txt. Add
// registers a new peer; List and Get are read-only and tolerate
// concurrent writers.
type Registry struct {
	dir string
}

// NewRegistry returns a registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Add writes info under its node_id, overwriting any previous entry —
// an operator may republish a peer under a new endpoint_url.
func (r *Registry) Add(info *Info) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("peer: mkdir: %w", err)
	}
	path := filepath.Join(r.dir, info.NodeID+".txt")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, info.Emit(), 0o644); err != nil {
		return fmt.Errorf("peer: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("peer: rename into place: %w", err)
	}
	return nil
}

// Get reads back one peer by node_id. A missing file is reported as a
// plain (nil, nil) absence rather than an error, matching the "tolerate
// concurrent creation" policy: a caller racing a writer simply sees the
// peer on its next List/Get.
func (r *Registry) Get(nodeID string) (*Info, error) {
	path := filepath.Join(r.dir, nodeID+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("peer: read %s: %w", path, err)
	}
	return Parse(data)
}

// List returns every peer currently on disk, sorted by node_id. Entries
// that vanish between the directory scan and the read (a concurrent
// peer removal, which this system never does, or a partial write caught
// mid-rename) are skipped rather than failing the whole call.
func (r *Registry) List() ([]*Info, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("peer: read dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".txt"))
	}
	sort.Strings(ids)

	out := make([]*Info, 0, len(ids))
	for _, id := range ids {
		info, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if info == nil {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}
