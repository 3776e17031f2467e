// Copyright 2025 Truthcrawl Project
//
// Package server implements the peer-facing HTTP API (spec.md §6): a
// dumb transport over already-canonical blobs. Handlers never interpret
// batch or record bytes beyond locating the right file — verification is
// the caller's job (pkg/batch, pkg/verify).

package server

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/truthcrawl/node/pkg/codec"
	"github.com/truthcrawl/node/pkg/metrics"
	"github.com/truthcrawl/node/pkg/store"
)

// Server serves the node's public HTTP API: node descriptor, batch
// listing and file retrieval, and record retrieval by hash.
type Server struct {
	NodeID    string
	ChainDir  string
	Store     *store.RecordStore
	logger    *log.Logger
}

// New returns a server for the node identified by nodeID, reading
// batches from chainDir and records from s.
func New(nodeID, chainDir string, s *store.RecordStore) *Server {
	return &Server{
		NodeID:   nodeID,
		ChainDir: chainDir,
		Store:    s,
		logger:   log.New(os.Stdout, "[server] ", log.LstdFlags),
	}
}

// Handler returns the net/http.Handler implementing every endpoint in
// spec.md §6, plus a /metrics endpoint for the Prometheus scraper.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/batches", s.handleBatches)
	mux.HandleFunc("/batches/", s.handleBatchFile)
	mux.HandleFunc("/records/", s.handleRecord)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	wr := codec.NewWriter()
	wr.Field("node_id", s.NodeID)
	wr.Field("version", "1")
	writeCanonical(w, wr.Bytes())
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.ChainDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeCanonical(w, []byte{})
			return
		}
		s.logger.Printf("read chain dir: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "batch-") {
			continue
		}
		ids = append(ids, strings.TrimPrefix(e.Name(), "batch-"))
	}
	sort.Strings(ids)

	wr := codec.NewWriter()
	for _, id := range ids {
		wr.Raw(id)
	}
	writeCanonical(w, wr.Bytes())
}

// handleBatchFile serves /batches/<id>/manifest, /chain-link, and
// /signature as the raw canonical bytes on disk.
func (s *Server) handleBatchFile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/batches/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	batchID, which := parts[0], parts[1]

	var filename string
	switch which {
	case "manifest":
		filename = "manifest.txt"
	case "chain-link":
		filename = "chain-link.txt"
	case "metadata":
		filename = "metadata.txt"
	case "signature":
		filename = "signature.txt"
	default:
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.ChainDir, "batch-"+batchID, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		s.logger.Printf("read %s: %v", path, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeCanonical(w, data)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	hash := strings.TrimPrefix(r.URL.Path, "/records/")
	if !codec.IsLowerHex64(hash) {
		http.NotFound(w, r)
		return
	}

	rec, err := s.Store.Load(hash)
	if err != nil {
		if err == store.ErrNotFound {
			http.NotFound(w, r)
			return
		}
		s.logger.Printf("load record %s: %v", hash, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data, err := rec.Emit()
	if err != nil {
		s.logger.Printf("emit record %s: %v", hash, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	metrics.RecordsServed.Inc()
	writeCanonical(w, data)
}

func writeCanonical(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
