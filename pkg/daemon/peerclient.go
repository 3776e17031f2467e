// Copyright 2025 Truthcrawl Project

package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PeerClient is the dumb transport the sync loop uses to pull
// already-canonical blobs from a peer's HTTP API (spec.md §6). It never
// interprets the bytes it fetches — that is left to pkg/batch, pkg/export.
type PeerClient struct {
	HTTP *http.Client
}

// NewPeerClient returns a client whose requests are bounded by timeout.
func NewPeerClient(timeout time.Duration) *PeerClient {
	return &PeerClient{HTTP: &http.Client{Timeout: timeout}}
}

func (c *PeerClient) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	url := strings.TrimSuffix(endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("peerclient: %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ListBatches fetches GET /batches from endpoint: one batch_id per line.
func (c *PeerClient) ListBatches(ctx context.Context, endpoint string) ([]string, error) {
	data, err := c.get(ctx, endpoint, "/batches")
	if err != nil {
		return nil, err
	}
	s := strings.TrimSuffix(string(data), "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

// FetchBatchFile fetches one of /batches/<id>/{manifest,chain-link,metadata,signature}.
func (c *PeerClient) FetchBatchFile(ctx context.Context, endpoint, batchID, which string) ([]byte, error) {
	return c.get(ctx, endpoint, "/batches/"+batchID+"/"+which)
}

// FetchRecord fetches GET /records/<hash>.
func (c *PeerClient) FetchRecord(ctx context.Context, endpoint, hash string) ([]byte, error) {
	return c.get(ctx, endpoint, "/records/"+hash)
}
