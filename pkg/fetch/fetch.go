// Copyright 2025 Truthcrawl Project
//
// Package fetch is the thin HTTP collaborator spec.md treats as external
// and out of scope: it yields raw response bytes, status, and a filtered
// set of response headers, and nothing more. It does not know about
// ObservationRecord, canonical text, or signing — the crawl loop (pkg
// daemon) turns a Result into a record.ObservationRecord.

package fetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/truthcrawl/node/pkg/record"
)

// Result is one fetch's raw outcome.
type Result struct {
	FinalURL    string
	StatusCode  int
	FetchMS     int
	Body        []byte
	Headers     map[string]string // filtered to record.HeaderWhitelist
	RobotsMeta  string
	RobotsHeader string
}

// Client fetches URLs over HTTP with a bounded timeout, matching the
// 30-second cap spec.md §5 calls for on every in-flight request.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a client whose requests are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Fetch retrieves url and returns its raw outcome. robots_header is
// populated from the X-Robots-Tag response header; robots_meta is left
// for the caller, since it requires parsing the response body's <meta>
// tags, which this collaborator does not do.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	headers := make(map[string]string)
	for name := range record.HeaderWhitelist {
		if v := resp.Header.Get(name); v != "" {
			headers[name] = v
		}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		FinalURL:     finalURL,
		StatusCode:   resp.StatusCode,
		FetchMS:      int(elapsed.Milliseconds()),
		Body:         body,
		Headers:      headers,
		RobotsHeader: resp.Header.Get("x-robots-tag"),
	}, nil
}
