// Copyright 2025 Truthcrawl Project
//
// Package config loads the node daemon's settings from environment
// variables, following the teacher's field-by-field os.Getenv/strconv
// pattern: one Config struct, populated once at startup, with a
// documented default for every field.

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/truthcrawl/node/pkg/verify"
)

// Config holds every setting the node daemon needs at startup.
type Config struct {
	// DataDir is the node's data directory, holding keys/, store/,
	// batches/, timestamps/, peers/, profiles/, verification/, and
	// urls.txt.
	DataDir string

	// Port is the HTTP API listen port.
	Port int

	// SyncIntervalSeconds is how often the sync loop polls peers for new
	// batches.
	SyncIntervalSeconds int

	// CrawlIntervalSeconds is how often the crawl loop fetches every URL in
	// urls.txt.
	CrawlIntervalSeconds int

	// SampleSize overrides the verification sampler's default maxSample
	// (spec.md Open Question (b): exposed, not hardcoded).
	SampleSize int

	// HTTPTimeoutSeconds bounds every outbound HTTP request (fetcher
	// and peer client) so a slow or hung peer cannot stall a loop
	// indefinitely.
	HTTPTimeoutSeconds int
}

const (
	defaultPort               = 8080
	defaultSyncIntervalSecs   = 300
	defaultCrawlIntervalSecs  = 3600
	defaultHTTPTimeoutSeconds = 30
)

// Load populates a Config from the TRUTHCRAWL_* environment variables,
// falling back to documented defaults for anything unset.
func Load() (*Config, error) {
	dataDir := os.Getenv("TRUTHCRAWL_DATA")
	if dataDir == "" {
		dataDir = "./data"
	}

	port, err := getenvInt("TRUTHCRAWL_PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	syncInterval, err := getenvInt("TRUTHCRAWL_SYNC_INTERVAL", defaultSyncIntervalSecs)
	if err != nil {
		return nil, err
	}
	crawlInterval, err := getenvInt("TRUTHCRAWL_CRAWL_INTERVAL", defaultCrawlIntervalSecs)
	if err != nil {
		return nil, err
	}
	sampleSize, err := getenvInt("TRUTHCRAWL_SAMPLE_SIZE", verify.DefaultSampleSize)
	if err != nil {
		return nil, err
	}

	return &Config{
		DataDir:              dataDir,
		Port:                 port,
		SyncIntervalSeconds:  syncInterval,
		CrawlIntervalSeconds: crawlInterval,
		SampleSize:           sampleSize,
		HTTPTimeoutSeconds:   defaultHTTPTimeoutSeconds,
	}, nil
}

func getenvInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return n, nil
}
