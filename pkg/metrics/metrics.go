// Copyright 2025 Truthcrawl Project
//
// Package metrics instruments the node daemon's loops the way the
// teacher instruments its validator loops: package-level Prometheus
// counters and gauges, registered on the default registry and scraped
// via promhttp on /metrics.

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RecordsStored counts records the crawl loop stores successfully;
	// records stored by the importer are not counted.
	RecordsStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_records_stored_total",
		Help: "Observation records written to the local record store.",
	})

	// RecordsServed counts records served over the peer HTTP API.
	RecordsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_records_served_total",
		Help: "Observation records served via GET /records/<hash>.",
	})

	// BatchesPublished counts chain links this node has published.
	BatchesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_batches_published_total",
		Help: "Batches published to this node's chain.",
	})

	// SyncCycles counts completed sync-loop iterations.
	SyncCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_sync_cycles_total",
		Help: "Sync loop iterations completed.",
	})

	// CrawlCycles counts completed crawl-loop iterations.
	CrawlCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_crawl_cycles_total",
		Help: "Crawl loop iterations completed.",
	})

	// DisputesFiled counts disputes this node has filed against peers.
	DisputesFiled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "truthcrawl_disputes_filed_total",
		Help: "Disputes filed by this node.",
	})

	// LoopErrors counts errors caught and logged per iteration by
	// either periodic loop — a single bad peer or malformed URL never
	// stops the loop, but it is worth seeing the rate.
	LoopErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "truthcrawl_loop_errors_total",
		Help: "Errors caught per loop iteration, by loop name.",
	}, []string{"loop"})

	// StoreSize is the current record count in the local store.
	StoreSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "truthcrawl_store_size",
		Help: "Number of records currently in the local record store.",
	})

	// ChainHeight is the number of batches published in this node's
	// chain (0 before the first publish).
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "truthcrawl_chain_height",
		Help: "Number of batches published in this node's chain.",
	})
)

func init() {
	prometheus.MustRegister(
		RecordsStored,
		RecordsServed,
		BatchesPublished,
		SyncCycles,
		CrawlCycles,
		DisputesFiled,
		LoopErrors,
		StoreSize,
		ChainHeight,
	)
}
