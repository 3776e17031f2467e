// Copyright 2025 Truthcrawl Project
//
// Package daemon implements the node long-running shell (C13): the
// crawl loop (fetch every URL, sign and store an observation), the sync
// loop (pull unseen batches from known peers and import them), and the
// HTTP API server, all sharing one RecordStore, one PeerRegistry, and
// one batches directory, per spec.md §5.

package daemon

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/truthcrawl/node/pkg/batch"
	"github.com/truthcrawl/node/pkg/config"
	"github.com/truthcrawl/node/pkg/crypto"
	"github.com/truthcrawl/node/pkg/export"
	"github.com/truthcrawl/node/pkg/fetch"
	"github.com/truthcrawl/node/pkg/metrics"
	"github.com/truthcrawl/node/pkg/peer"
	"github.com/truthcrawl/node/pkg/record"
	"github.com/truthcrawl/node/pkg/server"
	"github.com/truthcrawl/node/pkg/store"
	"github.com/truthcrawl/node/pkg/verify"
)

// Node owns every shared resource the three concurrent activities
// (HTTP handler pool, sync loop, crawl loop) read and write.
type Node struct {
	Cfg    *config.Config
	Pub    ed25519.PublicKey
	Priv   ed25519.PrivateKey
	NodeID string

	Store    *store.RecordStore
	Peers    *peer.Registry
	ChainDir string

	publisher *batch.Publisher
	// publishMu serializes "scan latest root + write new batch" so a
	// publisher never races itself into two links with the same
	// previous_root (spec.md §5).
	publishMu sync.Mutex

	fetchClient *fetch.Client
	peerClient  *PeerClient

	crawlLog *log.Logger
	syncLog  *log.Logger
}

// New wires up a Node rooted at cfg.DataDir.
func New(cfg *config.Config) (*Node, error) {
	pub, priv, err := LoadOrCreateKey(filepath.Join(cfg.DataDir, "keys"))
	if err != nil {
		return nil, err
	}
	chainDir := filepath.Join(cfg.DataDir, "batches")
	timeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	return &Node{
		Cfg:         cfg,
		Pub:         pub,
		Priv:        priv,
		NodeID:      crypto.NodeID(pub),
		Store:       store.New(filepath.Join(cfg.DataDir, "store")),
		Peers:       peer.NewRegistry(filepath.Join(cfg.DataDir, "peers")),
		ChainDir:    chainDir,
		publisher:   batch.NewPublisher(chainDir, priv),
		fetchClient: fetch.NewClient(timeout),
		peerClient:  NewPeerClient(timeout),
		crawlLog:    log.New(os.Stdout, "[crawl] ", log.LstdFlags),
		syncLog:     log.New(os.Stdout, "[sync] ", log.LstdFlags),
	}, nil
}

// Serve starts the HTTP API and blocks until ctx is cancelled.
func (n *Node) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(n.Cfg.Port),
		Handler: server.New(n.NodeID, n.ChainDir, n.Store).Handler(),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// RunCrawlLoop runs CrawlOnce every CrawlIntervalSeconds until ctx is
// cancelled. It stops at the next sleep boundary on cancellation
// (spec.md §5); a single bad URL never aborts the cycle.
func (n *Node) RunCrawlLoop(ctx context.Context) {
	interval := time.Duration(n.Cfg.CrawlIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := n.CrawlOnce(ctx); err != nil {
			metrics.LoopErrors.WithLabelValues("crawl").Inc()
			n.crawlLog.Printf("crawl cycle: %v", err)
		}
		metrics.CrawlCycles.Inc()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunSyncLoop runs SyncOnce every SyncIntervalSeconds until ctx is
// cancelled.
func (n *Node) RunSyncLoop(ctx context.Context) {
	interval := time.Duration(n.Cfg.SyncIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := n.SyncOnce(ctx); err != nil {
			metrics.LoopErrors.WithLabelValues("sync").Inc()
			n.syncLog.Printf("sync cycle: %v", err)
		}
		metrics.SyncCycles.Inc()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// readURLs reads one URL per line from <dataDir>/urls.txt, skipping
// blank lines and lines starting with '#'.
func (n *Node) readURLs() ([]string, error) {
	path := filepath.Join(n.Cfg.DataDir, "urls.txt")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daemon: read urls.txt: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

// CrawlOnce fetches every URL in urls.txt, signs and stores an
// ObservationRecord for each successful fetch, then publishes the
// cycle's records as one new chain-linked batch. A fetch failure for
// one URL is logged and skipped; it does not abort the cycle.
func (n *Node) CrawlOnce(ctx context.Context) error {
	urls, err := n.readURLs()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}

	var hashes []string
	for _, url := range urls {
		hash, err := n.crawlOne(ctx, url)
		if err != nil {
			metrics.LoopErrors.WithLabelValues("crawl").Inc()
			n.crawlLog.Printf("fetch %s: %v", url, err)
			continue
		}
		hashes = append(hashes, hash)
	}
	if len(hashes) == 0 {
		return nil
	}

	return n.publishBatch(hashes)
}

func (n *Node) crawlOne(ctx context.Context, url string) (string, error) {
	res, err := n.fetchClient.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	rec := &record.ObservationRecord{
		RecordVersion: record.Version,
		ObservedAt:    time.Now().UTC(),
		URL:           url,
		FinalURL:      res.FinalURL,
		StatusCode:    res.StatusCode,
		FetchMS:       res.FetchMS,
		ContentHash:   crypto.Sum256Hex(res.Body),
		Headers:       res.Headers,
		RobotsHeader:  res.RobotsHeader,
	}
	if err := rec.Sign(n.Priv); err != nil {
		return "", fmt.Errorf("sign record: %w", err)
	}

	hash, err := n.Store.Store(rec)
	if err != nil {
		return "", fmt.Errorf("store record: %w", err)
	}
	metrics.RecordsStored.Inc()
	if size, err := n.Store.Size(); err == nil {
		metrics.StoreSize.Set(float64(size))
	}
	return hash, nil
}

// publishBatch serializes "scan latest root + write new batch" behind
// publishMu (spec.md §5): concurrent publishers for the same key are
// disallowed, but a single process's own crawl/API goroutines must not
// race each other into two links sharing one previous_root.
func (n *Node) publishBatch(hashes []string) error {
	n.publishMu.Lock()
	defer n.publishMu.Unlock()

	previousRoot, err := n.latestRoot()
	if err != nil {
		return fmt.Errorf("daemon: scan latest root: %w", err)
	}

	batchID, err := n.nextBatchID()
	if err != nil {
		return fmt.Errorf("daemon: choose batch id: %w", err)
	}

	manifest := &batch.Manifest{Hashes: hashes}
	link, err := batch.ChainLinkFromManifest(batchID, manifest, previousRoot)
	if err != nil {
		return fmt.Errorf("daemon: build chain link: %w", err)
	}
	if err := n.publisher.PublishChainLink(manifest, link); err != nil {
		return fmt.Errorf("daemon: publish chain link: %w", err)
	}

	metrics.BatchesPublished.Inc()
	if height, err := n.chainHeight(); err == nil {
		metrics.ChainHeight.Set(float64(height))
	}
	return nil
}

// latestRoot scans the chain directory for the highest-sequence batch
// id and returns its merkle_root, or the genesis root if the chain is
// empty.
func (n *Node) latestRoot() (string, error) {
	ids, err := n.batchIDs()
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return batch.GenesisRoot, nil
	}
	last := ids[len(ids)-1]
	data, err := os.ReadFile(filepath.Join(n.ChainDir, "batch-"+last, "chain-link.txt"))
	if err != nil {
		return "", fmt.Errorf("read chain-link.txt for %s: %w", last, err)
	}
	link, err := batch.ParseChainLink(data)
	if err != nil {
		return "", fmt.Errorf("parse chain-link.txt for %s: %w", last, err)
	}
	return link.MerkleRoot, nil
}

func (n *Node) chainHeight() (int, error) {
	ids, err := n.batchIDs()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// batchIDs returns every batch id on disk, sorted so the last element
// is the chain's current tail.
func (n *Node) batchIDs() ([]string, error) {
	entries, err := os.ReadDir(n.ChainDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "batch-") {
			ids = append(ids, strings.TrimPrefix(e.Name(), "batch-"))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// nextBatchID picks today's YYYY-MM-DD id, or the next -NNN sequence
// suffix if today's plain id is already taken.
func (n *Node) nextBatchID() (string, error) {
	today := time.Now().UTC().Format("2006-01-02")
	ids, err := n.batchIDs()
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(ids))
	for _, id := range ids {
		taken[id] = true
	}
	if !taken[today] {
		return today, nil
	}
	for seq := 1; seq < 1000; seq++ {
		candidate := fmt.Sprintf("%s-%03d", today, seq)
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("daemon: exhausted batch id sequence for %s", today)
}

// SyncOnce pulls and imports every batch a known peer has that this
// node does not, using that peer's published public key — taken from
// the peer registry entry, the only identity binding the sync loop
// trusts.
func (n *Node) SyncOnce(ctx context.Context) error {
	peers, err := n.Peers.List()
	if err != nil {
		return fmt.Errorf("daemon: list peers: %w", err)
	}

	known, err := n.batchIDs()
	if err != nil {
		return fmt.Errorf("daemon: list local batches: %w", err)
	}
	have := make(map[string]bool, len(known))
	for _, id := range known {
		have[id] = true
	}

	for _, p := range peers {
		if err := n.syncWithPeer(ctx, p, have); err != nil {
			metrics.LoopErrors.WithLabelValues("sync").Inc()
			n.syncLog.Printf("sync with peer %s: %v", p.NodeID, err)
		}
	}
	return nil
}

func (n *Node) syncWithPeer(ctx context.Context, p *peer.Info, have map[string]bool) error {
	remoteIDs, err := n.peerClient.ListBatches(ctx, p.EndpointURL)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}

	for _, id := range remoteIDs {
		if have[id] {
			continue
		}
		if err := n.importFromPeer(ctx, p, id); err != nil {
			n.syncLog.Printf("import batch %s from %s: %v", id, p.NodeID, err)
			continue
		}
		have[id] = true
	}
	return nil
}

// importFromPeer fetches one batch's files and every record its
// manifest names over HTTP, assembles them into a local bundle
// directory, and imports it exactly as a local export bundle would be.
func (n *Node) importFromPeer(ctx context.Context, p *peer.Info, batchID string) error {
	manifestData, err := n.peerClient.FetchBatchFile(ctx, p.EndpointURL, batchID, "manifest")
	if err != nil {
		return fmt.Errorf("fetch manifest: %w", err)
	}
	manifest, err := batch.ParseManifest(manifestData)
	if err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	sigData, err := n.peerClient.FetchBatchFile(ctx, p.EndpointURL, batchID, "signature")
	if err != nil {
		return fmt.Errorf("fetch signature: %w", err)
	}

	linkData, err := n.peerClient.FetchBatchFile(ctx, p.EndpointURL, batchID, "chain-link")
	metaName := "chain-link.txt"
	if err != nil {
		linkData, err = n.peerClient.FetchBatchFile(ctx, p.EndpointURL, batchID, "metadata")
		metaName = "metadata.txt"
		if err != nil {
			return fmt.Errorf("fetch chain-link/metadata: %w", err)
		}
	}

	bundleDir := filepath.Join(n.Cfg.DataDir, "sync-tmp", "batch-"+batchID)
	if err := os.RemoveAll(bundleDir); err != nil {
		return fmt.Errorf("clear stale sync dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(bundleDir, "records"), 0o755); err != nil {
		return fmt.Errorf("mkdir sync dir: %w", err)
	}
	defer os.RemoveAll(bundleDir)

	if err := os.WriteFile(filepath.Join(bundleDir, "manifest.txt"), manifestData, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(bundleDir, "signature.txt"), sigData, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(bundleDir, metaName), linkData, 0o644); err != nil {
		return err
	}

	for _, hash := range manifest.Hashes {
		recData, err := n.peerClient.FetchRecord(ctx, p.EndpointURL, hash)
		if err != nil {
			return fmt.Errorf("fetch record %s: %w", hash, err)
		}
		if err := os.WriteFile(filepath.Join(bundleDir, "records", hash+".txt"), recData, 0o644); err != nil {
			return err
		}
	}

	importer := &export.Importer{Store: n.Store}
	receipt, err := importer.ImportBatch(bundleDir, p.PublicKey)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if !receipt.Valid {
		return fmt.Errorf("import invalid: %v", receipt.Errors)
	}

	// A freshly imported batch is worth an immediate audit sample.
	pipeline := verify.NewVerificationPipeline(n.Store)
	result, rootMatches, err := pipeline.Run(batchID, manifest, mustMerkleRoot(manifest), n.NodeID, n.Cfg.SampleSize)
	if err == nil {
		status := verify.DeriveStatus(batchID, result, rootMatches, time.Now().UTC())
		_ = status.Save(filepath.Join(n.Cfg.DataDir, "verification"))
	}
	return nil
}

func mustMerkleRoot(m *batch.Manifest) string {
	root, err := m.MerkleRoot()
	if err != nil {
		return ""
	}
	return root
}
