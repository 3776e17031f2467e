// Copyright 2025 Truthcrawl Project

package batch

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/truthcrawl/node/pkg/crypto"
)

// Publisher writes a signed batch (manifest, metadata or chain link, and
// signature) to a chain directory. Concurrent publishers sharing the
// same private key must serialize calls themselves — the design calls
// for a process-local mutex held across "scan latest root + write new
// batch"; Publisher does not provide that locking itself.
type Publisher struct {
	chainDir string
	priv     ed25519.PrivateKey
}

// NewPublisher returns a publisher that writes batch directories under
// chainDir, signing with priv.
func NewPublisher(chainDir string, priv ed25519.PrivateKey) *Publisher {
	return &Publisher{chainDir: chainDir, priv: priv}
}

func (p *Publisher) batchDir(batchID string) string {
	return filepath.Join(p.chainDir, "batch-"+batchID)
}

// PublishMetadata signs metadata's canonical bytes and writes
// manifest.txt, metadata.txt, and signature.txt atomically (built in a
// temp directory, then renamed into place).
func (p *Publisher) PublishMetadata(m *Manifest, md *Metadata) error {
	manifestData, err := m.Emit()
	if err != nil {
		return fmt.Errorf("batch: emit manifest: %w", err)
	}
	sig := crypto.Sign(p.priv, md.Emit())
	sigData := append([]byte(crypto.EncodeSignature(sig)), '\n')
	return p.writeBatchDir(md.BatchID, manifestData, md.Emit(), sigData, "metadata.txt")
}

// PublishChainLink signs link's canonical bytes and writes manifest.txt,
// chain-link.txt, and signature.txt atomically.
func (p *Publisher) PublishChainLink(m *Manifest, link *ChainLink) error {
	manifestData, err := m.Emit()
	if err != nil {
		return fmt.Errorf("batch: emit manifest: %w", err)
	}
	sig := crypto.Sign(p.priv, link.Emit())
	sigData := append([]byte(crypto.EncodeSignature(sig)), '\n')
	return p.writeBatchDir(link.BatchID, manifestData, link.Emit(), sigData, "chain-link.txt")
}

func (p *Publisher) writeBatchDir(batchID string, manifestData, metaData, sigData []byte, metaFilename string) error {
	final := p.batchDir(batchID)
	tmp := final + ".tmp"

	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("batch: clear stale temp dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("batch: mkdir temp dir: %w", err)
	}

	writes := map[string][]byte{
		"manifest.txt": manifestData,
		metaFilename:   metaData,
		"signature.txt": sigData,
	}
	for name, data := range writes {
		if err := os.WriteFile(filepath.Join(tmp, name), data, 0o644); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("batch: write %s: %w", name, err)
		}
	}

	if err := os.Rename(tmp, final); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("batch: rename batch dir into place: %w", err)
	}
	return nil
}
