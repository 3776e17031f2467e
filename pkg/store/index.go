// Copyright 2025 Truthcrawl Project

package store

import (
	"fmt"
	"sort"
)

// Index maps lookup keys (URL or node_id) to the sorted list of record
// hashes that share them. It is rebuildable at any time from the store's
// files on disk; nothing here is separately persisted.
type Index struct {
	byURL    map[string][]string
	byNodeID map[string][]string
}

// ByURL returns the sorted record hashes observed for url.
func (i *Index) ByURL(url string) []string {
	return i.byURL[url]
}

// ByNodeID returns the sorted record hashes produced by node_id.
func (i *Index) ByNodeID(nodeID string) []string {
	return i.byNodeID[nodeID]
}

// IndexBuilder scans a RecordStore once and produces its two indices.
type IndexBuilder struct {
	store *RecordStore
}

// NewIndexBuilder returns a builder over store.
func NewIndexBuilder(s *RecordStore) *IndexBuilder {
	return &IndexBuilder{store: s}
}

// Build scans every record currently in the store and returns a fresh
// Index. Callers that need an up-to-date view after further writes must
// call Build again — indices are a derived, disposable view.
func (b *IndexBuilder) Build() (*Index, error) {
	hashes, err := b.store.ListHashes()
	if err != nil {
		return nil, fmt.Errorf("index: list hashes: %w", err)
	}

	idx := &Index{
		byURL:    make(map[string][]string),
		byNodeID: make(map[string][]string),
	}

	for _, hash := range hashes {
		rec, err := b.store.Load(hash)
		if err != nil {
			return nil, fmt.Errorf("index: load %s: %w", hash, err)
		}
		idx.byURL[rec.URL] = append(idx.byURL[rec.URL], hash)
		idx.byNodeID[rec.NodeID] = append(idx.byNodeID[rec.NodeID], hash)
	}

	for k := range idx.byURL {
		sort.Strings(idx.byURL[k])
	}
	for k := range idx.byNodeID {
		sort.Strings(idx.byNodeID[k])
	}

	return idx, nil
}
