package triedb

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/joey0612/rust-eth-triedb/trienode"
	"github.com/joey0612/rust-eth-triedb/triekey"
)

// cleanCacheSize is the default size of the clean-node cache. Sized
// generously since fastcache keeps its memory off the Go heap and is
// tolerant of being larger than strictly necessary.
const cleanCacheSize = 256 * 1024 * 1024

// Database is the triedb-level view over a Backend: it stacks
// per-block DiffLayers on top of it, serves reads through a
// read-through clean-node cache, and flushes the oldest retained
// layer down into the backend in one atomic batch.
type Database struct {
	mu      sync.RWMutex
	backend Backend
	layers  DiffLayers
	clean   *fastcache.Cache
}

// New wraps backend with an empty diff-layer chain and a fresh
// clean-node cache.
func New(backend Backend) *Database {
	return &Database{
		backend: backend,
		clean:   fastcache.New(cleanCacheSize),
	}
}

// CommitLayer pushes a freshly flattened set of node writes, plus the
// per-owner storage roots the block installed into the account trie,
// on top of the current chain as a new DiffLayer for (root, number).
func (db *Database) CommitLayer(root common.Hash, number uint64, nodes map[string]*trienode.Node, storageRoots map[common.Hash]common.Hash) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.layers.Push(NewDiffLayer(root, number, nodes, storageRoots, db.layers.Top()))
}

// Reader returns a trie.Reader view of the database as of root: reads
// first walk the diff layer matching root and everything beneath it,
// then the clean cache, then the backend. If no retained layer
// matches root, the view reads straight through the clean cache and
// backend, which is correct as long as root's diffs have already been
// flushed.
func (db *Database) Reader(root common.Hash) *LayerReader {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for d := db.layers.Top(); d != nil; d = d.Parent() {
		if d.root == root {
			return &LayerReader{db: db, layer: d}
		}
	}
	return &LayerReader{db: db}
}

// LayerReader implements trie.Reader rooted at a specific DiffLayer.
type LayerReader struct {
	db    *Database
	layer *DiffLayer
}

// Node resolves owner/path/hash, matching the trie.Reader contract.
func (r *LayerReader) Node(owner common.Hash, path []byte, hash common.Hash) ([]byte, error) {
	key := triekey.Node(owner, path)
	skey := string(key)

	for d := r.layer; d != nil; d = d.Parent() {
		if n, ok := d.node(skey); ok {
			if n.IsDeleted() {
				return nil, fmt.Errorf("triedb: node at %x was deleted", key)
			}
			return n.Blob, nil
		}
	}

	if blob := r.db.clean.Get(nil, key); len(blob) > 0 {
		return blob, nil
	}

	blob, found, err := r.db.backend.Get(key)
	if err != nil {
		return nil, fmt.Errorf("triedb: backend read failed for %x: %w", key, err)
	}
	if !found {
		return nil, fmt.Errorf("triedb: node not found for owner=%x path=%x hash=%x", owner, path, hash)
	}
	r.db.clean.Set(key, blob)
	return blob, nil
}

// StorageRoot resolves owner's current storage root by walking this
// reader's diff-layer chain newest-first, per the provenance order in
// spec §4.8.a item (ii). ok is false if no retained layer recorded a
// storage-root update for owner; the caller falls back to reading the
// account trie directly (item (iv)).
func (r *LayerReader) StorageRoot(owner common.Hash) (common.Hash, bool) {
	for d := r.layer; d != nil; d = d.Parent() {
		if h, ok := d.storageRoot(owner); ok {
			return h, true
		}
	}
	return common.Hash{}, false
}

// Flush squashes the oldest retained DiffLayer into the backend as a
// single atomic batch: every modified node is written, every
// tombstoned path is deleted, the clean cache is updated to match,
// and the persisted state-root/block-number markers are advanced.
// The layer is then dropped from the retained chain.
func (db *Database) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	layer := db.layers.Bottom()
	if layer == nil {
		return nil
	}

	batch := db.backend.NewBatch()
	for key, n := range layer.nodes {
		k := []byte(key)
		if n.IsDeleted() {
			if err := batch.Delete(k); err != nil {
				return fmt.Errorf("triedb: flush delete %x: %w", k, err)
			}
			continue
		}
		if err := batch.Put(k, n.Blob); err != nil {
			return fmt.Errorf("triedb: flush put %x: %w", k, err)
		}
	}

	var numBuf [8]byte
	binary.LittleEndian.PutUint64(numBuf[:], layer.number)
	if err := batch.Put(triekey.StateRootKey, layer.root[:]); err != nil {
		return fmt.Errorf("triedb: flush state root marker: %w", err)
	}
	if err := batch.Put(triekey.BlockNumberKey, numBuf[:]); err != nil {
		return fmt.Errorf("triedb: flush block number marker: %w", err)
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("triedb: flush commit: %w", err)
	}
	for key, n := range layer.nodes {
		if n.IsDeleted() {
			db.clean.Del([]byte(key))
		} else {
			db.clean.Set([]byte(key), n.Blob)
		}
	}
	db.layers.PopBottom()
	log.Debug("triedb: flushed layer", "root", layer.root, "number", layer.number, "nodes", len(layer.nodes))
	return nil
}

// PersistedRoot returns the state root last durably flushed, or the
// zero hash if nothing has been flushed yet.
func (db *Database) PersistedRoot() (common.Hash, error) {
	blob, found, err := db.backend.Get(triekey.StateRootKey)
	if err != nil {
		return common.Hash{}, err
	}
	if !found {
		return common.Hash{}, nil
	}
	return common.BytesToHash(blob), nil
}

// PersistedNumber returns the block number last durably flushed.
func (db *Database) PersistedNumber() (uint64, error) {
	blob, found, err := db.backend.Get(triekey.BlockNumberKey)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	if len(blob) != 8 {
		return 0, fmt.Errorf("triedb: malformed block number marker (%d bytes)", len(blob))
	}
	return binary.LittleEndian.Uint64(blob), nil
}

// Depth reports how many DiffLayers are currently retained in memory
// on top of the backend.
func (db *Database) Depth() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.layers.Depth()
}
