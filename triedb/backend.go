// Package triedb is the storage layer beneath package trie: it turns a
// trie's path-keyed node writes into backend-key-addressed diffs,
// layers those diffs newest-first over a durable key/value backend,
// and exposes the result through the same Reader contract trie.Trie
// resolves hash nodes against.
//
// Grounded on the disk/dirty-layer split surveyed from real
// go-ethereum's triedb/pathdb package (diskLayer backed by
// github.com/VictoriaMetrics/fastcache clean-node caches, a buffer of
// uncommitted writes on top) and on this module's own trienode
// package for the diff payload shape.
package triedb

// Backend is the minimal capability a durable key/value store must
// provide. It is intentionally narrow: triedb never assumes anything
// about the concrete store beyond point lookups and atomic batched
// writes, so any KV engine can sit underneath it.
type Backend interface {
	// Get returns the value stored for key, or (nil, false, nil) if
	// key is absent. A non-nil error means the read itself failed.
	Get(key []byte) ([]byte, bool, error)

	// NewBatch returns a Batch that accumulates writes until Commit is
	// called on it.
	NewBatch() Batch
}

// Batch accumulates a set of writes to be applied to a Backend
// atomically: either all of them land, or (on error) none do.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error

	// Reset discards any accumulated writes, so the Batch can be
	// reused for the next flush.
	Reset()
}
