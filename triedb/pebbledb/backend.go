// Package pebbledb is a concrete triedb.Backend built on
// github.com/cockroachdb/pebble, the same storage engine used by the
// rest of the retrieval pack's chain clients. It exists so
// triedb.Backend has a real, production-shaped implementation to test
// against; nothing in package triedb depends on it.
package pebbledb

import (
	"errors"

	"github.com/cockroachdb/pebble"

	"github.com/joey0612/rust-eth-triedb/triedb"
)

// Backend adapts a *pebble.DB to triedb.Backend.
type Backend struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble database at dir.
func Open(dir string) (*Backend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

// Close releases the underlying pebble handles.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Get implements triedb.Backend.
func (b *Backend) Get(key []byte) ([]byte, bool, error) {
	val, closer, err := b.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	out := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// NewBatch implements triedb.Backend.
func (b *Backend) NewBatch() triedb.Batch {
	return &batch{db: b.db, b: b.db.NewBatch()}
}

type batch struct {
	db *pebble.DB
	b  *pebble.Batch
}

func (w *batch) Put(key, value []byte) error {
	return w.b.Set(key, value, nil)
}

func (w *batch) Delete(key []byte) error {
	return w.b.Delete(key, nil)
}

func (w *batch) Commit() error {
	return w.b.Commit(pebble.Sync)
}

func (w *batch) Reset() {
	w.b.Reset()
}
