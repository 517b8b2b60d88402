package triedb

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/joey0612/rust-eth-triedb/trienode"
)

func TestLayeredReadThroughAndFlush(t *testing.T) {
	backend := NewMemBackend()
	db := New(backend)

	rootA := common.HexToHash("a")
	nodesA := map[string]*trienode.Node{
		"key1": trienode.New(common.HexToHash("h1"), []byte("blob-1")),
		"key2": trienode.New(common.HexToHash("h2"), []byte("blob-2")),
	}
	db.CommitLayer(rootA, 1, nodesA, nil)

	rootB := common.HexToHash("b")
	nodesB := map[string]*trienode.Node{
		"key2": trienode.NewDeleted(),
		"key3": trienode.New(common.HexToHash("h3"), []byte("blob-3")),
	}
	db.CommitLayer(rootB, 2, nodesB, nil)

	readerAtB := db.Reader(rootB)
	blob, err := readerAtB.Node(common.Hash{}, []byte("key1"), common.HexToHash("h1"))
	if err != nil || string(blob) != "blob-1" {
		t.Fatalf("key1 through layer B = %q, %v; want blob-1", blob, err)
	}
	if _, err := readerAtB.Node(common.Hash{}, []byte("key2"), common.HexToHash("h2")); err == nil {
		t.Fatal("expected error reading a tombstoned key through the diff layer")
	}
	blob, err = readerAtB.Node(common.Hash{}, []byte("key3"), common.HexToHash("h3"))
	if err != nil || string(blob) != "blob-3" {
		t.Fatalf("key3 through layer B = %q, %v; want blob-3", blob, err)
	}

	if db.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", db.Depth())
	}
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if db.Depth() != 1 {
		t.Fatalf("Depth() after one Flush = %d, want 1", db.Depth())
	}
	if _, ok, _ := backend.Get([]byte("key1")); !ok {
		t.Fatal("expected key1 to have been flushed to the backend")
	}

	persisted, err := db.PersistedRoot()
	if err != nil {
		t.Fatal(err)
	}
	if persisted != rootA {
		t.Fatalf("PersistedRoot() = %x, want %x", persisted, rootA)
	}

	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if db.Depth() != 0 {
		t.Fatalf("Depth() after flushing everything = %d, want 0", db.Depth())
	}
	if _, ok, _ := backend.Get([]byte("key2")); ok {
		t.Fatal("key2 should have been deleted once layer B was flushed")
	}
	persisted, err = db.PersistedRoot()
	if err != nil {
		t.Fatal(err)
	}
	if persisted != rootB {
		t.Fatalf("PersistedRoot() = %x, want %x", persisted, rootB)
	}
}

func TestLayerReaderStorageRootProvenance(t *testing.T) {
	db := New(NewMemBackend())

	owner := common.BytesToHash([]byte("owner"))
	rootA := common.HexToHash("a")
	db.CommitLayer(rootA, 1, nil, map[common.Hash]common.Hash{owner: common.BytesToHash([]byte("root-a"))})

	rootB := common.HexToHash("b")
	db.CommitLayer(rootB, 2, nil, nil)

	// Layer B recorded no storage-root update for owner, so a reader
	// at rootB must fall through to layer A's value.
	got, ok := db.Reader(rootB).StorageRoot(owner)
	if !ok || got != common.BytesToHash([]byte("root-a")) {
		t.Fatalf("StorageRoot through layer B = %x, %v; want root-a, true", got, ok)
	}

	rootC := common.HexToHash("c")
	db.CommitLayer(rootC, 3, nil, map[common.Hash]common.Hash{owner: common.BytesToHash([]byte("root-c"))})

	got, ok = db.Reader(rootC).StorageRoot(owner)
	if !ok || got != common.BytesToHash([]byte("root-c")) {
		t.Fatalf("StorageRoot through layer C = %x, %v; want root-c, true", got, ok)
	}

	other := common.BytesToHash([]byte("other-owner"))
	if _, ok := db.Reader(rootC).StorageRoot(other); ok {
		t.Fatal("expected no storage root recorded for an owner never touched")
	}
}
