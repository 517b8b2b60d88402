package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/joey0612/rust-eth-triedb/statetrie"
	"github.com/joey0612/rust-eth-triedb/triedb"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func TestBatchUpdateAndCommitRoundTrip(t *testing.T) {
	db := triedb.New(triedb.NewMemBackend())
	driver := New(db, nil)

	acc1 := statetrie.NewEmptyAccount()
	acc1.Nonce = 1
	acc1.Balance = uint256.NewInt(1000)

	acc2 := statetrie.NewEmptyAccount()
	acc2.Nonce = 5
	acc2.Balance = uint256.NewInt(2000)

	slot := common.HexToHash("1")
	value := uint256.NewInt(42)

	post := &HashedPostState{
		Accounts: []AccountUpdate{
			{Address: addr(1), Account: acc1},
			{
				Address: addr(2),
				Account: acc2,
				Storage: []StorageUpdate{{Slot: slot, Value: value}},
			},
		},
	}

	root, err := driver.BatchUpdateAndCommit(1, common.Hash{}, post)
	if err != nil {
		t.Fatal(err)
	}
	if root == (common.Hash{}) {
		t.Fatal("expected a non-zero root after committing non-empty state")
	}

	got1, err := driver.GetAccount(root, addr(1))
	if err != nil {
		t.Fatal(err)
	}
	if got1 == nil || got1.Nonce != 1 || got1.Balance.Cmp(uint256.NewInt(1000)) != 0 {
		t.Fatalf("account 1 = %+v, want nonce=1 balance=1000", got1)
	}

	got2, err := driver.GetAccount(root, addr(2))
	if err != nil {
		t.Fatal(err)
	}
	if got2 == nil || got2.Nonce != 5 {
		t.Fatalf("account 2 = %+v, want nonce=5", got2)
	}
	if got2.Root == statetrie.EmptyRootHash {
		t.Fatal("account 2's storage root should reflect its one written slot")
	}

	gotValue, err := driver.GetStorage(root, addr(2), got2.Root, slot)
	if err != nil {
		t.Fatal(err)
	}
	if gotValue.Cmp(value) != 0 {
		t.Fatalf("storage slot = %v, want %v", gotValue, value)
	}
}

func TestBatchUpdateAndCommitOverParentRoot(t *testing.T) {
	db := triedb.New(triedb.NewMemBackend())
	driver := New(db, nil)

	acc := statetrie.NewEmptyAccount()
	acc.Nonce = 1
	root1, err := driver.BatchUpdateAndCommit(1, common.Hash{}, &HashedPostState{
		Accounts: []AccountUpdate{{Address: addr(9), Account: acc}},
	})
	if err != nil {
		t.Fatal(err)
	}

	acc2 := statetrie.NewEmptyAccount()
	acc2.Nonce = 2
	root2, err := driver.BatchUpdateAndCommit(2, root1, &HashedPostState{
		Accounts: []AccountUpdate{{Address: addr(10), Account: acc2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if root2 == root1 {
		t.Fatal("expected root to change after a second block's commit")
	}

	// Both accounts should still resolve through the layered chain at
	// root2, and the original root1 view should be unaffected.
	got9, err := driver.GetAccount(root2, addr(9))
	if err != nil || got9 == nil || got9.Nonce != 1 {
		t.Fatalf("account 9 at root2 = %+v, %v", got9, err)
	}
	got10, err := driver.GetAccount(root1, addr(10))
	if err != nil {
		t.Fatal(err)
	}
	if got10 != nil {
		t.Fatal("account 10 should not exist at root1, it was only added in block 2")
	}
}

// TestStorageRootProvenanceAcrossBlocks exercises spec §4.8.a: a
// second block's storage write for an already-existing account must
// land on top of that account's prior storage trie, found through the
// diff-layer chain rather than supplied by the caller.
func TestStorageRootProvenanceAcrossBlocks(t *testing.T) {
	db := triedb.New(triedb.NewMemBackend())
	driver := New(db, nil)

	acc := statetrie.NewEmptyAccount()
	acc.Nonce = 1
	slotA, slotB := common.HexToHash("a"), common.HexToHash("b")
	root1, err := driver.BatchUpdateAndCommit(1, common.Hash{}, &HashedPostState{
		Accounts: []AccountUpdate{{
			Address: addr(7),
			Account: acc,
			Storage: []StorageUpdate{{Slot: slotA, Value: uint256.NewInt(111)}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Block 2 touches the same account again, adding a second slot,
	// without the caller ever supplying the storage root block 1 left
	// behind.
	acc2 := statetrie.NewEmptyAccount()
	acc2.Nonce = 2
	root2, err := driver.BatchUpdateAndCommit(2, root1, &HashedPostState{
		Accounts: []AccountUpdate{{
			Address: addr(7),
			Account: acc2,
			Storage: []StorageUpdate{{Slot: slotB, Value: uint256.NewInt(222)}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := driver.GetAccount(root2, addr(7))
	if err != nil || got == nil {
		t.Fatalf("account at root2 = %+v, %v", got, err)
	}
	gotA, err := driver.GetStorage(root2, addr(7), got.Root, slotA)
	if err != nil {
		t.Fatal(err)
	}
	if gotA.Cmp(uint256.NewInt(111)) != 0 {
		t.Fatalf("slot a at root2 = %v, want 111 (block 1's write should not have been lost)", gotA)
	}
	gotB, err := driver.GetStorage(root2, addr(7), got.Root, slotB)
	if err != nil {
		t.Fatal(err)
	}
	if gotB.Cmp(uint256.NewInt(222)) != 0 {
		t.Fatalf("slot b at root2 = %v, want 222", gotB)
	}
}

// TestRebuildSetStartsFromEmptyRoot exercises spec §4.8's rebuild_set:
// an account named in RebuildSet gets a fresh empty storage trie for
// this block even though it already has non-empty storage on disk.
func TestRebuildSetStartsFromEmptyRoot(t *testing.T) {
	db := triedb.New(triedb.NewMemBackend())
	driver := New(db, nil)

	acc := statetrie.NewEmptyAccount()
	acc.Nonce = 1
	slot := common.HexToHash("a")
	root1, err := driver.BatchUpdateAndCommit(1, common.Hash{}, &HashedPostState{
		Accounts: []AccountUpdate{{
			Address: addr(3),
			Account: acc,
			Storage: []StorageUpdate{{Slot: slot, Value: uint256.NewInt(9)}},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}

	acc2 := statetrie.NewEmptyAccount()
	acc2.Nonce = 1
	newSlot := common.HexToHash("b")
	root2, err := driver.BatchUpdateAndCommit(2, root1, &HashedPostState{
		Accounts: []AccountUpdate{{
			Address: addr(3),
			Account: acc2,
			Storage: []StorageUpdate{{Slot: newSlot, Value: uint256.NewInt(5)}},
		}},
		RebuildSet: map[common.Address]bool{addr(3): true},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := driver.GetAccount(root2, addr(3))
	if err != nil || got == nil {
		t.Fatalf("account at root2 = %+v, %v", got, err)
	}
	oldValue, err := driver.GetStorage(root2, addr(3), got.Root, slot)
	if err != nil {
		t.Fatal(err)
	}
	if !oldValue.IsZero() {
		t.Fatalf("rebuilt storage trie should not carry over the old slot, got %v", oldValue)
	}
	newValue, err := driver.GetStorage(root2, addr(3), got.Root, newSlot)
	if err != nil {
		t.Fatal(err)
	}
	if newValue.Cmp(uint256.NewInt(5)) != 0 {
		t.Fatalf("new slot = %v, want 5", newValue)
	}
}
