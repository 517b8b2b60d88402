package state

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/joey0612/rust-eth-triedb/statetrie"
	"github.com/joey0612/rust-eth-triedb/trienode"
	"github.com/joey0612/rust-eth-triedb/triekey"
)

// fullAddr builds an address with every byte set to i, matching the
// address construction this scenario's known-good root hashes were
// computed against.
func fullAddr(i byte) common.Address {
	var a common.Address
	for j := range a {
		a[j] = i
	}
	return a
}

// storageKey and storageValue build this scenario's pre-hashed storage
// keys and values directly, bypassing the raw-slot hashing
// SecureTrie.UpdateStorage normally performs: the known-good root
// hashes were computed over keys that are already Keccak-256 digests
// of a single byte, used as trie paths as-is.
func storageKey(j byte) common.Hash {
	return crypto.Keccak256Hash([]byte{j})
}

func storageValue(b byte) *uint256.Int {
	return new(uint256.Int).SetBytes(bytes.Repeat([]byte{b}, 32))
}

// TestHundredAccountScenarioRootHashes builds and then mutates a
// hundred-account state by hand, using the trie/statetrie/trienode
// layer directly (rather than the TrieDB driver, which works in
// raw-address/raw-slot space) so every account and storage key lands
// at the exact pre-hashed path the known-good root hashes below were
// computed against.
func TestHundredAccountScenarioRootHashes(t *testing.T) {
	accountTrie, err := statetrie.OpenAccountTrie(common.Hash{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	owners := make([]common.Hash, 101)
	for i := 1; i <= 100; i++ {
		owners[i] = statetrie.HashAddress(fullAddr(byte(i)))
	}

	storageTries := make(map[int]*statetrie.SecureTrie)
	merged := trienode.NewMergedNodeSet()

	// Accounts 1..5 each get ten storage slots; 6..100 stay empty.
	for i := 1; i <= 5; i++ {
		st, err := statetrie.OpenStorageTrie(owners[i], statetrie.EmptyRootHash, nil)
		if err != nil {
			t.Fatal(err)
		}
		for j := 1; j <= 10; j++ {
			if err := st.UpdateStorageHash(storageKey(byte(j)), storageValue(byte(j))); err != nil {
				t.Fatal(err)
			}
		}
		storageTries[i] = st
	}

	for i := 1; i <= 100; i++ {
		acc := statetrie.NewEmptyAccount()
		if st, ok := storageTries[i]; ok {
			root, set, err := st.Commit(false)
			if err != nil {
				t.Fatal(err)
			}
			if err := merged.Merge(set); err != nil {
				t.Fatal(err)
			}
			acc.Root = root
		}
		if err := accountTrie.UpdateAccountHash(owners[i], acc); err != nil {
			t.Fatal(err)
		}
	}

	root1, accSet1, err := accountTrie.Commit(false)
	if err != nil {
		t.Fatal(err)
	}
	if err := merged.Merge(accSet1); err != nil {
		t.Fatal(err)
	}
	if flat := merged.Flatten(triekey.Node); len(flat) == 0 {
		t.Fatal("expected a non-empty flattened node set after committing a hundred accounts")
	}

	want1 := common.HexToHash("adcc848b76bace28ea81dd449a735bad44663a36f18f40980d586d5315eb3800")
	if root1 != want1 {
		t.Fatalf("root after initial population = %x, want %x", root1, want1)
	}

	// Modifications: drop accounts 91..100, and for 1..5 delete slots
	// 1..5 and double the value of slots 6..10.
	merged2 := trienode.NewMergedNodeSet()
	for i := 91; i <= 100; i++ {
		if err := accountTrie.DeleteAccountHash(owners[i]); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i <= 5; i++ {
		st := storageTries[i]
		for j := 1; j <= 5; j++ {
			if err := st.DeleteStorageHash(storageKey(byte(j))); err != nil {
				t.Fatal(err)
			}
		}
		for j := 6; j <= 10; j++ {
			if err := st.UpdateStorageHash(storageKey(byte(j)), storageValue(byte(j*2))); err != nil {
				t.Fatal(err)
			}
		}
		root, set, err := st.Commit(false)
		if err != nil {
			t.Fatal(err)
		}
		if err := merged2.Merge(set); err != nil {
			t.Fatal(err)
		}
		acc := statetrie.NewEmptyAccount()
		acc.Root = root
		if err := accountTrie.UpdateAccountHash(owners[i], acc); err != nil {
			t.Fatal(err)
		}
	}

	root2, accSet2, err := accountTrie.Commit(false)
	if err != nil {
		t.Fatal(err)
	}
	if err := merged2.Merge(accSet2); err != nil {
		t.Fatal(err)
	}

	want2 := common.HexToHash("626ca0a9ca91a1fe5e3a4f438f11015e6e64510b6a29c3a6362d98abad5e4875")
	if root2 != want2 {
		t.Fatalf("root after modifications = %x, want %x", root2, want2)
	}
}
