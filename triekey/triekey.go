// Package triekey constructs the backend key under which a trie node's
// encoded blob is persisted. It is the only place that knows how the
// account trie and per-account storage tries share one key-value
// namespace without colliding.
package triekey

import "github.com/ethereum/go-ethereum/common"

// Prefixes for trie-node backend keys. These follow the same one-byte
// namespacing scheme real go-ethereum's rawdb schema uses for path-mode
// trie nodes: account-trie nodes live under 'A', storage-trie nodes
// under 'O' followed by the 32-byte owner hash.
const (
	AccountNodePrefix = 'A'
	StorageNodePrefix = 'O'
)

// Account returns the backend key for an account-trie node at path p.
func Account(path []byte) []byte {
	key := make([]byte, 0, 1+len(path))
	key = append(key, AccountNodePrefix)
	key = append(key, path...)
	return key
}

// Storage returns the backend key for a storage-trie node owned by
// owner (the Keccak-256 of the account address) at path p.
func Storage(owner common.Hash, path []byte) []byte {
	key := make([]byte, 0, 1+common.HashLength+len(path))
	key = append(key, StorageNodePrefix)
	key = append(key, owner[:]...)
	key = append(key, path...)
	return key
}

// Node returns the backend key for a node owned by owner at path p.
// owner is the zero hash for the account trie.
func Node(owner common.Hash, path []byte) []byte {
	if owner == (common.Hash{}) {
		return Account(path)
	}
	return Storage(owner, path)
}

// Reserved markers for the last durably committed state. Stored in the
// backend's default namespace, outside the A/O key space above.
var (
	StateRootKey   = []byte("state_root")
	BlockNumberKey = []byte("block_number")
)
