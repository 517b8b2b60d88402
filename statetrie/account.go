// Package statetrie layers Ethereum account semantics on top of
// package trie: key hashing (the "secure" trie used throughout the
// corpus), the account RLP wire format, and storage-value encoding.
//
// Grounded on the teacher's core/state/account_trie.go (RLP account
// layout, storage value trim-leading-zeros encoding) and, for the
// concrete codec, the real go-ethereum types.StateAccount this module
// depends on directly (github.com/ethereum/go-ethereum/rlp already
// knows how to encode *uint256.Int, so the codec here is a thin
// struct rather than the teacher's hand-rolled rlp.Stream decode).
package statetrie

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/joey0612/rust-eth-triedb/trie"
)

// EmptyRootHash is the storage root of an account with no storage
// slots set.
var EmptyRootHash = trie.EmptyRootHash

// EmptyCodeHash is the code hash of an account with no code.
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// Account is the RLP-encoded value stored for each entry in the
// account trie: [nonce, balance, storageRoot, codeHash].
type Account struct {
	Nonce    uint64
	Balance  *uint256.Int
	Root     common.Hash
	CodeHash []byte
}

// NewEmptyAccount returns the account value for a brand-new address:
// zero nonce and balance, empty storage trie, no code.
func NewEmptyAccount() *Account {
	return &Account{
		Balance:  new(uint256.Int),
		Root:     EmptyRootHash,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// IsEmpty reports whether the account is indistinguishable from one
// that never existed (EIP-161's definition: zero nonce, zero balance,
// no code).
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && bytes.Equal(a.CodeHash, EmptyCodeHash.Bytes())
}

// EncodeAccount RLP-encodes an account for storage in the account
// trie.
func EncodeAccount(a *Account) ([]byte, error) {
	return rlp.EncodeToBytes(a)
}

// DecodeAccount decodes a blob previously produced by EncodeAccount.
func DecodeAccount(blob []byte) (*Account, error) {
	var a Account
	if err := rlp.DecodeBytes(blob, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// EncodeStorageValue encodes a single storage slot's value the way
// a storage trie expects it: big-endian, leading zero bytes
// stripped, RLP-wrapped as a string. A zero value encodes to nil,
// which callers should treat as "delete this slot" rather than
// writing it.
func EncodeStorageValue(v *uint256.Int) ([]byte, error) {
	if v.IsZero() {
		return nil, nil
	}
	return rlp.EncodeToBytes(v.Bytes())
}

// DecodeStorageValue decodes a blob previously produced by
// EncodeStorageValue. An empty blob decodes to zero.
func DecodeStorageValue(blob []byte) (*uint256.Int, error) {
	if len(blob) == 0 {
		return new(uint256.Int), nil
	}
	var raw []byte
	if err := rlp.DecodeBytes(blob, &raw); err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

// HashAddress returns the Keccak-256 of address, the path key used to
// locate an account inside the (secure) account trie.
func HashAddress(address common.Address) common.Hash {
	return crypto.Keccak256Hash(address[:])
}

// HashStorageSlot returns the Keccak-256 of a storage slot's raw key,
// the path key used to locate it inside a (secure) storage trie.
func HashStorageSlot(slot common.Hash) common.Hash {
	return crypto.Keccak256Hash(slot[:])
}
