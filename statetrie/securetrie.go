package statetrie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/joey0612/rust-eth-triedb/trie"
	"github.com/joey0612/rust-eth-triedb/trienode"
)

// SecureTrie wraps a trie.Trie so callers address entries by their
// raw key — an account address or a storage slot — rather than by the
// Keccak-256 path the underlying trie actually stores nodes under.
type SecureTrie struct {
	owner common.Hash
	trie  *trie.Trie
}

// OpenAccountTrie opens the account trie at root, reading through
// reader to resolve anything not already in memory.
func OpenAccountTrie(root common.Hash, reader trie.Reader) (*SecureTrie, error) {
	t, err := trie.New(common.Hash{}, root, reader)
	if err != nil {
		return nil, err
	}
	return &SecureTrie{trie: t}, nil
}

// OpenStorageTrie opens the storage trie owned by account at root.
func OpenStorageTrie(account common.Hash, root common.Hash, reader trie.Reader) (*SecureTrie, error) {
	t, err := trie.New(account, root, reader)
	if err != nil {
		return nil, err
	}
	return &SecureTrie{owner: account, trie: t}, nil
}

// GetAccount returns the account stored at address, or nil if absent.
func (s *SecureTrie) GetAccount(address common.Address) (*Account, error) {
	blob, err := s.trie.Get(HashAddress(address).Bytes())
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return DecodeAccount(blob)
}

// UpdateAccount writes acc at address.
func (s *SecureTrie) UpdateAccount(address common.Address, acc *Account) error {
	blob, err := EncodeAccount(acc)
	if err != nil {
		return err
	}
	return s.trie.Update(HashAddress(address).Bytes(), blob)
}

// DeleteAccount removes whatever account is stored at address.
func (s *SecureTrie) DeleteAccount(address common.Address) error {
	return s.trie.Delete(HashAddress(address).Bytes())
}

// GetStorage returns the value stored at slot, zero if absent.
func (s *SecureTrie) GetStorage(slot common.Hash) (*uint256.Int, error) {
	blob, err := s.trie.Get(HashStorageSlot(slot).Bytes())
	if err != nil {
		return nil, err
	}
	return DecodeStorageValue(blob)
}

// UpdateStorage writes value at slot. Writing the zero value deletes
// the slot, matching Ethereum's sparse storage trie convention.
func (s *SecureTrie) UpdateStorage(slot common.Hash, value *uint256.Int) error {
	blob, err := EncodeStorageValue(value)
	if err != nil {
		return err
	}
	key := HashStorageSlot(slot).Bytes()
	if blob == nil {
		return s.trie.Delete(key)
	}
	return s.trie.Update(key, blob)
}

// DeleteStorage removes whatever value is stored at slot.
func (s *SecureTrie) DeleteStorage(slot common.Hash) error {
	return s.trie.Delete(HashStorageSlot(slot).Bytes())
}

// GetAccountHash is GetAccount's pre-hashed counterpart: owner is
// already the Keccak-256 of the account address, so it is used as the
// trie path directly rather than hashed again. Callers that already
// hold the hash (e.g. a driver working in hashed-post-state space)
// save a hash computation by calling this instead of GetAccount.
func (s *SecureTrie) GetAccountHash(owner common.Hash) (*Account, error) {
	blob, err := s.trie.Get(owner.Bytes())
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return DecodeAccount(blob)
}

// UpdateAccountHash is UpdateAccount's pre-hashed counterpart.
func (s *SecureTrie) UpdateAccountHash(owner common.Hash, acc *Account) error {
	blob, err := EncodeAccount(acc)
	if err != nil {
		return err
	}
	return s.trie.Update(owner.Bytes(), blob)
}

// DeleteAccountHash is DeleteAccount's pre-hashed counterpart.
func (s *SecureTrie) DeleteAccountHash(owner common.Hash) error {
	return s.trie.Delete(owner.Bytes())
}

// GetStorageHash is GetStorage's pre-hashed counterpart: key is already
// the Keccak-256 of the storage slot.
func (s *SecureTrie) GetStorageHash(key common.Hash) (*uint256.Int, error) {
	blob, err := s.trie.Get(key.Bytes())
	if err != nil {
		return nil, err
	}
	return DecodeStorageValue(blob)
}

// UpdateStorageHash is UpdateStorage's pre-hashed counterpart.
func (s *SecureTrie) UpdateStorageHash(key common.Hash, value *uint256.Int) error {
	blob, err := EncodeStorageValue(value)
	if err != nil {
		return err
	}
	if blob == nil {
		return s.trie.Delete(key.Bytes())
	}
	return s.trie.Update(key.Bytes(), blob)
}

// DeleteStorageHash is DeleteStorage's pre-hashed counterpart.
func (s *SecureTrie) DeleteStorageHash(key common.Hash) error {
	return s.trie.Delete(key.Bytes())
}

// Owner returns the owner hash this trie was opened under: the zero
// hash for an account trie, the account's address hash for a storage
// trie.
func (s *SecureTrie) Owner() common.Hash { return s.owner }

// Hash returns the trie's current root hash.
func (s *SecureTrie) Hash() common.Hash { return s.trie.Hash() }

// Commit finalizes the trie; see trie.Trie.Commit.
func (s *SecureTrie) Commit(collectLeaf bool) (common.Hash, *trienode.NodeSet, error) {
	return s.trie.Commit(collectLeaf)
}

// Copy returns an independent SecureTrie for concurrent use.
func (s *SecureTrie) Copy() *SecureTrie {
	return &SecureTrie{owner: s.owner, trie: s.trie.Copy()}
}
