// Package state is the block-level driver: it takes a block's hashed
// post-state and a parent root, updates the account and storage
// tries, commits them, and layers the result over a triedb.Database.
//
// Grounded on the teacher's core/state/account_trie.go wiring plus the
// real go-ethereum triestate.Set/Apply shape surveyed from the
// retrieval pack for the per-account storage-then-account update
// ordering, generalized here to this module's path-keyed
// NodeSet/DiffLayer design.
package state

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/joey0612/rust-eth-triedb/metricsink"
	"github.com/joey0612/rust-eth-triedb/statetrie"
	"github.com/joey0612/rust-eth-triedb/trie"
	"github.com/joey0612/rust-eth-triedb/triedb"
	"github.com/joey0612/rust-eth-triedb/triekey"
	"github.com/joey0612/rust-eth-triedb/trienode"
)

// StorageUpdate is one write to a single storage slot. A nil or zero
// Value deletes the slot.
type StorageUpdate struct {
	Slot  common.Hash
	Value *uint256.Int
}

// AccountUpdate is one account's worth of changes for a single block.
// A nil Account means the address is being deleted outright (in which
// case Storage is ignored).
type AccountUpdate struct {
	Address common.Address
	Account *statetrie.Account
	Storage []StorageUpdate
}

// HashedPostState is the full set of account-level changes a block
// applies, already resolved into the nonce/balance/code/storage-slot
// form the account and storage tries store.
//
// RebuildSet names accounts whose storage is being wiped and rebuilt
// from scratch (spec §4.8's rebuild_set): their prior storage root is
// taken to be the empty root rather than resolved through the usual
// provenance chain, even if the account previously had a non-empty
// storage trie.
type HashedPostState struct {
	Accounts   []AccountUpdate
	RebuildSet map[common.Address]bool
}

// RetentionWindow is the number of DiffLayers BatchUpdateAndCommit
// keeps stacked above the flushed backend before squashing the oldest
// one down. It trades memory for how many recent blocks' diffs stay
// readable without a backend round trip; it has no bearing on
// correctness.
const RetentionWindow = 128

// TrieDB is the block-level driver over a triedb.Database.
type TrieDB struct {
	db   *triedb.Database
	sink metricsink.Sink
}

// New returns a driver over db. A nil sink discards all metrics.
func New(db *triedb.Database, sink metricsink.Sink) *TrieDB {
	if sink == nil {
		sink = metricsink.NoOp
	}
	return &TrieDB{db: db, sink: sink}
}

// StateAt opens a read-only account trie view as of root.
func (t *TrieDB) StateAt(root common.Hash) (*statetrie.SecureTrie, error) {
	return statetrie.OpenAccountTrie(root, t.db.Reader(root))
}

// GetAccount looks up address in the account trie at root.
func (t *TrieDB) GetAccount(root common.Hash, address common.Address) (*statetrie.Account, error) {
	acc, err := t.StateAt(root)
	if err != nil {
		return nil, err
	}
	return acc.GetAccount(address)
}

// GetStorage looks up slot in account's storage trie, rooted at
// storageRoot (typically the Root field of the account just read via
// GetAccount(root, account)). root must be the same block/account-trie
// root GetAccount was opened at: diff layers are keyed by that root,
// not by any individual account's storage root, so resolving the
// storage trie's nodes requires reading through the same layered view
// the account came from rather than one keyed by storageRoot itself.
func (t *TrieDB) GetStorage(root common.Hash, account common.Address, storageRoot, slot common.Hash) (*uint256.Int, error) {
	owner := statetrie.HashAddress(account)
	st, err := statetrie.OpenStorageTrie(owner, storageRoot, t.db.Reader(root))
	if err != nil {
		return nil, err
	}
	return st.GetStorage(slot)
}

// BatchUpdateAndCommit applies post to the account trie rooted at
// parentRoot for block number. Per touched account, its storage trie
// is updated and committed in parallel with every other touched
// account; once every storage commit has finished, the resulting
// accounts (each now carrying its refreshed storage root) are written
// into the account trie serially, which is then committed and layered
// over the backend as a new DiffLayer.
func (t *TrieDB) BatchUpdateAndCommit(number uint64, parentRoot common.Hash, post *HashedPostState) (common.Hash, error) {
	start := time.Now()
	defer func() { t.sink.ObserveDuration("triedb_batch_commit_seconds", time.Since(start)) }()

	reader := t.db.Reader(parentRoot)
	accountTrie, err := statetrie.OpenAccountTrie(parentRoot, reader)
	if err != nil {
		return common.Hash{}, fmt.Errorf("state: open account trie: %w", err)
	}

	// Resolve every touched account's prior storage root before any
	// concurrent work starts: accountTrie is a single shared, COW
	// in-memory Trie, and spec §5 requires it be owned by one task at
	// a time, so the fallback read through it (storageRootProvenance's
	// last resort) must happen serially here rather than inside the
	// per-account goroutines below.
	priorRoots := make([]common.Hash, len(post.Accounts))
	owners := make([]common.Hash, len(post.Accounts))
	for i, upd := range post.Accounts {
		owners[i] = statetrie.HashAddress(upd.Address)
		if upd.Account == nil {
			continue
		}
		priorRoot, err := t.storageRootProvenance(reader, accountTrie, upd.Address, owners[i], post.RebuildSet[upd.Address])
		if err != nil {
			return common.Hash{}, fmt.Errorf("state: resolve storage root for %x: %w", upd.Address, err)
		}
		priorRoots[i] = priorRoot
	}

	type storageResult struct {
		update  AccountUpdate
		owner   common.Hash
		account *statetrie.Account
		set     *trienode.NodeSet
	}
	results := make([]storageResult, len(post.Accounts))

	var g errgroup.Group
	for i, upd := range post.Accounts {
		i, upd := i, upd
		g.Go(func() error {
			account, set, err := t.updateStorage(reader, upd, priorRoots[i])
			if err != nil {
				return fmt.Errorf("state: update storage for %x: %w", upd.Address, err)
			}
			results[i] = storageResult{update: upd, owner: owners[i], account: account, set: set}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.Hash{}, err
	}

	merged := trienode.NewMergedNodeSet()
	updatedStorageRoots := make(map[common.Hash]common.Hash)
	for _, r := range results {
		if r.set != nil {
			if err := merged.Merge(r.set); err != nil {
				return common.Hash{}, err
			}
		}
		if r.update.Account == nil {
			if err := accountTrie.DeleteAccount(r.update.Address); err != nil {
				return common.Hash{}, fmt.Errorf("state: delete account %x: %w", r.update.Address, err)
			}
			updatedStorageRoots[r.owner] = statetrie.EmptyRootHash
			continue
		}
		if err := accountTrie.UpdateAccount(r.update.Address, r.account); err != nil {
			return common.Hash{}, fmt.Errorf("state: update account %x: %w", r.update.Address, err)
		}
		updatedStorageRoots[r.owner] = r.account.Root
	}

	root, accountSet, err := accountTrie.Commit(true)
	if err != nil {
		return common.Hash{}, fmt.Errorf("state: commit account trie: %w", err)
	}
	if accountSet != nil {
		if err := merged.Merge(accountSet); err != nil {
			return common.Hash{}, err
		}
	}

	flat := merged.Flatten(triekey.Node)
	t.db.CommitLayer(root, number, flat, updatedStorageRoots)
	t.sink.IncCounter("triedb_nodes_written_total", uint64(len(flat)))

	if t.db.Depth() > RetentionWindow {
		if err := t.db.Flush(); err != nil {
			return common.Hash{}, fmt.Errorf("state: flush: %w", err)
		}
	}

	log.Debug("state: committed block", "number", number, "root", root, "accounts", len(post.Accounts))
	return root, nil
}

// storageRootProvenance resolves the storage root an account's
// storage trie should be opened at before this block's writes are
// applied, following the order spec §4.8.a lays out for everything
// after "any prior write to updated_storage_roots" (which the caller
// tracks itself across this single batch — within one block every
// account appears at most once, so that case never arises here):
// rebuilt accounts start from the empty root; otherwise the diff-layer
// chain's recorded storage root for owner is authoritative if set;
// otherwise the account is read from the account trie directly. A
// side flat storage-roots table (item iii) is not wired into this
// module — see DESIGN.md.
func (t *TrieDB) storageRootProvenance(reader *triedb.LayerReader, accountTrie *statetrie.SecureTrie, address common.Address, owner common.Hash, rebuild bool) (common.Hash, error) {
	if rebuild {
		return statetrie.EmptyRootHash, nil
	}
	if root, ok := reader.StorageRoot(owner); ok {
		return root, nil
	}
	existing, err := accountTrie.GetAccount(address)
	if err != nil {
		return common.Hash{}, err
	}
	if existing == nil {
		return statetrie.EmptyRootHash, nil
	}
	return existing.Root, nil
}

// updateStorage applies upd's storage writes (if any) to the account's
// storage trie, opened at priorRoot, and commits it, returning the
// account with its storage root refreshed. An account with no touched
// storage slots is returned unchanged, with no commit performed and
// priorRoot carried straight into its Root field (so a rebuilt account
// with no new slots still ends up pointing at the empty root). A nil
// upd.Account (the address is being deleted) is a no-op here; the
// caller deletes the address from the account trie directly.
func (t *TrieDB) updateStorage(reader trie.Reader, upd AccountUpdate, priorRoot common.Hash) (*statetrie.Account, *trienode.NodeSet, error) {
	if upd.Account == nil {
		return upd.Account, nil, nil
	}
	if len(upd.Storage) == 0 {
		updated := *upd.Account
		updated.Root = priorRoot
		return &updated, nil, nil
	}
	owner := statetrie.HashAddress(upd.Address)
	storageTrie, err := statetrie.OpenStorageTrie(owner, priorRoot, reader)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range upd.Storage {
		if s.Value == nil || s.Value.IsZero() {
			if err := storageTrie.DeleteStorage(s.Slot); err != nil {
				return nil, nil, err
			}
			continue
		}
		if err := storageTrie.UpdateStorage(s.Slot, s.Value); err != nil {
			return nil, nil, err
		}
	}
	root, set, err := storageTrie.Commit(true)
	if err != nil {
		return nil, nil, err
	}
	updated := *upd.Account
	updated.Root = root
	return &updated, set, nil
}
