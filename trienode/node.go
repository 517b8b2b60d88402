// Package trienode collects the trie nodes touched by a commit and
// translates them into the path-keyed form a DiffLayer persists.
//
// Grounded on the real go-ethereum trienode package surfaced in the
// retrieval pack (see trie/trienode usage from
// _examples/other_examples/..._triestate-state.go.go and the
// jaiminpan/mt-trie NodeSet/committer pair), and on
// _examples/original_source/state-trie/src/node/node_set.rs, which this
// module's owner/path/leaf layout mirrors field-for-field.
package trienode

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Node is a single modified trie node as seen by the commit pipeline:
// its hash and its RLP blob. A Node with a nil (or empty) Blob
// represents a deletion; readers should accept both forms, but new
// deletions are always written with a nil Blob.
type Node struct {
	Hash common.Hash
	Blob []byte
}

// New constructs a Node wrapping an encoded blob and its hash.
func New(hash common.Hash, blob []byte) *Node {
	return &Node{Hash: hash, Blob: blob}
}

// NewDeleted constructs a Node representing the removal of whatever
// used to live at a path.
func NewDeleted() *Node {
	return &Node{}
}

// IsDeleted reports whether this node represents a deletion.
func (n *Node) IsDeleted() bool {
	return len(n.Blob) == 0
}

// Size estimates the in-memory footprint of the node for bookkeeping
// purposes (not used for correctness).
func (n *Node) Size() int {
	if n.IsDeleted() {
		return 0
	}
	return len(n.Blob) + common.HashLength
}

// Leaf is a value blob collected during commit when the committer's
// collectLeaf flag is set, keyed by the hash of its immediate parent
// node. Used by callers that need to re-derive the flat key/value
// mapping without re-walking the trie (e.g. state-diff application).
type Leaf struct {
	Parent common.Hash
	Blob   []byte
}

// NodeSet is the set of trie nodes modified by committing a single
// trie (the account trie, or one account's storage trie). Nodes are
// keyed by their nibble path from the trie root; owner is the zero
// hash for the account trie and the Keccak-256 of the account address
// for a storage trie.
type NodeSet struct {
	Owner   common.Hash
	Nodes   map[string]*Node
	Leaves  []*Leaf
	Updates uint64
	Deletes uint64
}

// NewNodeSet creates an empty node set for the given owner.
func NewNodeSet(owner common.Hash) *NodeSet {
	return &NodeSet{
		Owner: owner,
		Nodes: make(map[string]*Node),
	}
}

// AddNode records a modified or deleted node at path. Callers must not
// add the same path twice into one NodeSet.
func (s *NodeSet) AddNode(path []byte, n *Node) {
	if n.IsDeleted() {
		s.Deletes++
	} else {
		s.Updates++
	}
	s.Nodes[string(path)] = n
}

// AddLeaf records a leaf value blob alongside the hash of the node
// that directly contains it.
func (s *NodeSet) AddLeaf(parent common.Hash, blob []byte) {
	s.Leaves = append(s.Leaves, &Leaf{Parent: parent, Blob: append([]byte(nil), blob...)})
}

// IsEmpty reports whether the set carries no modifications at all.
func (s *NodeSet) IsEmpty() bool {
	return len(s.Nodes) == 0 && len(s.Leaves) == 0
}

// ForEachBottomUp visits nodes in reverse-lexicographic path order,
// so every node comes before all of its ancestors, which is the order a disk write pass should use
// so that a crash between writes never leaves a parent pointing at a
// path that was never written.
func (s *NodeSet) ForEachBottomUp(fn func(path string, n *Node)) {
	paths := make([]string, 0, len(s.Nodes))
	for p := range s.Nodes {
		paths = append(paths, p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, p := range paths {
		fn(p, s.Nodes[p])
	}
}

// MergeSet extends this set with the contents of other, which must
// share the same owner. The two sets are assumed to be disjoint (no
// deduplication is performed, matching the committer's guarantee that
// a single commit visits each path at most once).
func (s *NodeSet) MergeSet(other *NodeSet) error {
	if s.Owner != other.Owner {
		return fmt.Errorf("trienode: cannot merge node sets for different owners %x != %x", s.Owner, other.Owner)
	}
	for path, n := range other.Nodes {
		s.Nodes[path] = n
	}
	s.Leaves = append(s.Leaves, other.Leaves...)
	s.Updates += other.Updates
	s.Deletes += other.Deletes
	return nil
}

// Signature computes a deterministic Keccak-256 digest over the sorted
// contents of the set: owner, leaves sorted by (parent, blob), nodes
// sorted by path, then the update/delete counters. It exists purely as
// a test oracle, to catch accidental reordering or counter drift; it
// is not used anywhere in the commit/flush path itself.
func (s *NodeSet) Signature() common.Hash {
	var buf bytes.Buffer
	buf.Write(s.Owner[:])

	leaves := append([]*Leaf(nil), s.Leaves...)
	sort.Slice(leaves, func(i, j int) bool {
		if c := bytes.Compare(leaves[i].Parent[:], leaves[j].Parent[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(leaves[i].Blob, leaves[j].Blob) < 0
	})
	for _, l := range leaves {
		buf.Write(l.Parent[:])
		buf.Write(l.Blob)
	}

	paths := make([]string, 0, len(s.Nodes))
	for p := range s.Nodes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		n := s.Nodes[p]
		buf.WriteString(p)
		buf.Write(n.Hash[:])
		buf.Write(n.Blob)
	}

	var counters [16]byte
	putUint64(counters[0:8], s.Updates)
	putUint64(counters[8:16], s.Deletes)
	buf.Write(counters[:])

	return crypto.Keccak256Hash(buf.Bytes())
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
}

// MergedNodeSet groups the per-owner NodeSets produced while committing
// one block: the account trie's set under the zero owner, plus one set
// per touched storage trie.
type MergedNodeSet struct {
	Sets map[common.Hash]*NodeSet
}

// NewMergedNodeSet creates an empty merged set.
func NewMergedNodeSet() *MergedNodeSet {
	return &MergedNodeSet{Sets: make(map[common.Hash]*NodeSet)}
}

// Merge adds set into the merged collection. A block may only produce
// one NodeSet per owner; merging a second set for an owner already
// present is a programmer error.
func (m *MergedNodeSet) Merge(set *NodeSet) error {
	if set == nil || set.IsEmpty() {
		return nil
	}
	if _, ok := m.Sets[set.Owner]; ok {
		return fmt.Errorf("trienode: duplicate node set for owner %x", set.Owner)
	}
	m.Sets[set.Owner] = set
	return nil
}

// Flatten translates every owner's path-keyed NodeSet into a single
// flat map of backend-key -> Node, the substrate a DiffLayer is built
// from. keyFn must produce the same backend key scheme the trie/triedb
// layers use for reads (see package triekey).
func (m *MergedNodeSet) Flatten(keyFn func(owner common.Hash, path []byte) []byte) map[string]*Node {
	out := make(map[string]*Node)
	for owner, set := range m.Sets {
		for path, n := range set.Nodes {
			out[string(keyFn(owner, []byte(path)))] = n
		}
	}
	return out
}
