// Package trie implements the Ethereum-style Merkle Patricia Trie: the
// in-memory node model, nibble/compact key encoding, node RLP
// encode/decode, bottom-up hashing, and a commit pass that collects
// modified nodes into a trienode.NodeSet.
//
// Node and key-encoding layout follow the Yellow Paper's MPT exactly,
// the way every fork in the retrieval pack implements it; see in
// particular the teacher's trie/node.go (shortNode/fullNode/nodeFlag
// split) and the real go-ethereum sources under
// _examples/other_examples (committer.go, trienode usage).
package trie

import "github.com/ethereum/go-ethereum/common"

// node is implemented by every trie node representation: the four
// concrete node kinds plus the sentinel nil for Empty.
type node interface {
	// cache returns the node's cached hash (nil if never hashed) and
	// whether the node has been mutated since that hash was computed.
	cache() (hashNode, bool)
}

// fullNode is a branch node: 16 children indexed by nibble plus an
// optional value at slot 16 for a key that terminates exactly here.
type fullNode struct {
	Children [17]node
	flags    nodeFlag
}

// shortNode is either an extension (Val is a *fullNode or hashNode) or
// a leaf (Val is a valueNode); which one it is is recorded by whether
// Key carries the terminator nibble.
type shortNode struct {
	Key   []byte
	Val   node
	flags nodeFlag
}

// hashNode is an unresolved reference to a node stored elsewhere,
// carrying only its 32-byte Keccak-256 hash.
type hashNode []byte

// valueNode is a leaf payload. It is only ever found as a shortNode's
// Val or a fullNode's Children[16].
type valueNode []byte

// nodeFlag caches a node's hash once it has been computed so repeated
// Hash()/Commit() calls over an unmodified subtree are free.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, false }
func (n valueNode) cache() (hashNode, bool)  { return nil, false }

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

// nilNode represents a currently-empty child slot; Go's nil interface
// value already serves this role, this helper just documents intent
// at call sites that build a fresh fullNode.
var nilNode node

func hashNodeToCommon(h hashNode) common.Hash {
	return common.BytesToHash(h)
}
