package trie

import (
	"io"

	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeRLP implements rlp.Encoder. A fullNode is serialized as a
// 17-element list: children 0..15 (each an empty string, an inline
// embedded node, or a 32-byte hash string), then the value at slot 16
// (empty string if this branch point carries no value).
//
// By the time a fullNode reaches EncodeRLP it has already been
// collapsed by the hasher/committer: every child is nil, a hashNode, a
// valueNode, or a small embeddable *shortNode/*fullNode — never a
// not-yet-collapsed child whose encoding is 32 bytes or more.
func (n *fullNode) EncodeRLP(w io.Writer) error {
	var children [17]node
	for i, c := range &n.Children {
		if c != nil {
			children[i] = c
		} else {
			children[i] = valueNode(nil)
		}
	}
	return rlp.Encode(w, children)
}

// EncodeRLP implements rlp.Encoder. A shortNode is serialized as the
// 2-element list [compact(Key), Val]. Key must already be in compact
// (hex-prefix) form; the in-memory nibble form is only ever used while
// the node is un-collapsed.
func (n *shortNode) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{n.Key, n.Val})
}

// encodeNode RLP-encodes a node exactly as it would appear inside its
// parent's reference slot or as a standalone blob. hashNode and
// valueNode encode as RLP strings via rlp's native []byte handling;
// *shortNode/*fullNode recurse through their EncodeRLP methods above.
func encodeNode(n node) ([]byte, error) {
	if n == nil {
		return []byte{0x80}, nil
	}
	return rlp.EncodeToBytes(n)
}
