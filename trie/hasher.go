package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// emptyRoot is the root hash of a trie with no entries: the Keccak-256
// of the RLP encoding of the empty string.
var emptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// EmptyRootHash is the exported form of emptyRoot, for callers (such
// as package statetrie) that need to recognize or construct an empty
// trie root without opening a Trie.
var EmptyRootHash = emptyRoot

// hasher turns an in-memory node tree into its collapsed (hashed- or
// inlined-children) wire form, caching each node's hash as it goes so
// an unmodified subtree is only ever hashed once.
type hasher struct {
	sha crypto.KeccakState
}

func newHasher() *hasher {
	return &hasher{sha: crypto.NewKeccakState()}
}

// hash returns the node's wire form — a hashNode if its encoding is 32
// bytes or more (or force is set), otherwise the node itself, inlined —
// alongside a copy of n with flags.hash populated so the caller can
// keep walking the in-memory tree with the cache now warm.
func (h *hasher) hash(n node, force bool) (node, node) {
	if hash, dirty := n.cache(); hash != nil && !dirty {
		return hash, n
	}
	switch n := n.(type) {
	case *shortNode:
		collapsed, cached := h.hashShortNodeChildren(n)
		hashed := h.shortnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
			cached.flags.dirty = false
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	case *fullNode:
		collapsed, cached := h.hashFullNodeChildren(n)
		hashed := h.fullnodeToHash(collapsed, force)
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
			cached.flags.dirty = false
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached
	default:
		// hashNode, valueNode, nil: already in wire form.
		return n, n
	}
}

func (h *hasher) hashShortNodeChildren(n *shortNode) (collapsed, cached *shortNode) {
	collapsed, cached = n.copy(), n.copy()
	collapsed.Key = hexToCompact(n.Key)
	switch n.Val.(type) {
	case *fullNode, *shortNode:
		collapsed.Val, cached.Val = h.hash(n.Val, false)
	}
	return collapsed, cached
}

func (h *hasher) hashFullNodeChildren(n *fullNode) (collapsed, cached *fullNode) {
	collapsed, cached = n.copy(), n.copy()
	for i := 0; i < 16; i++ {
		if child := n.Children[i]; child != nil {
			collapsed.Children[i], cached.Children[i] = h.hash(child, false)
		}
	}
	return collapsed, cached
}

func (h *hasher) shortnodeToHash(n *shortNode, force bool) node {
	blob, err := encodeNode(n)
	if err != nil {
		panic("trie: encode error: " + err.Error())
	}
	if len(blob) < 32 && !force {
		return n
	}
	return h.hashData(blob)
}

func (h *hasher) fullnodeToHash(n *fullNode, force bool) node {
	blob, err := encodeNode(n)
	if err != nil {
		panic("trie: encode error: " + err.Error())
	}
	if len(blob) < 32 && !force {
		return n
	}
	return h.hashData(blob)
}

func (h *hasher) hashData(data []byte) hashNode {
	h.sha.Reset()
	h.sha.Write(data)
	hash := make([]byte, 32)
	h.sha.Read(hash)
	return hash
}
