package trie

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// decodeNode parses the RLP blob read for hash into a node, dispatching
// on the element count of the outer list: 2 elements is a shortNode
// (extension or leaf), 17 is a fullNode. hash may be nil when decoding
// an embedded node that was never separately persisted.
func decodeNode(hash, buf []byte) (node, error) {
	if len(buf) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	elems, _, err := rlp.SplitList(buf)
	if err != nil {
		return nil, &decodeError{Hash: common.BytesToHash(hash), Err: err}
	}
	switch c, _ := rlp.CountValues(elems); c {
	case 2:
		n, err := decodeShort(hash, elems)
		if err != nil {
			return nil, &decodeError{Hash: common.BytesToHash(hash), Err: fmt.Errorf("short node: %w", err)}
		}
		return n, nil
	case 17:
		n, err := decodeFull(hash, elems)
		if err != nil {
			return nil, &decodeError{Hash: common.BytesToHash(hash), Err: fmt.Errorf("full node: %w", err)}
		}
		return n, nil
	default:
		return nil, &decodeError{Hash: common.BytesToHash(hash), Err: fmt.Errorf("invalid number of list elements: %d", c)}
	}
}

func decodeShort(hash, elems []byte) (node, error) {
	kbuf, rest, err := rlp.SplitString(elems)
	if err != nil {
		return nil, err
	}
	flag := nodeFlag{hash: hashNode(hash)}
	key := compactToHex(kbuf)
	if hasTerm(key) {
		// leaf node
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid value node: %v", err)
		}
		return &shortNode{Key: key, Val: append(valueNode(nil), val...), flags: flag}, nil
	}
	r, _, err := decodeRef(rest)
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: r, flags: flag}, nil
}

func decodeFull(hash, elems []byte) (*fullNode, error) {
	n := &fullNode{flags: nodeFlag{hash: hashNode(hash)}}
	for i := 0; i < 16; i++ {
		cld, rest, err := decodeRef(elems)
		if err != nil {
			return nil, fmt.Errorf("decode child %d: %v", i, err)
		}
		n.Children[i], elems = cld, rest
	}
	val, _, err := rlp.SplitString(elems)
	if err != nil {
		return nil, err
	}
	if len(val) > 0 {
		n.Children[16] = append(valueNode(nil), val...)
	}
	return n, nil
}

const hashLen = 32

// decodeRef decodes a single child reference from the front of buf,
// returning the remaining bytes. A reference is one of: the empty
// string (no child), a 32-byte string (a hash reference), or a list of
// total encoded size <= 32 bytes (an embedded node). Anything else is
// malformed input.
func decodeRef(buf []byte) (node, []byte, error) {
	kind, val, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, buf, err
	}
	switch {
	case kind == rlp.List:
		size := len(buf) - len(rest)
		if size > hashLen {
			return nil, buf, fmt.Errorf("oversized embedded node (size %d)", size)
		}
		n, err := decodeNode(nil, buf[:size])
		return n, rest, err
	case kind == rlp.String && len(val) == 0:
		return nil, rest, nil
	case kind == rlp.String && len(val) == hashLen:
		return append(hashNode(nil), val...), rest, nil
	default:
		return nil, nil, fmt.Errorf("invalid RLP string size %d (want 0 or 32)", len(val))
	}
}

// mustDecodeNode is decodeNode with a panic on error, for call sites
// that have already validated the blob came from a prior successful
// encode (e.g. re-decoding a value this process just wrote).
func mustDecodeNode(hash, buf []byte) node {
	n, err := decodeNode(hash, buf)
	if err != nil {
		panic(fmt.Sprintf("trie: bad node blob for hash %x: %v", hash, err))
	}
	return n
}
