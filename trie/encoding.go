package trie

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/joey0612/rust-eth-triedb/triekey"
)

// terminator is appended to a nibble path to mark it as a leaf key
// (hex-prefix "HP" encoding, Yellow Paper Appendix C).
const terminator = 16

// keybytesToHex expands a byte key into nibbles, one per array
// element, with the terminator appended.
func keybytesToHex(k []byte) []byte {
	n := make([]byte, len(k)*2+1)
	for i, b := range k {
		n[i*2] = b / 16
		n[i*2+1] = b % 16
	}
	n[len(n)-1] = terminator
	return n
}

// hexToKeybytes packs a (possibly terminated) nibble path back into
// bytes. The nibble count, terminator excluded, must be even.
func hexToKeybytes(hex []byte) []byte {
	if hasTerm(hex) {
		hex = hex[:len(hex)-1]
	}
	if len(hex)&1 != 0 {
		panic("trie: odd-length hex key")
	}
	key := make([]byte, len(hex)/2)
	decodeNibbles(hex, key)
	return key
}

func decodeNibbles(nibbles, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// hexToCompact packs a nibble path into hex-prefix form for inclusion
// in a shortNode's on-wire Key.
func hexToCompact(hex []byte) []byte {
	var term byte
	if hasTerm(hex) {
		term = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = term << 5
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4
		buf[0] |= hex[0]
		hex = hex[1:]
	}
	decodeNibbles(hex, buf[1:])
	return buf
}

// compactToHex is the inverse of hexToCompact.
func compactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	base := keybytesToHex(compact)
	base = base[:len(base)-1] // keybytesToHex's own terminator, not HP's
	// chop=2 means even length (leading nibble is padding), chop=1 odd.
	chop := 2 - base[0]&1
	if base[0]&2 != 0 {
		res := make([]byte, len(base)-int(chop)+1)
		copy(res, base[chop:])
		res[len(res)-1] = terminator
		return res
	}
	return base[chop:]
}

func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminator
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var i int
	for i = 0; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

// accountTrieKey and storageTrieKey defer to package triekey so there
// is exactly one place the backend key scheme is defined (spec §4.1:
// the only two ways a node path becomes a backend key).
func accountTrieKey(path []byte) []byte { return triekey.Account(path) }

func storageTrieKey(owner common.Hash, path []byte) []byte {
	return triekey.Storage(owner, path)
}
