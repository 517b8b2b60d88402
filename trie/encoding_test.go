package trie

import (
	"bytes"
	"testing"
)

func TestHexCompactRoundTrip(t *testing.T) {
	tests := [][]byte{
		{},
		{0x1, 0x2, 0x3, 0x4, 0x5},
		{0x0, 0xf, 0x1, 0xc, 0xb, 0x8, 0x10},
		{0xf, 0x1, 0xc, 0xb, 0x8, 0x10},
	}
	for _, hex := range tests {
		compact := hexToCompact(hex)
		got := compactToHex(compact)
		if !bytes.Equal(got, hex) {
			t.Errorf("roundtrip mismatch: hex=%x compact=%x got=%x", hex, compact, got)
		}
	}
}

func TestKeybytesToHexRoundTrip(t *testing.T) {
	key := []byte{0xde, 0xad, 0xbe, 0xef}
	hex := keybytesToHex(key)
	if !hasTerm(hex) {
		t.Fatal("expected terminator nibble")
	}
	back := hexToKeybytes(hex)
	if !bytes.Equal(back, key) {
		t.Errorf("got %x, want %x", back, key)
	}
}

func TestPrefixLen(t *testing.T) {
	cases := []struct {
		a, b []byte
		want int
	}{
		{[]byte{1, 2, 3}, []byte{1, 2, 4}, 2},
		{[]byte{1, 2}, []byte{1, 2, 3}, 2},
		{[]byte{}, []byte{1}, 0},
	}
	for _, c := range cases {
		if got := prefixLen(c.a, c.b); got != c.want {
			t.Errorf("prefixLen(%x,%x) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
