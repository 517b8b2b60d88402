package trie

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// The trie package reports failures through a small, closed set of
// sentinel kinds rather than ad-hoc error strings, so callers up the
// stack (the driver, the backend adapters) can branch on what went
// wrong without string matching.
var (
	// ErrBackend wraps any error returned by a Reader while resolving a
	// node; the underlying error is always available via errors.Unwrap.
	ErrBackend = errors.New("trie: backend read failed")

	// ErrDecode means a blob read from a Reader was not valid RLP for a
	// trie node.
	ErrDecode = errors.New("trie: malformed node encoding")

	// ErrMissingNode means a Reader returned no value for a hash it is
	// expected to hold — the trie is missing state it needs to proceed.
	ErrMissingNode = errors.New("trie: missing trie node")

	// ErrInvariant marks an internal invariant violation: a programmer
	// error in this package, not a caller mistake.
	ErrInvariant = errors.New("trie: invariant violation")
)

// MissingNodeError is returned when a hash reference inside the trie
// cannot be resolved to a blob through the configured Reader.
type MissingNodeError struct {
	Owner common.Hash
	Path  []byte
	Hash  common.Hash
	Err   error
}

func (e *MissingNodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trie: missing node owner=%x path=%x hash=%x: %v", e.Owner, e.Path, e.Hash, e.Err)
	}
	return fmt.Sprintf("trie: missing node owner=%x path=%x hash=%x", e.Owner, e.Path, e.Hash)
}

func (e *MissingNodeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMissingNode
}

// Is matches ErrMissingNode for every MissingNodeError, and ErrBackend
// when the Reader itself returned an error.
func (e *MissingNodeError) Is(target error) bool {
	return target == ErrMissingNode || (target == ErrBackend && e.Err != nil)
}

// decodeError records that a blob resolved from the backend failed to
// parse as RLP-encoded trie node data.
type decodeError struct {
	Hash common.Hash
	Err  error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("trie: decode node %x: %v", e.Hash, e.Err)
}

func (e *decodeError) Unwrap() error { return ErrDecode }
