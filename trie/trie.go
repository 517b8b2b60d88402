package trie

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/joey0612/rust-eth-triedb/trienode"
)

// Reader resolves a trie node's RLP blob given the owner (zero hash
// for the account trie, the account's address hash for a storage
// trie), its nibble path from the root, and its hash. Implementations
// are expected to read through whatever layered/backend storage the
// caller has configured; see package triedb.
type Reader interface {
	Node(owner common.Hash, path []byte, hash common.Hash) ([]byte, error)
}

// Trie is an in-memory Merkle Patricia Trie over one owner's keyspace.
// Reads that miss the in-memory tree resolve lazily through a Reader
// and are cached back into the tree; writes mutate a copy-on-write
// shadow of the affected path so an older Trie value sharing nodes
// with this one is never mutated in place.
type Trie struct {
	owner  common.Hash
	root   node
	reader Reader
	tracer *tracer

	// unhashed counts Update/Delete calls since the last Hash/Commit
	// call, purely for diagnostics.
	unhashed int
}

// New opens the trie owned by owner at the given root hash. A zero or
// empty-root hash opens an empty trie. reader may be nil only if the
// trie is known to never need to resolve a hash node (e.g. it was
// just built from scratch and never hashed).
func New(owner common.Hash, root common.Hash, reader Reader) (*Trie, error) {
	t := &Trie{owner: owner, reader: reader, tracer: newTracer()}
	if root == (common.Hash{}) || root == emptyRoot {
		return t, nil
	}
	rootnode, err := t.resolveHash(root[:], nil)
	if err != nil {
		return nil, err
	}
	t.root = rootnode
	return t, nil
}

// Copy returns an independent Trie sharing the current node tree
// structurally (nodes are immutable once hashed; mutations always
// copy-on-write) but with its own tracer, so the two tries' batches of
// reads/inserts/deletes don't interfere.
func (t *Trie) Copy() *Trie {
	return &Trie{
		owner:  t.owner,
		root:   t.root,
		reader: t.reader,
		tracer: t.tracer.copy(),
	}
}

// Get returns the value stored for key, or nil if key is absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	value, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil, err
	}
	if didResolve {
		t.root = newroot
	}
	return value, nil
}

func (t *Trie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return n, n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			nn := n.copy()
			nn.Val = newnode
			n = nn
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			nn := n.copy()
			nn.Children[key[pos]] = newnode
			n = nn
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.resolveAndTrack(n, key[:pos])
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		panic(fmt.Sprintf("trie: invalid node type %T in get", origNode))
	}
}

// Update associates key with value. An empty value is equivalent to
// Delete.
func (t *Trie) Update(key, value []byte) error {
	if len(value) == 0 {
		return t.Delete(key)
	}
	k := keybytesToHex(key)
	_, n, err := t.insert(t.root, nil, k, valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	t.unhashed++
	return nil
}

func (t *Trie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytes.Equal(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{n.Key, nn, nodeFlag{dirty: true}}, nil
		}
		branch := &fullNode{flags: nodeFlag{dirty: true}}
		var err error
		_, branch.Children[n.Key[matchlen]], err = t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		_, branch.Children[key[matchlen]], err = t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		if matchlen == 0 {
			return true, branch, nil
		}
		t.tracer.onInsert(append(prefix, key[:matchlen]...))
		return true, &shortNode{key[:matchlen], branch, nodeFlag{dirty: true}}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = nodeFlag{dirty: true}
		n.Children[key[0]] = nn
		return true, n, nil

	case nil:
		t.tracer.onInsert(prefix)
		return true, &shortNode{key, value, nodeFlag{dirty: true}}, nil

	case hashNode:
		rn, err := t.resolveAndTrack(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(rn, prefix, key, value)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: invalid node type %T in insert", n))
	}
}

// Delete removes key from the trie. Deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) error {
	k := keybytesToHex(key)
	_, n, err := t.delete(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	t.unhashed++
	return nil
}

func (t *Trie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if matchlen == len(key) {
			t.tracer.onDelete(prefix)
			return true, nil, nil
		}
		dirty, child, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			t.tracer.onDelete(append(prefix, n.Key...))
			return true, &shortNode{concat(n.Key, child.Key...), child.Val, nodeFlag{dirty: true}}, nil
		default:
			return true, &shortNode{n.Key, child, nodeFlag{dirty: true}}, nil
		}

	case *fullNode:
		dirty, nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.flags = nodeFlag{dirty: true}
		n.Children[key[0]] = nn

		pos := -1
		for i, cld := range &n.Children {
			if cld != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolve(n.Children[pos], append(prefix, byte(pos)))
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					t.tracer.onDelete(append(prefix, byte(pos)))
					k := concat([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{k, cnode.Val, nodeFlag{dirty: true}}, nil
				}
			}
			return true, &shortNode{[]byte{byte(pos)}, n.Children[pos], nodeFlag{dirty: true}}, nil
		}
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		rn, err := t.resolveAndTrack(n, prefix)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(rn, prefix, key)
		if !dirty || err != nil {
			return false, rn, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: invalid node type %T in delete", n))
	}
}

func concat(s1 []byte, s2 ...byte) []byte {
	r := make([]byte, len(s1)+len(s2))
	copy(r, s1)
	copy(r[len(s1):], s2)
	return r
}

// resolve returns n itself unless it is a hashNode, in which case it
// is resolved through the Reader and recorded in the tracer like any
// other read (used by delete's branch-collapse, whose surviving
// sibling may not have been read yet in the current batch).
func (t *Trie) resolve(n node, prefix []byte) (node, error) {
	if hn, ok := n.(hashNode); ok {
		return t.resolveAndTrack(hn, prefix)
	}
	return n, nil
}

func (t *Trie) resolveAndTrack(n hashNode, prefix []byte) (node, error) {
	blob, err := t.reader.Node(t.owner, prefix, common.BytesToHash(n))
	if err != nil {
		return nil, &MissingNodeError{Owner: t.owner, Path: append([]byte(nil), prefix...), Hash: common.BytesToHash(n), Err: err}
	}
	t.tracer.onRead(prefix, blob)
	return decodeNode(n, blob)
}

func (t *Trie) resolveHash(n hashNode, prefix []byte) (node, error) {
	if t.reader == nil {
		return nil, &MissingNodeError{Owner: t.owner, Path: append([]byte(nil), prefix...), Hash: common.BytesToHash(n)}
	}
	blob, err := t.reader.Node(t.owner, prefix, common.BytesToHash(n))
	if err != nil {
		return nil, &MissingNodeError{Owner: t.owner, Path: append([]byte(nil), prefix...), Hash: common.BytesToHash(n), Err: err}
	}
	return decodeNode(n, blob)
}

// Hash returns the trie's current root hash without collecting a
// NodeSet of the nodes that changed to get there; use Commit when the
// modified nodes themselves are also needed.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return emptyRoot
	}
	h := newHasher()
	hashed, cached := h.hash(t.root, true)
	t.root = cached
	t.unhashed = 0
	hn, ok := hashed.(hashNode)
	if !ok {
		// force=true guarantees shortNode/fullNode roots are always
		// emitted as a hashNode regardless of inline-size; the only
		// other node kinds never appear as a trie root.
		panic(fmt.Sprintf("trie: root hashed to unexpected type %T", hashed))
	}
	return common.BytesToHash(hn)
}

// Commit finalizes the trie, returning its root hash and the set of
// nodes that changed since it was opened or last committed. Pass collectLeaf to also
// collect every inserted/updated leaf value in the returned NodeSet,
// keyed by its immediate parent's hash; callers that only need the
// structural diff can leave it false to save the allocation.
func (t *Trie) Commit(collectLeaf bool) (common.Hash, *trienode.NodeSet, error) {
	if t.root == nil {
		nodes := trienode.NewNodeSet(t.owner)
		for _, path := range t.tracer.deletedNodes() {
			nodes.AddNode([]byte(path), trienode.NewDeleted())
		}
		t.tracer.reset()
		t.unhashed = 0
		return emptyRoot, nodes, nil
	}
	c := newCommitter(t.owner, t.tracer, collectLeaf)
	root, nodes, err := c.Commit(t.root)
	if err != nil {
		return common.Hash{}, nil, err
	}
	t.root = root
	t.tracer.reset()
	t.unhashed = 0
	return c.rootHash, nodes, nil
}
