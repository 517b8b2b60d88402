package trie

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/joey0612/rust-eth-triedb/trienode"
)

// committer walks a trie's modified nodes bottom-up, replacing every
// dirty shortNode/fullNode with its hashNode (leaving it embedded when
// its RLP encoding is under 32 bytes), and records every standalone
// node it writes into a trienode.NodeSet keyed by nibble path.
//
// Grounded on the committer/NodeSet split surveyed from the retrieval
// pack's mt-trie committer (nodes/capture/collectLeaf fields, bottom-up
// commit/commitChildren/nodeCommit shape) and real go-ethereum's own
// trie.committer, generalized here to also fan the top-level branch's
// children out across goroutines and to consult the tracer for
// tombstones, per this module's path-keyed NodeSet design.
type committer struct {
	owner       common.Hash
	nodes       *trienode.NodeSet
	tracer      *tracer
	collectLeaf bool
	hasher      *hasher
	rootHash    common.Hash
}

func newCommitter(owner common.Hash, tr *tracer, collectLeaf bool) *committer {
	return &committer{
		owner:       owner,
		nodes:       trienode.NewNodeSet(owner),
		tracer:      tr,
		collectLeaf: collectLeaf,
		hasher:      newHasher(),
	}
}

// Commit finalizes root. It returns the in-memory node to keep using
// for further mutation (hash-cached but structurally intact) and the
// full set of nodes this commit touched, including tombstones for
// paths the tracer determined were actually deleted from the backend.
func (c *committer) Commit(root node) (node, *trienode.NodeSet, error) {
	hashed, cached, err := c.commit(nil, root, true)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range c.tracer.deletedNodes() {
		c.nodes.AddNode([]byte(path), trienode.NewDeleted())
	}
	hn, ok := hashed.(hashNode)
	if !ok {
		return nil, nil, fmt.Errorf("trie: commit did not produce a hashed root (%T)", hashed)
	}
	c.rootHash = common.BytesToHash(hn)
	return cached, c.nodes, nil
}

// commit mirrors hasher.hash's split return (wire form, cache-warmed
// in-memory form), additionally persisting every node whose encoding
// is stored standalone into c.nodes. force mirrors the hasher's force
// flag: only the trie root is committed with force=true, so the root
// is always addressable by hash even when its own encoding happens to
// be under 32 bytes.
func (c *committer) commit(path []byte, n node, force bool) (node, node, error) {
	if hn, dirty := n.cache(); hn != nil && !dirty {
		return hn, n, nil
	}
	switch cn := n.(type) {
	case *shortNode:
		collapsed, cached, err := c.commitShortNodeChildren(path, cn)
		if err != nil {
			return nil, nil, err
		}
		hashed, err := c.store(path, collapsed, force)
		if err != nil {
			return nil, nil, err
		}
		if c.collectLeaf {
			if v, ok := cn.Val.(valueNode); ok {
				parentHash, _, err := c.nodeHash(collapsed)
				if err != nil {
					return nil, nil, err
				}
				c.nodes.AddLeaf(parentHash, v)
			}
		}
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
			cached.flags.dirty = false
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached, nil

	case *fullNode:
		collapsed, cached, err := c.commitFullNodeChildren(path, cn)
		if err != nil {
			return nil, nil, err
		}
		hashed, err := c.store(path, collapsed, force)
		if err != nil {
			return nil, nil, err
		}
		if hn, ok := hashed.(hashNode); ok {
			cached.flags.hash = hn
			cached.flags.dirty = false
		} else {
			cached.flags.hash = nil
		}
		return hashed, cached, nil

	default:
		// hashNode, valueNode, nil: already in final form, untouched by
		// this commit.
		return n, n, nil
	}
}

func (c *committer) commitShortNodeChildren(path []byte, n *shortNode) (collapsed, cached *shortNode, err error) {
	collapsed, cached = n.copy(), n.copy()
	collapsed.Key = hexToCompact(n.Key)

	switch n.Val.(type) {
	case *fullNode, *shortNode:
		childPath := concat(path, n.Key...)
		collapsed.Val, cached.Val, err = c.commit(childPath, n.Val, false)
		if err != nil {
			return nil, nil, err
		}
	}
	return collapsed, cached, nil
}

func (c *committer) commitFullNodeChildren(path []byte, n *fullNode) (collapsed, cached *fullNode, err error) {
	collapsed, cached = n.copy(), n.copy()

	// Only the top-level branch point fans its children out in
	// parallel: that's the level with the most independent work
	// (up to 16 disjoint subtrees) and the shallowest call stack, so
	// goroutine setup cost is paid once per commit rather than once
	// per branch node throughout the tree.
	if len(path) == 0 {
		type result struct {
			idx    int
			hashed node
			cached node
		}
		var (
			g       errgroup.Group
			mu      sync.Mutex
			results []result
		)
		for i := 0; i < 16; i++ {
			i := i
			child := n.Children[i]
			if child == nil {
				continue
			}
			g.Go(func() error {
				sub := newCommitter(c.owner, c.tracer, c.collectLeaf)
				hashed, cc, err := sub.commit([]byte{byte(i)}, child, false)
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if err := c.nodes.MergeSet(sub.nodes); err != nil {
					return err
				}
				results = append(results, result{i, hashed, cc})
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
		for _, r := range results {
			collapsed.Children[r.idx] = r.hashed
			cached.Children[r.idx] = r.cached
		}
		return collapsed, cached, nil
	}

	for i := 0; i < 16; i++ {
		child := n.Children[i]
		if child == nil {
			continue
		}
		childPath := concat(path, byte(i))
		hashed, cc, err := c.commit(childPath, child, false)
		if err != nil {
			return nil, nil, err
		}
		collapsed.Children[i] = hashed
		cached.Children[i] = cc
	}
	return collapsed, cached, nil
}

// store RLP-encodes n and, if the encoding is 32 bytes or more (or
// force is set), records it standalone in c.nodes under path and
// returns its hashNode reference. An encoding under 32 bytes is left
// embedded in its parent instead.
func (c *committer) store(path []byte, n node, force bool) (node, error) {
	hash, blob, err := c.nodeHash(n)
	if err != nil {
		return nil, err
	}
	if len(blob) < 32 && !force {
		return n, nil
	}
	c.nodes.AddNode(append([]byte(nil), path...), trienode.New(hash, blob))
	return hashNode(hash[:]), nil
}

func (c *committer) nodeHash(n node) (common.Hash, []byte, error) {
	blob, err := encodeNode(n)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return common.BytesToHash(c.hasher.hashData(blob)), blob, nil
}
