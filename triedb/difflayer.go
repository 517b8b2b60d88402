package triedb

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/joey0612/rust-eth-triedb/trienode"
)

// DiffLayer is one block's worth of committed trie-node modifications,
// flattened to backend keys and stacked on top of an older DiffLayer
// (or directly on the backend if parent is nil). Layers are read
// newest-first: a lookup walks from the layer it started at back
// toward the backend, returning the first hit.
type DiffLayer struct {
	root         common.Hash
	number       uint64
	nodes        map[string]*trienode.Node
	storageRoots map[common.Hash]common.Hash
	parent       *DiffLayer
}

// NewDiffLayer wraps a flattened node set (see trienode.MergedNodeSet.Flatten)
// plus the per-owner storage roots this block installed into the
// account trie, as a new layer stacked on top of parent. storageRoots
// may be nil for a layer that touched no storage tries.
func NewDiffLayer(root common.Hash, number uint64, nodes map[string]*trienode.Node, storageRoots map[common.Hash]common.Hash, parent *DiffLayer) *DiffLayer {
	return &DiffLayer{root: root, number: number, nodes: nodes, storageRoots: storageRoots, parent: parent}
}

// Root returns the state root this layer represents.
func (d *DiffLayer) Root() common.Hash { return d.root }

// Number returns the block number this layer represents.
func (d *DiffLayer) Number() uint64 { return d.number }

// Parent returns the layer beneath this one, or nil if this layer
// sits directly on the backend.
func (d *DiffLayer) Parent() *DiffLayer { return d.parent }

// node looks up key within this layer only. ok is true even for a
// tombstone (a deletion recorded in this layer), so callers can stop
// walking older layers/the backend as soon as they see it.
func (d *DiffLayer) node(key string) (n *trienode.Node, ok bool) {
	n, ok = d.nodes[key]
	return n, ok
}

// storageRoot looks up owner's updated storage root within this layer
// only, matching spec §4.8.a item (ii): the diff layer's
// diff_storage_roots is authoritative for the current block whenever
// it is set.
func (d *DiffLayer) storageRoot(owner common.Hash) (common.Hash, bool) {
	h, ok := d.storageRoots[owner]
	return h, ok
}

// DiffLayers is a newest-first chain of DiffLayer, rooted at the
// backend. It is the structure Database.Flush squashes once a layer
// falls out of the retained window.
type DiffLayers struct {
	top *DiffLayer
}

// Push installs layer as the new topmost layer. The caller is
// responsible for ensuring layer.Parent() is the previous top.
func (l *DiffLayers) Push(layer *DiffLayer) { l.top = layer }

// Top returns the current topmost layer, or nil if no layer has been
// pushed yet.
func (l *DiffLayers) Top() *DiffLayer { return l.top }

// Depth returns the number of layers currently stacked.
func (l *DiffLayers) Depth() int {
	n := 0
	for d := l.top; d != nil; d = d.parent {
		n++
	}
	return n
}

// Bottom walks to the oldest retained layer (the one whose parent is
// the backend itself), or nil if the chain is empty.
func (l *DiffLayers) Bottom() *DiffLayer {
	d := l.top
	if d == nil {
		return nil
	}
	for d.parent != nil {
		d = d.parent
	}
	return d
}

// PopBottom detaches and returns the oldest retained layer, leaving
// everything above it in place. Used by Flush to squash the oldest
// layer into the backend and drop it from the chain.
func (l *DiffLayers) PopBottom() *DiffLayer {
	bottom := l.Bottom()
	if bottom == nil {
		return nil
	}
	if bottom == l.top {
		l.top = nil
		return bottom
	}
	for d := l.top; d != nil; d = d.parent {
		if d.parent == bottom {
			d.parent = nil
			break
		}
	}
	return bottom
}
