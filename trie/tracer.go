package trie

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// tracer records which paths were resolved from the backend during a
// batch of mutations, and which were inserted or deleted purely
// in-memory, so a commit can tell a path that genuinely needs a
// tombstone written from one that was created and destroyed again
// without ever touching storage.
//
// Grounded directly on the trie_tracer.rs companion shipped alongside
// this module's node-set design: the insert/delete cancellation rule
// and the access-list gate on deletedNodes are both taken from there
// rather than invented.
type tracer struct {
	inserts    mapset.Set[string]
	deletes    mapset.Set[string]
	accessList map[string][]byte
}

func newTracer() *tracer {
	return &tracer{
		inserts:    mapset.NewThreadUnsafeSet[string](),
		deletes:    mapset.NewThreadUnsafeSet[string](),
		accessList: make(map[string][]byte),
	}
}

// onRead records that path was resolved from the backend, caching the
// blob that was read. Only the first read of a path in a batch is
// kept; later reads of the same path hit the in-memory tree, not the
// backend, so there is nothing new to cache.
func (t *tracer) onRead(path []byte, blob []byte) {
	key := string(path)
	if _, ok := t.accessList[key]; ok {
		return
	}
	t.accessList[key] = blob
}

// onInsert records that path now holds a node that did not exist
// before this batch started. If path was deleted earlier in the same
// batch, the insert cancels that delete instead of recording a new
// one (the path never left a hole visible outside the batch).
func (t *tracer) onInsert(path []byte) {
	key := string(path)
	if t.deletes.Contains(key) {
		t.deletes.Remove(key)
		return
	}
	t.inserts.Add(key)
}

// onDelete records that path no longer holds a node. If path was
// inserted earlier in the same batch, the delete cancels that insert.
func (t *tracer) onDelete(path []byte) {
	key := string(path)
	if t.inserts.Contains(key) {
		t.inserts.Remove(key)
		return
	}
	t.deletes.Add(key)
}

// reset clears all tracked state so the tracer can be reused for the
// next batch.
func (t *tracer) reset() {
	t.inserts.Clear()
	t.deletes.Clear()
	t.accessList = make(map[string][]byte)
}

// deletedNodes returns the paths that both came from the backend (so
// a stale blob is actually sitting there) and were deleted during
// this batch. Those are the only paths a commit needs to tombstone;
// a path that was inserted and deleted again within the same batch
// without ever being read leaves no trace in the backend.
func (t *tracer) deletedNodes() []string {
	var out []string
	t.deletes.Each(func(path string) bool {
		if _, ok := t.accessList[path]; ok {
			out = append(out, path)
		}
		return false
	})
	return out
}

// copy returns an independent copy of the tracer's state, used when a
// Trie is copy-on-write cloned mid-batch.
func (t *tracer) copy() *tracer {
	cp := newTracer()
	t.inserts.Each(func(s string) bool { cp.inserts.Add(s); return false })
	t.deletes.Each(func(s string) bool { cp.deletes.Add(s); return false })
	for k, v := range t.accessList {
		cp.accessList[k] = append([]byte(nil), v...)
	}
	return cp
}
