package triedb

import "sync"

// MemBackend is a trivial in-memory Backend, useful for tests and for
// ephemeral callers that don't want a real disk-backed store.
type MemBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemBackend returns an empty MemBackend.
func NewMemBackend() *MemBackend {
	return &MemBackend{data: make(map[string][]byte)}
}

// Get implements Backend.
func (b *MemBackend) Get(key []byte) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// NewBatch implements Backend.
func (b *MemBackend) NewBatch() Batch {
	return &memBatch{backend: b, writes: make(map[string][]byte), deletes: make(map[string]bool)}
}

type memBatch struct {
	backend *MemBackend
	writes  map[string][]byte
	deletes map[string]bool
}

func (w *memBatch) Put(key, value []byte) error {
	k := string(key)
	w.writes[k] = append([]byte(nil), value...)
	delete(w.deletes, k)
	return nil
}

func (w *memBatch) Delete(key []byte) error {
	k := string(key)
	w.deletes[k] = true
	delete(w.writes, k)
	return nil
}

func (w *memBatch) Commit() error {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	for k, v := range w.writes {
		w.backend.data[k] = v
	}
	for k := range w.deletes {
		delete(w.backend.data, k)
	}
	return nil
}

func (w *memBatch) Reset() {
	w.writes = make(map[string][]byte)
	w.deletes = make(map[string]bool)
}
