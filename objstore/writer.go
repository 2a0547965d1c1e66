package objstore

import (
	"sync"

	"github.com/alitto/pond"
)

// Writer fronts a Store with a bounded worker pool so callers can hand off
// an object's bytes and continue without blocking on compression/delta/disk
// I/O. It gives read-your-writes consistency via a "pending" map: a Get for
// an oid whose write hasn't reached disk yet is served from memory instead
// of blocking on the store's own insert-in-progress condition variable.
type Writer struct {
	store *Store
	pool  *pond.WorkerPool

	mu      sync.Mutex
	pending map[Oid]pendingEntry
	err     error
}

type pendingEntry struct {
	kind Kind
	data []byte
}

// NewWriter wraps store with a worker pool of the given size. maxQueue
// bounds how many inserts may be queued before Insert starts blocking the
// caller, giving the whole pipeline the same "forward progress unless
// already backed up" guarantee as pipe.Pipe.
func NewWriter(store *Store, workers, maxQueue int) *Writer {
	return &Writer{
		store:   store,
		pool:    pond.New(workers, maxQueue, pond.MinWorkers(workers)),
		pending: make(map[Oid]pendingEntry),
	}
}

// Insert computes data's oid, records it as pending immediately (so
// concurrent Get calls observe it), and schedules the actual store insert
// on the worker pool. It never blocks beyond the pool's queue bound.
func (w *Writer) Insert(kind Kind, data []byte, deltaBase Oid) Oid {
	oid := HashObject(kind, data)

	w.mu.Lock()
	if _, exists := w.pending[oid]; exists {
		w.mu.Unlock()
		return oid
	}
	if w.store.Has(oid) {
		w.mu.Unlock()
		return oid
	}
	w.pending[oid] = pendingEntry{kind: kind, data: data}
	w.mu.Unlock()

	w.pool.Submit(func() {
		_, err := w.store.InsertRaw(kind, data, deltaBase)

		w.mu.Lock()
		delete(w.pending, oid)
		if err != nil && w.err == nil {
			w.err = err
		}
		w.mu.Unlock()
	})

	return oid
}

// Get returns the body for oid, preferring the in-memory pending copy over
// a round trip through the store if the write hasn't landed yet.
func (w *Writer) Get(oid Oid) ([]byte, Kind, error) {
	w.mu.Lock()
	if entry, ok := w.pending[oid]; ok {
		w.mu.Unlock()
		return entry.data, entry.kind, nil
	}
	w.mu.Unlock()
	return w.store.GetRaw(oid)
}

// Finish waits for all queued inserts to complete and returns the first
// error encountered, if any, along with the underlying Store for
// subsequent read access (pack assembly).
func (w *Writer) Finish() (*Store, error) {
	w.pool.StopAndWait()
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store, w.err
}
