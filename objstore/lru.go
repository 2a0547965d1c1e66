package objstore

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// byteLRU wraps hashicorp/golang-lru (which evicts by entry count) with a
// manual byte-budget eviction loop, since the store's cache is specified in
// bytes of decompressed content, not object count.
type byteLRU struct {
	mu       sync.Mutex
	inner    *lru.Cache[Oid, []byte]
	budget   int
	curBytes int
}

func newByteLRU(budgetBytes int) *byteLRU {
	b := &byteLRU{budget: budgetBytes}
	// The underlying cache's own capacity is sized generously (never the
	// limiting factor); eviction is driven entirely by curBytes below via
	// RemoveOldest, since lru.Cache has no notion of per-entry byte cost.
	capacity := 1 << 20
	c, _ := lru.NewWithEvict[Oid, []byte](capacity, func(_ Oid, v []byte) {
		b.curBytes -= len(v)
	})
	b.inner = c
	return b
}

func (b *byteLRU) get(oid Oid) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inner.Get(oid)
}

func (b *byteLRU) put(oid Oid, data []byte) {
	if b.budget <= 0 || len(data) > b.budget {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inner.Contains(oid) {
		return
	}
	b.inner.Add(oid, data)
	b.curBytes += len(data)

	for b.curBytes > b.budget {
		if _, _, ok := b.inner.RemoveOldest(); !ok {
			break
		}
	}
}
