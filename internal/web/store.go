package web

// store.go keeps finished batch results in memory so operators can fetch
// the JSON summary and download the annotated workbook after the
// processing request returns. Nothing is persisted: entries expire after
// the configured TTL and everything dies with the process.

import (
	"sync"
	"time"

	"github.com/ciclogistica/retiros/internal/engine"
)

// storedBatch is one finished run: its result, the rendered workbook, and
// bookkeeping for expiry.
type storedBatch struct {
	ID        string
	FileName  string
	Result    *engine.BatchResult
	Workbook  []byte
	CreatedAt time.Time
}

// resultStore is a TTL'd in-memory map of finished batches.
type resultStore struct {
	mu      sync.RWMutex
	batches map[string]*storedBatch
	ttl     time.Duration
}

func newResultStore(ttl time.Duration) *resultStore {
	return &resultStore{
		batches: make(map[string]*storedBatch),
		ttl:     ttl,
	}
}

// Put stores a finished batch and schedules its expiry.
func (s *resultStore) Put(b *storedBatch) {
	s.mu.Lock()
	s.batches[b.ID] = b
	s.mu.Unlock()

	time.AfterFunc(s.ttl, func() {
		s.mu.Lock()
		delete(s.batches, b.ID)
		s.mu.Unlock()
	})
}

// Get returns a stored batch, or nil if unknown or expired.
func (s *resultStore) Get(id string) *storedBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches[id]
}
