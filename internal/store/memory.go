package store

import (
	"sync"
)

// DefaultCapacity is the number of attempts a [MemoryStore] retains by default.
const DefaultCapacity = 50

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Attempts are kept in a ring buffer; once it is full the oldest attempt is
// overwritten. Subscribers receive attempts via buffered channels (buffer
// size 100). Sends are non-blocking; if a subscriber's buffer is full, the
// attempt is dropped for that subscriber.
type MemoryStore struct {
	mu      sync.RWMutex
	records []AttemptRecord
	next    int
	full    bool

	subscribers map[chan AttemptRecord]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] retaining up to capacity attempts.
// A capacity below 1 uses [DefaultCapacity].
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		records:     make([]AttemptRecord, capacity),
		subscribers: make(map[chan AttemptRecord]struct{}),
	}
}

// Add records an attempt and notifies all subscribers.
func (m *MemoryStore) Add(record AttemptRecord) {
	m.mu.Lock()
	m.records[m.next] = record
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	m.mu.Unlock()

	m.notifySubscribers(record)
}

// Recent returns up to n of the most recent attempts, newest first.
//
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) Recent(n int) []AttemptRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.records)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]AttemptRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving attempts.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan AttemptRecord {
	ch := make(chan AttemptRecord, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan AttemptRecord) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

func (m *MemoryStore) notifySubscribers(record AttemptRecord) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- record:
		default:
			// subscriber is slow, drop the record
		}
	}
}
