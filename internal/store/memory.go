package store

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore provides thread-safe storage with a publish-subscribe
// mechanism for real-time updates. Card results are keyed by name, with new
// results replacing previous values.
//
// Subscribers receive updates via buffered channels (buffer size 100).
// Updates are sent non-blocking; if a subscriber's buffer is full, the
// update is dropped for that subscriber to prevent blocking the entire
// system.
type MemoryStore struct {
	mu          sync.RWMutex
	cards       map[string]CardResult
	subscribers map[chan CardResult]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. No cleanup is required when done.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards:       make(map[string]CardResult),
		subscribers: make(map[chan CardResult]struct{}),
	}
}

// Update stores a [CardResult] and notifies all subscribers.
//
// The result is stored using its Name as the key. Subsequent updates with
// the same name replace the previous value. All subscribers receive the
// update (unless their buffer is full).
func (m *MemoryStore) Update(result CardResult) {
	m.mu.Lock()
	m.cards[result.Name] = result
	m.mu.Unlock()

	m.notifySubscribers(result)
}

// GetAll returns a snapshot of all currently stored card results, sorted by
// name so API output is stable across refreshes.
//
// The returned slice is a copy; modifications do not affect the store.
func (m *MemoryStore) GetAll() []CardResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]CardResult, 0, len(m.cards))
	for _, card := range m.cards {
		results = append(results, card)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource
// leaks.
func (m *MemoryStore) Subscribe() <-chan CardResult {
	ch := make(chan CardResult, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown
// channel.
func (m *MemoryStore) Unsubscribe(ch <-chan CardResult) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the result to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the
// message is dropped for that subscriber rather than blocking the update
// path.
func (m *MemoryStore) notifySubscribers(result CardResult) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- result:
		default:
			// subscriber is slow, drop the message
		}
	}
}
