package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// memoryItem is a list element payload: the entry plus its key.
type memoryItem[V any] struct {
	entry Entry[V]
	key   string
}

// Memory is an in-process Store.
//
// It uses a hash map for O(1) lookups and a doubly-linked list for O(1)
// LRU eviction when a maximum entry count is configured. Entries are never
// dropped because of age; ReadThrough decides what is expired or stale.
type Memory[V any] struct {
	items    map[string]*list.Element
	eviction *list.List
	onEvict  func(key string, e Entry[V])
	mu       sync.Mutex
	max      int
	closed   bool
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	maxEntries int
}

// WithMaxEntries caps the number of stored entries. When the cap is reached the
// least recently used entry is evicted. Zero means unlimited.
// Default: 0 (unlimited).
func WithMaxEntries(n int) MemoryOption {
	return func(o *memoryOptions) {
		o.maxEntries = max(n, 0)
	}
}

// NewMemory creates an in-memory store.
//
// Example:
//
//	store := cache.NewMemory[[]Property](cache.WithMaxEntries(10000))
//	c := cache.New(store, cache.WithName("listings"))
//	defer c.Close()
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	o := &memoryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &Memory[V]{
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		max:      o.maxEntries,
	}
}

// SetEvictCallback sets a function called whenever an entry leaves the store:
// LRU eviction, deletion, predicate deletion and clearing.
func (m *Memory[V]) SetEvictCallback(fn func(key string, e Entry[V])) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Load returns the entry for key and marks it as recently used.
func (m *Memory[V]) Load(_ context.Context, key string) (Entry[V], bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Entry[V]{}, false, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return Entry[V]{}, false, nil
	}

	m.eviction.MoveToFront(elem)

	return elem.Value.(*memoryItem[V]).entry, true, nil
}

// Save stores e under key. The retention hint is ignored: entries stay until
// they are deleted or evicted.
func (m *Memory[V]) Save(_ context.Context, key string, e Entry[V], _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		elem.Value.(*memoryItem[V]).entry = e
		m.eviction.MoveToFront(elem)
		return nil
	}

	if m.max > 0 && len(m.items) >= m.max {
		m.evictOldest()
	}

	m.items[key] = m.eviction.PushFront(&memoryItem[V]{key: key, entry: e})

	return nil
}

// Delete removes key from the store.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if elem, ok := m.items[key]; ok {
		m.removeElement(elem)
	}

	return nil
}

// DeleteFunc removes every entry matching fn, walking from least to most
// recently used.
func (m *Memory[V]) DeleteFunc(_ context.Context, fn func(key string, e Entry[V]) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	removed := 0
	for elem := m.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		it := elem.Value.(*memoryItem[V])
		if fn(it.key, it.entry) {
			m.removeElement(elem)
			removed++
		}
		elem = prev
	}

	return removed, nil
}

// Range calls fn for each entry, most recently used first.
// fn must not call back into the store.
func (m *Memory[V]) Range(_ context.Context, fn func(key string, e Entry[V]) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for elem := m.eviction.Front(); elem != nil; elem = elem.Next() {
		it := elem.Value.(*memoryItem[V])
		if !fn(it.key, it.entry) {
			break
		}
	}

	return nil
}

// Len returns the number of stored entries.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear removes all entries.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.onEvict != nil {
		for _, elem := range m.items {
			it := elem.Value.(*memoryItem[V])
			m.onEvict(it.key, it.entry)
		}
	}

	m.items = make(map[string]*list.Element)
	m.eviction.Init()

	return nil
}

// Close marks the store as closed. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// evictOldest removes the least recently used entry.
// Caller must hold the mutex.
func (m *Memory[V]) evictOldest() {
	if elem := m.eviction.Back(); elem != nil {
		m.removeElement(elem)
	}
}

// removeElement removes elem and triggers the eviction callback.
// Caller must hold the mutex.
func (m *Memory[V]) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	it := elem.Value.(*memoryItem[V])
	delete(m.items, it.key)

	if m.onEvict != nil {
		m.onEvict(it.key, it.entry)
	}
}

var _ Store[any] = (*Memory[any])(nil)
