package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vietddude/aggregator/internal/core/domain"
)

type memoryItem struct {
	entry      Entry
	lastAccess time.Time
}

// Memory is the in-process cache tier. Entries are never deleted for
// staleness, only evicted least-recently-used past the size bound.
type Memory struct {
	mu         sync.Mutex
	data       map[string]*memoryItem
	maxEntries int
	clock      clock.Clock
}

// NewMemory creates a memory store holding at most maxEntries values.
func NewMemory(maxEntries int, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.New()
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Memory{
		data:       make(map[string]*memoryItem),
		maxEntries: maxEntries,
		clock:      clk,
	}
}

// Get returns the entry only while fresh.
func (m *Memory) Get(_ context.Context, category domain.Category, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[slot(category, key)]
	if !ok {
		return nil, nil
	}
	item.lastAccess = m.clock.Now()
	if !item.entry.FreshAt(m.clock.Now()) {
		return nil, nil
	}
	e := item.entry
	return &e, nil
}

// GetStale returns the entry regardless of TTL.
func (m *Memory) GetStale(_ context.Context, category domain.Category, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[slot(category, key)]
	if !ok {
		return nil, nil
	}
	item.lastAccess = m.clock.Now()
	e := item.entry
	return &e, nil
}

// Set stores or overwrites an entry, evicting LRU past the size bound.
func (m *Memory) Set(_ context.Context, category domain.Category, key string, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := slot(category, key)
	if _, exists := m.data[k]; !exists && len(m.data) >= m.maxEntries {
		m.evictLRU()
	}
	m.data[k] = &memoryItem{entry: *entry, lastAccess: m.clock.Now()}
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// evictLRU removes the least recently accessed entry. Caller holds m.mu.
func (m *Memory) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for k, item := range m.data {
		if oldestKey == "" || item.lastAccess.Before(oldest) {
			oldestKey = k
			oldest = item.lastAccess
		}
	}
	if oldestKey != "" {
		delete(m.data, oldestKey)
	}
}
