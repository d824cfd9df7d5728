package store

import (
	"context"
	"sync"
)

// MemoryStore is a fixed-capacity ring buffer of stops held in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	buf      []Stop
	capacity int
	head     int // index of the oldest entry
	size     int
	lastID   int64
}

// NewMemoryStore creates a ring buffer retaining at most capacity stops.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		buf:      make([]Stop, capacity),
		capacity: capacity,
	}
}

func (m *MemoryStore) Push(ctx context.Context, ts int64) (Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	stop := Stop{ID: m.lastID, LastStopTs: ts}

	if m.size < m.capacity {
		m.buf[(m.head+m.size)%m.capacity] = stop
		m.size++
	} else {
		// Overwrite the oldest entry
		m.buf[m.head] = stop
		m.head = (m.head + 1) % m.capacity
	}
	return stop, nil
}

func (m *MemoryStore) Last(ctx context.Context) (Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.size == 0 {
		return Stop{}, ErrEmpty
	}
	return m.buf[(m.head+m.size-1)%m.capacity], nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Stop, m.size)
	for i := 0; i < m.size; i++ {
		out[i] = m.buf[(m.head+i)%m.capacity]
	}
	return out, nil
}

func (m *MemoryStore) Since(ctx context.Context, id int64) ([]Stop, error) {
	stops, _ := m.List(ctx)
	return since(stops, id), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
