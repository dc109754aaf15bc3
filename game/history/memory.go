package history

import (
	"context"
	"sync"
)

// Memory keeps the most recent hands of each open room.
type Memory struct {
	limit   int
	entries map[string][]Entry
	mu      sync.RWMutex
}

// NewMemory keeps up to limit hands per room. A limit of zero keeps none.
func NewMemory(limit int) *Memory {
	return &Memory{
		limit:   limit,
		entries: make(map[string][]Entry),
	}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	if m.limit <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.entries[entry.Room], entry)
	if len(list) > m.limit {
		list = list[len(list)-m.limit:]
	}
	m.entries[entry.Room] = list
	return nil
}

// List returns the room's hands, oldest first.
func (m *Memory) List(room string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.entries[room]
	out := make([]Entry, len(list))
	copy(out, list)
	return out
}

// Forget drops everything recorded for room.
func (m *Memory) Forget(room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, room)
}
