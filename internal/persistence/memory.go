package persistence

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps the snapshot and journal in process memory.
type MemoryStorage struct {
	mu       sync.Mutex
	snapshot Snapshot
	journal  []JournalEntry
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// SaveSnapshot replaces the stored snapshot.
func (m *MemoryStorage) SaveSnapshot(_ context.Context, snapshot Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = cloneSnapshot(snapshot)
	return nil
}

// LoadSnapshot returns the stored snapshot, or an empty one.
func (m *MemoryStorage) LoadSnapshot(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snapshot), nil
}

// AppendJournal appends an entry to the journal.
func (m *MemoryStorage) AppendJournal(_ context.Context, entry JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, entry)
	return nil
}

// LoadJournal returns a copy of the journal in append order.
func (m *MemoryStorage) LoadJournal(context.Context) ([]JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.journal), nil
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	out.Bookings = slices.Clone(s.Bookings)
	return out
}
