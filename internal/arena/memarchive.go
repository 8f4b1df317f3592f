package arena

import (
	"context"
	"sync"
)

// memArchive is a development-only archive used when no database is configured.
type memArchive struct {
	mu      sync.RWMutex
	records map[string]*GameRecord
}

func NewMemoryArchive() Archive {
	return &memArchive{records: make(map[string]*GameRecord)}
}

func (m *memArchive) SaveResult(ctx context.Context, rec *GameRecord) error {
	if rec == nil {
		return nil
	}
	cp := *rec
	m.mu.Lock()
	m.records[rec.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *memArchive) Close() error { return nil }

// Get is a test helper for inspecting archived results.
func (m *memArchive) Get(id string) *GameRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id]
}
