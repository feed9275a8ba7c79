package session

import (
	"context"
	"sync"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
)

// MemoryStore keeps slots in process memory. Values are stored serialized,
// exactly as a browser's local storage would keep them.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

// Save overwrites the client's slot.
func (m *MemoryStore) Save(_ context.Context, clientID string, files []models.CvFile) error {
	raw, err := encode(files)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.slots[clientID] = raw
	m.mu.Unlock()
	return nil
}

// Load reads the client's slot.
func (m *MemoryStore) Load(_ context.Context, clientID string) ([]models.CvFile, error) {
	m.mu.RLock()
	raw, ok := m.slots[clientID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNoSession
	}
	return decode(raw)
}

// Clear removes the client's slot. Clearing an absent slot is not an error.
func (m *MemoryStore) Clear(_ context.Context, clientID string) error {
	m.mu.Lock()
	delete(m.slots, clientID)
	m.mu.Unlock()
	return nil
}
