package storage

import (
	"sync"
	"time"

	"github.com/patrona-app/patrona-backend/internal/models"
)

// MemoryPingStore keeps pings in a mutex-guarded map. Used when no database
// is configured and in tests.
type MemoryPingStore struct {
	mu    sync.RWMutex
	pings map[string]*models.LocationPing

	now func() time.Time // swapped in tests
}

// NewMemoryPingStore creates an empty in-memory ping store.
func NewMemoryPingStore() *MemoryPingStore {
	return &MemoryPingStore{
		pings: make(map[string]*models.LocationPing),
		now:   time.Now,
	}
}

// Upsert overwrites the session's ping in place, then sweeps expired
// records.
func (m *MemoryPingStore) Upsert(sessionID string, lat, lng float64, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pings[sessionID] = &models.LocationPing{
		SessionID: sessionID,
		Latitude:  lat,
		Longitude: lng,
		Timestamp: ts,
		UpdatedAt: m.now(),
	}
	m.sweepLocked()
	return nil
}

// Get returns a copy of the session's current ping.
func (m *MemoryPingStore) Get(sessionID string) (*models.LocationPing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ping, ok := m.pings[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ping
	return &cp, nil
}

// sweepLocked deletes pings whose stored timestamp is past the retention
// window. Caller holds mu.
func (m *MemoryPingStore) sweepLocked() {
	cutoff := m.now().Add(-RetentionWindow)
	for id, ping := range m.pings {
		if ping.Timestamp.Before(cutoff) {
			delete(m.pings, id)
		}
	}
}
