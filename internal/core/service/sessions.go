package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clearport/import-console/internal/core/ports"
)

// SessionManager hands out one EditSession per shipment, loading the record
// from the store and seeding the coordinator on first access.
type SessionManager struct {
	store ports.ShipmentStore
	coord ports.UpdateCoordinator
	cache ports.StatusCache
	log   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*EditSession
}

func NewSessionManager(store ports.ShipmentStore, coord ports.UpdateCoordinator, cache ports.StatusCache, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		store:    store,
		coord:    coord,
		cache:    cache,
		log:      log,
		sessions: make(map[string]*EditSession),
	}
}

// Session returns the edit session for a shipment, creating it on first use.
func (m *SessionManager) Session(ctx context.Context, shipmentID string) (*EditSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[shipmentID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	// Load outside the lock; concurrent first requests race harmlessly and
	// the second loader wins nothing but a redundant read.
	shipment, err := m.store.Get(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[shipmentID]; ok {
		return session, nil
	}
	m.coord.Seed(shipment)
	session := NewEditSession(shipmentID, m.coord, m.cache, m.log)
	m.sessions[shipmentID] = session
	m.log.Debug().Str("shipment_id", shipmentID).Msg("edit session opened")
	return session, nil
}
