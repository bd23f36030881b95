package room

import (
	"context"
	"sync"
)

// MemoryRepository is a map-backed Repository for tests and local runs.
// It enforces the same optimistic version check as the Postgres store.
type MemoryRepository struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rooms: make(map[string]*Room)}
}

func (m *MemoryRepository) Insert(_ context.Context, r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rooms[r.Code] = &cp
	return nil
}

func (m *MemoryRepository) FindByCode(_ context.Context, code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryRepository) FindByPlayer(_ context.Context, playerID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *Room
	for _, r := range m.rooms {
		if r.WhitePlayer != playerID && r.BlackPlayer != playerID {
			continue
		}
		if latest == nil || r.LastActivity.After(latest.LastActivity) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryRepository) FindAllByCodes(_ context.Context, codes []string) ([]*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Room
	for _, code := range codes {
		if r, ok := m.rooms[code]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, r *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rooms[r.Code]
	if !ok {
		return ErrRoomNotFound
	}
	if cur.Version != r.Version {
		return ErrVersionConflict
	}
	cp := *r
	cp.Version++
	m.rooms[r.Code] = &cp
	r.Version = cp.Version
	return nil
}

func (m *MemoryRepository) SaveAll(_ context.Context, rooms []*Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rooms {
		cp := *r
		if cur, ok := m.rooms[r.Code]; ok {
			cp.Version = cur.Version + 1
		}
		m.rooms[cp.Code] = &cp
	}
	return nil
}
