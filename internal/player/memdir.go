package player

import (
	"context"
	"sync"
)

// MemoryDirectory is a development and test stand-in for the users table.
type MemoryDirectory struct {
	mu      sync.RWMutex
	players map[string]*Player
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{players: make(map[string]*Player)}
}

// Add registers a player, replacing any previous entry with the same ID.
func (d *MemoryDirectory) Add(p Player) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.players[p.ID] = &p
}

func (d *MemoryDirectory) Get(ctx context.Context, id string) (*Player, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.players[id]
	if !ok {
		return nil, nil
	}
	copy := *p
	return &copy, nil
}

func (d *MemoryDirectory) SetInGame(ctx context.Context, id string, inGame bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.players[id]; ok {
		p.InGame = inGame
	}
	return nil
}
