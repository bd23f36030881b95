package player

import "context"

// Player is the slim occupant view this service needs. Account CRUD and
// credentials live elsewhere; only the in-game flag is mutated here.
type Player struct {
	ID       string
	Username string
	Email    string
	InGame   bool
}

// Directory resolves players and flips their in-game flag.
type Directory interface {
	Get(ctx context.Context, id string) (*Player, error)
	SetInGame(ctx context.Context, id string, inGame bool) error
}
