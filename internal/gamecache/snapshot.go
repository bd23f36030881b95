package gamecache

import (
	"context"
	"time"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

// Snapshot is the cache-resident authoritative game state for one room
// during live play. It is ephemeral: durable storage catches up through the
// sync worker or the emergency drain path.
type Snapshot struct {
	FEN            string             `json:"fen"`
	CapturedPieces string             `json:"capturedPieces"`
	WhitePlayerID  string             `json:"whitePlayerId,omitempty"`
	BlackPlayerID  string             `json:"blackPlayerId,omitempty"`
	GameStatus     roomdto.GameStatus `json:"gameStatus"`
	LastActivity   time.Time          `json:"lastActivity"`
	MoveSequence   int64              `json:"moveSequence"`
}

// RoomSaver applies cached snapshots onto the corresponding durable rooms in
// one bulk read + bulk commit. Codes without a durable room are skipped.
type RoomSaver interface {
	ApplySnapshots(ctx context.Context, states map[string]*Snapshot) error
}
