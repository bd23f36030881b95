package room

import (
	"time"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

// Room is the durable session record. The cache snapshot is authoritative
// during live play; this row catches up through reconciliation.
type Room struct {
	ID             string
	Code           string
	RoomStatus     roomdto.RoomStatus
	GameStatus     roomdto.GameStatus
	FEN            string
	CapturedPieces string
	WhitePlayer    string
	BlackPlayer    string
	LastActivity   time.Time
	MoveSequence   int64
	Version        int64
}

// Errors. Texts for the caller-facing ones are part of the wire contract.
var (
	ErrRoomNotFound     = errf("room not found")
	ErrPlayerNotFound   = errf("player not found")
	ErrAlreadyInRoom    = errf("You are already in another room.")
	ErrOwnRoomJoin      = errf("You cannot join your own room as opponent.")
	ErrRoomFull         = errf("This room is already full.")
	ErrUnauthorizedMove = errf("Unauthorized move.")
	ErrGameInactive     = errf("Game is not active.")
	ErrWhitesTurn       = errf("It's White's turn.")
	ErrBlacksTurn       = errf("It's Black's turn.")
	ErrStaleMove        = errf("This move has already been processed or is outdated.")
	ErrVersionConflict  = errf("concurrent room update detected")

	// errSeatHeld aborts a join mutation when the caller already holds the
	// black seat; the join then resolves as an idempotent success.
	errSeatHeld = errf("seat already held")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
