package roomdto

import "time"

// PlayerDTO is the public summary of a room occupant.
type PlayerDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	InGame   bool   `json:"inGame"`
}

// RoomDTO is the full room view returned to clients and broadcast on
// terminal game states.
type RoomDTO struct {
	ID             string     `json:"id,omitempty"`
	Code           string     `json:"code"`
	FEN            string     `json:"fen,omitempty"`
	CapturedPieces string     `json:"capturedPieces,omitempty"`
	RoomStatus     RoomStatus `json:"roomStatus,omitempty"`
	GameStatus     GameStatus `json:"gameStatus,omitempty"`
	MoveSequence   int64      `json:"moveSequence,omitempty"`
	LastActivity   time.Time  `json:"lastActivity,omitzero"`
	WhitePlayer    *PlayerDTO `json:"whitePlayer,omitempty"`
	BlackPlayer    *PlayerDTO `json:"blackPlayer,omitempty"`
}

// MoveMessage is the wire form of a move submission. ExpectedMoveSequence is
// the optional idempotency guard: when present it must match the snapshot's
// current counter.
type MoveMessage struct {
	Piece                Piece       `json:"piece"`
	To                   Position    `json:"to"`
	MoveDetails          MoveDetails `json:"moveDetails"`
	ExpectedMoveSequence *int64      `json:"expectedMoveSequence,omitempty"`
}

// Move converts the message into the applier's input shape.
func (m *MoveMessage) Move() Move {
	return Move{Piece: m.Piece, To: m.To, Details: m.MoveDetails}
}

// PieceMovedDTO is the per-move event payload broadcast to subscribers.
type PieceMovedDTO struct {
	Move         MoveMessage `json:"move"`
	FEN          string      `json:"fen"`
	MoveSequence int64       `json:"moveSequence"`
}

// ErrorResponseDTO is the typed error surfaced on the live channel.
type ErrorResponseDTO struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
}
