package roomdto

// Color identifies a chess side in wire form.
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// PieceType is the full-word piece type used on the wire.
type PieceType string

const (
	Pawn   PieceType = "pawn"
	Rook   PieceType = "rook"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

// Piece is a value object recomputed from the position string on every move.
// Identity is only stable within a single decode pass (color-type-column).
type Piece struct {
	ID                 string    `json:"id"`
	Row                int       `json:"row"`
	Col                int       `json:"col"`
	Color              Color     `json:"color"`
	Type               PieceType `json:"type"`
	HasMoved           bool      `json:"hasMoved"`
	EnPassantAvailable bool      `json:"enPassantAvailable"`
}

// Position is a destination square in request coordinates.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CastlingSide values carried in move details.
const (
	CastlingKingside  = "kingside"
	CastlingQueenside = "queenside"
)

// MoveDetails carries the client-declared intent of a move. The client is
// trusted to have validated legality; the server only applies the effects.
type MoveDetails struct {
	Valid         bool   `json:"valid"`
	CapturedPiece *Piece `json:"capturedPiece,omitempty"`
	Promotion     bool   `json:"promotion,omitempty"`
	PromotedPiece *Piece `json:"promotedPiece,omitempty"`
	Castling      string `json:"castling,omitempty"`
	EnPassant     bool   `json:"enPassant,omitempty"`
}

// Move is a single transient move input.
type Move struct {
	Piece   Piece       `json:"piece"`
	To      Position    `json:"to"`
	Details MoveDetails `json:"moveDetails"`
}
