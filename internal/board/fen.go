package board

import (
	"fmt"
	"strings"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// DecodeError marks a malformed position string. It is fatal to the request
// and never retried or repaired.
type DecodeError struct {
	Input  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed position %q: %s", e.Input, e.Reason)
}

// Decode parses the board section of a position string into a piece list.
// Stored rows grow from white's back rank (row 0) to black's (row 7).
func Decode(fen string) ([]roomdto.Piece, error) {
	body := strings.Fields(fen)
	if len(body) == 0 {
		return nil, &DecodeError{Input: fen, Reason: "empty input"}
	}
	ranks := strings.Split(body[0], "/")
	if len(ranks) != 8 {
		return nil, &DecodeError{Input: fen, Reason: fmt.Sprintf("expected 8 ranks, got %d", len(ranks))}
	}

	var pieces []roomdto.Piece
	for row := 0; row < 8; row++ {
		col := 0
		for _, c := range ranks[row] {
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			color := roomdto.Black
			if c >= 'A' && c <= 'Z' {
				color = roomdto.White
			}
			typ, ok := typeFromLetter(lower(byte(c)))
			if !ok {
				return nil, &DecodeError{Input: fen, Reason: fmt.Sprintf("unknown piece letter %q", c)}
			}
			pieces = append(pieces, roomdto.Piece{
				ID:    fmt.Sprintf("%s-%s-%d", color, typ, col),
				Row:   7 - row,
				Col:   col,
				Color: color,
				Type:  typ,
			})
			col++
		}
		if col > 8 {
			return nil, &DecodeError{Input: fen, Reason: fmt.Sprintf("rank %d overflows 8 files", row)}
		}
	}
	return pieces, nil
}

// Encode renders a piece list back into a position string with the given
// side to move. The en-passant target square is recomputed from the piece
// flags; castling rights are kept as a fixed placeholder.
func Encode(pieces []roomdto.Piece, sideToMove string) string {
	var grid [8][8]byte
	for _, p := range pieces {
		grid[7-p.Row][p.Col] = letterFor(p.Type, p.Color)
	}

	var b strings.Builder
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			c := grid[row][col]
			if c == 0 {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte('0' + byte(empty))
				empty = 0
			}
			b.WriteByte(c)
		}
		if empty > 0 {
			b.WriteByte('0' + byte(empty))
		}
		if row < 7 {
			b.WriteByte('/')
		}
	}

	fmt.Fprintf(&b, " %s KQkq %s 0 1", sideToMove, enPassantTarget(pieces))
	return b.String()
}

// enPassantTarget scans for a pawn flagged as capturable in passing and
// renders the square behind it, or "-" when none qualifies.
func enPassantTarget(pieces []roomdto.Piece) string {
	for _, p := range pieces {
		if p.Type != roomdto.Pawn || !p.EnPassantAvailable {
			continue
		}
		rank := p.Row
		if p.Color == roomdto.Black {
			rank = p.Row + 2
		}
		return fmt.Sprintf("%c%d", 'a'+p.Col, rank)
	}
	return "-"
}

// SideToMove extracts the turn field of a position string.
func SideToMove(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) < 2 {
		return string(roomdto.White)
	}
	return parts[1]
}

// NextTurn returns the side-to-move field flipped.
func NextTurn(fen string) string {
	if SideToMove(fen) == string(roomdto.White) {
		return string(roomdto.Black)
	}
	return string(roomdto.White)
}

func typeFromLetter(c byte) (roomdto.PieceType, bool) {
	switch c {
	case 'k':
		return roomdto.King, true
	case 'q':
		return roomdto.Queen, true
	case 'r':
		return roomdto.Rook, true
	case 'b':
		return roomdto.Bishop, true
	case 'n':
		return roomdto.Knight, true
	case 'p':
		return roomdto.Pawn, true
	}
	return "", false
}

func letterFor(t roomdto.PieceType, color roomdto.Color) byte {
	var c byte
	switch t {
	case roomdto.King:
		c = 'k'
	case roomdto.Queen:
		c = 'q'
	case roomdto.Rook:
		c = 'r'
	case roomdto.Bishop:
		c = 'b'
	case roomdto.Knight:
		c = 'n'
	default:
		c = 'p'
	}
	if color == roomdto.White {
		return c - 'a' + 'A'
	}
	return c
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
