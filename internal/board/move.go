package board

import (
	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/obslog"
	"github.com/park285/chess-rooms/pkg/roomdto"
)

// Apply resolves the special effect of a move against the current piece
// list: capture, castling or promotion, in that priority order. The generic
// relocation of the moved piece is a separate step (Relocate) run by the
// caller afterwards. The input slice is never mutated.
func Apply(pieces []roomdto.Piece, mv roomdto.Move) []roomdto.Piece {
	d := mv.Details
	switch {
	case d.CapturedPiece != nil:
		return removeByID(pieces, d.CapturedPiece.ID)
	case d.Castling != "":
		return applyCastling(pieces, mv)
	case d.Promotion && d.PromotedPiece != nil:
		return applyPromotion(pieces, mv)
	}
	return pieces
}

// Relocate moves the piece named by the move to its destination square,
// marking it as moved and carrying over its en-passant flag. White rows are
// mirrored from request coordinates.
func Relocate(pieces []roomdto.Piece, moved roomdto.Piece, to roomdto.Position) []roomdto.Piece {
	out := clone(pieces)
	for i := range out {
		if out[i].ID != moved.ID {
			continue
		}
		out[i].Row = destRow(out[i].Color, to.Row)
		out[i].Col = to.Col
		out[i].HasMoved = true
		out[i].EnPassantAvailable = moved.EnPassantAvailable
		break
	}
	return out
}

// applyCastling relocates the rook for a castling king move. The attempt is
// a no-op when preconditions fail: the client already validated intent, so a
// mismatch is logged and the move degrades to a plain king relocation.
func applyCastling(pieces []roomdto.Piece, mv roomdto.Move) []roomdto.Piece {
	rowDiff := mv.To.Row - mv.Piece.Row
	colDiff := mv.To.Col - mv.Piece.Col
	if rowDiff != 0 || colDiff != 2 && colDiff != -2 {
		obslog.L().Warn("castling_rejected",
			zap.String("piece_id", mv.Piece.ID),
			zap.String("reason", "not a two-column same-rank king move"),
		)
		return pieces
	}

	out := clone(pieces)
	king := findByID(out, mv.Piece.ID)
	if king == nil || king.HasMoved {
		obslog.L().Warn("castling_rejected",
			zap.String("piece_id", mv.Piece.ID),
			zap.String("reason", "king missing or already moved"),
		)
		return pieces
	}

	kingside := colDiff > 0
	rookStartCol, rookTargetCol := 0, 3
	if kingside {
		rookStartCol, rookTargetCol = 7, 5
	}

	var rook *roomdto.Piece
	for i := range out {
		p := &out[i]
		if p.Type == roomdto.Rook && p.Color == king.Color && p.Row == king.Row && p.Col == rookStartCol && !p.HasMoved {
			rook = p
			break
		}
	}
	if rook == nil {
		obslog.L().Warn("castling_rejected",
			zap.String("piece_id", mv.Piece.ID),
			zap.String("reason", "no eligible rook"),
		)
		return pieces
	}

	step := -1
	if kingside {
		step = 1
	}
	for col := king.Col + step; col != rookStartCol; col += step {
		if occupied(out, king.Row, col) {
			obslog.L().Warn("castling_rejected",
				zap.String("piece_id", mv.Piece.ID),
				zap.String("reason", "path blocked"),
			)
			return pieces
		}
	}

	rook.Col = rookTargetCol
	rook.HasMoved = true
	king.HasMoved = true
	return out
}

// applyPromotion swaps the moving pawn for the requested piece at the
// destination square. The promoted piece keeps the identity the client sent.
func applyPromotion(pieces []roomdto.Piece, mv roomdto.Move) []roomdto.Piece {
	out := removeByID(pieces, mv.Piece.ID)
	promoted := *mv.Details.PromotedPiece
	promoted.Row = destRow(mv.Piece.Color, mv.To.Row)
	promoted.Col = mv.To.Col
	return append(out, promoted)
}

func removeByID(pieces []roomdto.Piece, id string) []roomdto.Piece {
	out := make([]roomdto.Piece, 0, len(pieces))
	for _, p := range pieces {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

func findByID(pieces []roomdto.Piece, id string) *roomdto.Piece {
	for i := range pieces {
		if pieces[i].ID == id {
			return &pieces[i]
		}
	}
	return nil
}

func occupied(pieces []roomdto.Piece, row, col int) bool {
	for _, p := range pieces {
		if p.Row == row && p.Col == col {
			return true
		}
	}
	return false
}

func clone(pieces []roomdto.Piece) []roomdto.Piece {
	out := make([]roomdto.Piece, len(pieces))
	copy(out, pieces)
	return out
}

// destRow converts a request-coordinate row into a stored row. White rows
// arrive mirrored from the client's point of view.
func destRow(color roomdto.Color, requested int) int {
	if color == roomdto.White {
		return 7 - requested
	}
	return requested
}
