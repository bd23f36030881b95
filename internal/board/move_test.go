package board

import (
	"testing"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

func pieceAt(t *testing.T, pieces []roomdto.Piece, row, col int) *roomdto.Piece {
	t.Helper()
	for i := range pieces {
		if pieces[i].Row == row && pieces[i].Col == col {
			return &pieces[i]
		}
	}
	return nil
}

func TestApplyCaptureRemovesVictim(t *testing.T) {
	pieces, err := Decode("8/8/8/3p4/8/8/8/4Q3 w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var queen, victim roomdto.Piece
	for _, p := range pieces {
		switch p.Type {
		case roomdto.Queen:
			queen = p
		case roomdto.Pawn:
			victim = p
		}
	}

	mv := roomdto.Move{Piece: queen, To: roomdto.Position{Row: 3, Col: 3}, Details: roomdto.MoveDetails{Valid: true, CapturedPiece: &victim}}
	out := Apply(pieces, mv)
	out = Relocate(out, queen, mv.To)

	if len(out) != 1 {
		t.Fatalf("expected 1 piece after capture, got %d", len(out))
	}
	// white destination rows arrive mirrored: request row 3 is stored row 4
	q := pieceAt(t, out, 4, 3)
	if q == nil || q.Type != roomdto.Queen {
		t.Fatalf("queen not on capture square: %+v", out)
	}
	if !q.HasMoved {
		t.Fatalf("moved piece not flagged")
	}
}

func TestApplyKingsideCastling(t *testing.T) {
	pieces, err := Decode("4k3/8/8/8/8/8/8/4K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var king roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.King && p.Color == roomdto.White {
			king = p
		}
	}

	// white king e1 -> g1: the client frame mirrors white rows, so e1
	// arrives as row 7 both for the piece and the destination
	clientKing := king
	clientKing.Row = 7 - king.Row
	mv := roomdto.Move{
		Piece:   clientKing,
		To:      roomdto.Position{Row: 7, Col: 6},
		Details: roomdto.MoveDetails{Valid: true, Castling: roomdto.CastlingKingside},
	}
	out := Apply(pieces, mv)
	out = Relocate(out, mv.Piece, mv.To)

	rook := pieceAt(t, out, 0, 5)
	if rook == nil || rook.Type != roomdto.Rook {
		t.Fatalf("rook not relocated to f1: %+v", out)
	}
	k := pieceAt(t, out, 0, 6)
	if k == nil || k.Type != roomdto.King {
		t.Fatalf("king not on g1: %+v", out)
	}
}

func TestApplyCastlingRejectedWhenBlocked(t *testing.T) {
	pieces, err := Decode("4k3/8/8/8/8/8/8/4KN1R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var king roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.King && p.Color == roomdto.White {
			king = p
		}
	}

	clientKing := king
	clientKing.Row = 7 - king.Row
	mv := roomdto.Move{Piece: clientKing, To: roomdto.Position{Row: 7, Col: 6}, Details: roomdto.MoveDetails{Valid: true, Castling: roomdto.CastlingKingside}}
	out := Apply(pieces, mv)

	// rook must stay put when the path is blocked
	if r := pieceAt(t, out, 0, 7); r == nil || r.Type != roomdto.Rook {
		t.Fatalf("rook moved despite blocked path: %+v", out)
	}
}

func TestApplyCastlingRejectedAfterKingMoved(t *testing.T) {
	pieces, err := Decode("4k3/8/8/8/8/8/8/4K2R w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range pieces {
		if pieces[i].Type == roomdto.King && pieces[i].Color == roomdto.White {
			pieces[i].HasMoved = true
		}
	}
	var king roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.King && p.Color == roomdto.White {
			king = p
		}
	}

	clientKing := king
	clientKing.Row = 7 - king.Row
	mv := roomdto.Move{Piece: clientKing, To: roomdto.Position{Row: 7, Col: 6}, Details: roomdto.MoveDetails{Valid: true, Castling: roomdto.CastlingKingside}}
	out := Apply(pieces, mv)
	if r := pieceAt(t, out, 0, 7); r == nil || r.Type != roomdto.Rook {
		t.Fatalf("rook moved for an ineligible king: %+v", out)
	}
}

func TestApplyBlackQueensideCastling(t *testing.T) {
	pieces, err := Decode("r3k3/8/8/8/8/8/8/4K3 b KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var king roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.King && p.Color == roomdto.Black {
			king = p
		}
	}

	// black rows are unmirrored: e8 is stored row 7 and arrives as row 7
	mv := roomdto.Move{Piece: king, To: roomdto.Position{Row: 7, Col: 2}, Details: roomdto.MoveDetails{Valid: true, Castling: roomdto.CastlingQueenside}}
	out := Apply(pieces, mv)
	out = Relocate(out, king, mv.To)

	rook := pieceAt(t, out, 7, 3)
	if rook == nil || rook.Type != roomdto.Rook || rook.Color != roomdto.Black {
		t.Fatalf("rook not relocated to d8: %+v", out)
	}
	if k := pieceAt(t, out, 7, 2); k == nil || k.Type != roomdto.King {
		t.Fatalf("king not on c8: %+v", out)
	}
}

func TestApplyPromotionSwapsPiece(t *testing.T) {
	pieces, err := Decode("4k3/P7/8/8/8/8/8/4K3 w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var pawn roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.Pawn {
			pawn = p
		}
	}

	promoted := roomdto.Piece{ID: "w-queen-0", Color: roomdto.White, Type: roomdto.Queen}
	mv := roomdto.Move{
		Piece:   pawn,
		To:      roomdto.Position{Row: 0, Col: 0}, // a8 in white request coordinates
		Details: roomdto.MoveDetails{Valid: true, Promotion: true, PromotedPiece: &promoted},
	}
	out := Apply(pieces, mv)
	out = Relocate(out, pawn, mv.To)

	if len(out) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(out))
	}
	q := pieceAt(t, out, 7, 0)
	if q == nil || q.Type != roomdto.Queen || q.Color != roomdto.White {
		t.Fatalf("promotion square wrong: %+v", out)
	}
	for _, p := range out {
		if p.Type == roomdto.Pawn {
			t.Fatalf("pawn survived promotion: %+v", p)
		}
	}
}

func TestApplyPendingPromotionLeavesBoardForSelection(t *testing.T) {
	pieces, err := Decode("4k3/P7/8/8/8/8/8/4K3 w KQkq - 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var pawn roomdto.Piece
	for _, p := range pieces {
		if p.Type == roomdto.Pawn {
			pawn = p
		}
	}

	// promotion flagged but no piece chosen yet: only the relocation happens
	mv := roomdto.Move{Piece: pawn, To: roomdto.Position{Row: 0, Col: 0}, Details: roomdto.MoveDetails{Valid: true, Promotion: true}}
	out := Apply(pieces, mv)
	out = Relocate(out, pawn, mv.To)

	p := pieceAt(t, out, 7, 0)
	if p == nil || p.Type != roomdto.Pawn {
		t.Fatalf("pawn should wait on the last rank: %+v", out)
	}
}

func TestRelocateMirrorsWhiteRows(t *testing.T) {
	pieces, err := Decode(StartingFEN)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var knight roomdto.Piece
	for _, p := range pieces {
		if p.ID == "w-knight-6" {
			knight = p
		}
	}

	out := Relocate(pieces, knight, roomdto.Position{Row: 5, Col: 5}) // g1 -> f3
	n := pieceAt(t, out, 2, 5)
	if n == nil || n.Type != roomdto.Knight {
		t.Fatalf("knight not on f3: %+v", out)
	}
}
