package board

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

func TestDecodeStartingPosition(t *testing.T) {
	pieces, err := Decode(StartingFEN)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(pieces) != 32 {
		t.Fatalf("expected 32 pieces, got %d", len(pieces))
	}

	byID := make(map[string]roomdto.Piece, len(pieces))
	for _, p := range pieces {
		byID[p.ID] = p
	}

	wp, ok := byID["w-pawn-4"]
	if !ok {
		t.Fatalf("white e-pawn missing: %v", byID)
	}
	if wp.Row != 1 || wp.Col != 4 || wp.Color != roomdto.White || wp.Type != roomdto.Pawn {
		t.Fatalf("white e-pawn decoded wrong: %+v", wp)
	}

	bk, ok := byID["b-king-4"]
	if !ok {
		t.Fatalf("black king missing")
	}
	if bk.Row != 7 || bk.Col != 4 {
		t.Fatalf("black king decoded wrong: %+v", bk)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1", // 7 ranks
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq - 0 1",
		"rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", // overflow
	}
	for _, fen := range cases {
		if _, err := Decode(fen); err == nil {
			t.Fatalf("expected error for %q", fen)
		} else {
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError for %q, got %T", fen, err)
			}
		}
	}
}

func TestEncodeDoublePushSetsEnPassantTarget(t *testing.T) {
	pieces, err := Decode(StartingFEN)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var pawn roomdto.Piece
	for _, p := range pieces {
		if p.ID == "w-pawn-4" {
			pawn = p
			break
		}
	}
	pawn.EnPassantAvailable = true

	// client frame: white rows mirrored, e4 arrives as row 4
	moved := Relocate(pieces, pawn, roomdto.Position{Row: 4, Col: 4})
	got := Encode(moved, string(roomdto.Black))

	want := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	if got != want {
		t.Fatalf("encoded position mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestEncodeBlackDoublePushTarget(t *testing.T) {
	pieces, err := Decode("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var pawn roomdto.Piece
	for _, p := range pieces {
		if p.Color == roomdto.Black && p.Type == roomdto.Pawn && p.Col == 2 {
			pawn = p
			break
		}
	}
	pawn.EnPassantAvailable = true

	// black rows come through unmirrored: c7 (row 6) to c5 (row 4)
	moved := Relocate(pieces, pawn, roomdto.Position{Row: 4, Col: 2})
	got := Encode(moved, string(roomdto.White))
	if !strings.Contains(got, " w KQkq c6 ") {
		t.Fatalf("expected en-passant target c6, got %q", got)
	}
}

func TestEncodeNoTargetWithoutFlag(t *testing.T) {
	pieces, err := Decode(StartingFEN)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := Encode(pieces, string(roomdto.White))
	if got != StartingFEN {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, StartingFEN)
	}
}

func TestSideToMove(t *testing.T) {
	if got := SideToMove(StartingFEN); got != "w" {
		t.Fatalf("SideToMove = %q", got)
	}
	if got := NextTurn(StartingFEN); got != "b" {
		t.Fatalf("NextTurn = %q", got)
	}
	if got := SideToMove("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1"); got != "b" {
		t.Fatalf("SideToMove = %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// random sparse position: at most one piece per square
		taken := map[[2]int]bool{}
		n := rapid.IntRange(2, 32).Draw(t, "pieces")
		var pieces []roomdto.Piece
		for i := 0; i < n; i++ {
			row := rapid.IntRange(0, 7).Draw(t, "row")
			col := rapid.IntRange(0, 7).Draw(t, "col")
			if taken[[2]int{row, col}] {
				continue
			}
			taken[[2]int{row, col}] = true
			color := roomdto.White
			if rapid.Bool().Draw(t, "black") {
				color = roomdto.Black
			}
			types := []roomdto.PieceType{roomdto.Pawn, roomdto.Rook, roomdto.Knight, roomdto.Bishop, roomdto.Queen, roomdto.King}
			typ := types[rapid.IntRange(0, len(types)-1).Draw(t, "type")]
			pieces = append(pieces, roomdto.Piece{Row: row, Col: col, Color: color, Type: typ})
		}

		fen := Encode(pieces, "w")
		decoded, err := Decode(fen)
		if err != nil {
			t.Fatalf("Decode(%q): %v", fen, err)
		}
		if len(decoded) != len(pieces) {
			t.Fatalf("piece count changed: %d -> %d", len(pieces), len(decoded))
		}
		squares := map[[2]int]byte{}
		for _, p := range pieces {
			squares[[2]int{p.Row, p.Col}] = letterFor(p.Type, p.Color)
		}
		for _, p := range decoded {
			want, ok := squares[[2]int{p.Row, p.Col}]
			if !ok {
				t.Fatalf("decoded piece on empty square: %+v", p)
			}
			if letterFor(p.Type, p.Color) != want {
				t.Fatalf("square %d,%d changed identity", p.Row, p.Col)
			}
		}
	})
}
