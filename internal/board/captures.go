package board

import (
	"fmt"
	"strings"

	"github.com/park285/chess-rooms/pkg/roomdto"
)

// DefaultCapturedPieces is the empty ledger: black section / white section,
// each a run of letter+count pairs.
const DefaultCapturedPieces = "r0n0b0q0p0k0/R0N0B0Q0P0K0"

// RecordCapture increments the captured counter for the piece's letter in
// the section of its own color. Letters unknown to the ledger are appended.
// The textual form is stable: existing letters keep their order.
func RecordCapture(ledger string, captured roomdto.Piece) (string, error) {
	black, white, ok := strings.Cut(ledger, "/")
	if !ok {
		return "", fmt.Errorf("malformed capture ledger %q", ledger)
	}

	if captured.Color == roomdto.Black {
		black = incrementSection(black, letterFor(captured.Type, roomdto.Black))
	} else {
		white = incrementSection(white, letterFor(captured.Type, roomdto.White))
	}
	return black + "/" + white, nil
}

// CapturedCount reads one letter's count out of a ledger section. The read
// is order-independent.
func CapturedCount(ledger string, captured roomdto.Piece) int {
	black, white, ok := strings.Cut(ledger, "/")
	if !ok {
		return 0
	}
	section := white
	if captured.Color == roomdto.Black {
		section = black
	}
	for _, e := range parseSection(section) {
		if e.letter == letterFor(captured.Type, captured.Color) {
			return e.count
		}
	}
	return 0
}

type ledgerEntry struct {
	letter byte
	count  int
}

func incrementSection(section string, letter byte) string {
	entries := parseSection(section)
	found := false
	for i := range entries {
		if entries[i].letter == letter {
			entries[i].count++
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, ledgerEntry{letter: letter, count: 1})
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%c%d", e.letter, e.count)
	}
	return b.String()
}

func parseSection(section string) []ledgerEntry {
	var entries []ledgerEntry
	var current byte
	count := 0
	digits := false
	flush := func() {
		if current != 0 && digits {
			entries = append(entries, ledgerEntry{letter: current, count: count})
		}
		count = 0
		digits = false
	}
	for i := 0; i < len(section); i++ {
		c := section[i]
		switch {
		case c >= '0' && c <= '9':
			count = count*10 + int(c-'0')
			digits = true
		default:
			flush()
			current = c
		}
	}
	flush()
	return entries
}
