package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/gamecache"
	"github.com/park285/chess-rooms/internal/obslog"
)

// SnapshotApplier writes cached game snapshots back onto durable room rows.
// The cache is authoritative for in-flight games, so snapshot fields
// overwrite whatever the row currently holds.
type SnapshotApplier struct {
	repo Repository
}

func NewSnapshotApplier(repo Repository) *SnapshotApplier {
	return &SnapshotApplier{repo: repo}
}

func (a *SnapshotApplier) ApplySnapshots(ctx context.Context, snaps map[string]*gamecache.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	codes := make([]string, 0, len(snaps))
	for code := range snaps {
		codes = append(codes, code)
	}
	rooms, err := a.repo.FindAllByCodes(ctx, codes)
	if err != nil {
		return err
	}

	found := make(map[string]bool, len(rooms))
	for _, r := range rooms {
		snap := snaps[r.Code]
		if snap == nil {
			continue
		}
		found[r.Code] = true
		r.FEN = snap.FEN
		r.CapturedPieces = snap.CapturedPieces
		r.GameStatus = snap.GameStatus
		r.LastActivity = snap.LastActivity
		r.MoveSequence = snap.MoveSequence
	}
	for code := range snaps {
		if !found[code] {
			obslog.L().Warn("snapshot_room_missing", zap.String("room_code", code))
		}
	}
	return a.repo.SaveAll(ctx, rooms)
}
