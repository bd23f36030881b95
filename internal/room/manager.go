package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-rooms/internal/board"
	"github.com/park285/chess-rooms/internal/fanout"
	"github.com/park285/chess-rooms/internal/gamecache"
	"github.com/park285/chess-rooms/internal/msgcat"
	"github.com/park285/chess-rooms/internal/obslog"
	"github.com/park285/chess-rooms/internal/player"
	"github.com/park285/chess-rooms/internal/resilience"
	"github.com/park285/chess-rooms/pkg/roomdto"
)

const (
	codeAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	codeLength      = 6
	maxCodeAttempts = 5
	updateAttempts  = 3
	updateBackoff   = 25 * time.Millisecond
)

// Manager orchestrates the room lifecycle and the move pipeline. Live game
// state flows through the cache; durable rows catch up asynchronously.
type Manager struct {
	repo    Repository
	players player.Directory
	cache   *gamecache.Store
	bus     *fanout.Broadcaster
	msgs    *msgcat.Catalog

	now func() time.Time
}

func NewManager(repo Repository, players player.Directory, cache *gamecache.Store, bus *fanout.Broadcaster, msgs *msgcat.Catalog) *Manager {
	return &Manager{
		repo:    repo,
		players: players,
		cache:   cache,
		bus:     bus,
		msgs:    msgs,
		now:     time.Now,
	}
}

// CreateRoom opens a new room with the caller seated as white. A caller who
// already holds an open room as white gets that room back instead of a second
// one; a caller seated as black elsewhere is rejected.
func (m *Manager) CreateRoom(ctx context.Context, playerID string) (*roomdto.RoomDTO, error) {
	p, err := m.players.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	existing, err := m.repo.FindByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if existing != nil && !existing.GameStatus.Terminal() {
		if existing.WhitePlayer != playerID {
			return nil, ErrAlreadyInRoom
		}
		obslog.L().Info("room_reused",
			zap.String("room_code", existing.Code),
			zap.String("player_id", playerID),
		)
		return m.roomDTO(ctx, existing), nil
	}

	code, err := m.generateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	r := &Room{
		ID:             uuid.NewString(),
		Code:           code,
		RoomStatus:     roomdto.RoomAvailable,
		GameStatus:     roomdto.GameWaiting,
		FEN:            board.StartingFEN,
		CapturedPieces: board.DefaultCapturedPieces,
		WhitePlayer:    playerID,
		LastActivity:   m.now(),
	}
	if err := m.repo.Insert(ctx, r); err != nil {
		return nil, err
	}
	if err := m.players.SetInGame(ctx, playerID, true); err != nil {
		obslog.L().Warn("set_in_game_failed", zap.String("player_id", playerID), zap.Error(err))
	}

	obslog.L().Info("room_created",
		zap.String("room_code", code),
		zap.String("player_id", playerID),
	)
	return m.roomDTO(ctx, r), nil
}

// JoinRoom seats the caller as black and starts the game. A repeated join by
// the player already holding the black seat succeeds without changing the
// room. Concurrent joins race on the room version; exactly one wins, the rest
// see ErrRoomFull on their retry read.
func (m *Manager) JoinRoom(ctx context.Context, code, playerID string) (*roomdto.RoomDTO, error) {
	p, err := m.players.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	existing, err := m.repo.FindByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if existing != nil && !existing.GameStatus.Terminal() && existing.Code != code {
		return nil, ErrAlreadyInRoom
	}

	r, err := m.updateWithRetry(ctx, code, func(r *Room) error {
		if r.WhitePlayer == playerID {
			return ErrOwnRoomJoin
		}
		if r.BlackPlayer == playerID {
			return errSeatHeld
		}
		if r.BlackPlayer != "" {
			return ErrRoomFull
		}
		r.BlackPlayer = playerID
		r.RoomStatus = roomdto.RoomOccupied
		r.GameStatus = roomdto.GameInProgress
		r.LastActivity = m.now()
		return nil
	})
	if errors.Is(err, errSeatHeld) {
		// Repeated join by the seated black player: nothing to change,
		// nothing to announce.
		r, err = m.repo.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, ErrRoomNotFound
		}
		return m.roomDTO(ctx, r), nil
	}
	if err != nil {
		return nil, err
	}

	if err := m.players.SetInGame(ctx, playerID, true); err != nil {
		obslog.L().Warn("set_in_game_failed", zap.String("player_id", playerID), zap.Error(err))
	}

	// Seed the hot path so the first move does not need a durable read.
	if err := m.cache.Put(ctx, code, snapshotFromRoom(r)); err != nil {
		obslog.L().Warn("join_cache_seed_failed", zap.String("room_code", code), zap.Error(err))
	}

	if err := m.bus.Broadcast(ctx, code, m.msgs.MustRender("room.opponent_joined", nil)); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}

	obslog.L().Info("room_joined",
		zap.String("room_code", code),
		zap.String("player_id", playerID),
	)
	return m.roomDTO(ctx, r), nil
}

// GetRoom returns the current room view, preferring the cache snapshot over
// the durable row when one exists.
func (m *Manager) GetRoom(ctx context.Context, code string) (*roomdto.RoomDTO, error) {
	r, err := m.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}

	snap, err := m.cache.Get(ctx, code)
	if err != nil {
		obslog.L().Warn("cache_read_failed", zap.String("room_code", code), zap.Error(err))
	}
	if snap != nil {
		view := *r
		view.FEN = snap.FEN
		view.CapturedPieces = snap.CapturedPieces
		view.GameStatus = snap.GameStatus
		view.LastActivity = snap.LastActivity
		view.MoveSequence = snap.MoveSequence
		r = &view
	}
	return m.roomDTO(ctx, r), nil
}

// ProcessMove runs one move through the pipeline: idempotency guard, seat and
// turn checks, board transform, capture bookkeeping, cache write, fanout.
func (m *Manager) ProcessMove(ctx context.Context, code, playerID string, msg *roomdto.MoveMessage) (*roomdto.PieceMovedDTO, error) {
	snap, err := m.loadSnapshot(ctx, code)
	if err != nil {
		return nil, err
	}

	if msg.ExpectedMoveSequence != nil && *msg.ExpectedMoveSequence != snap.MoveSequence {
		return nil, ErrStaleMove
	}

	var color roomdto.Color
	switch {
	case playerID != "" && playerID == snap.WhitePlayerID:
		color = roomdto.White
	case playerID != "" && playerID == snap.BlackPlayerID:
		color = roomdto.Black
	default:
		return nil, ErrUnauthorizedMove
	}

	if snap.GameStatus != roomdto.GameInProgress {
		return nil, ErrGameInactive
	}

	side := board.SideToMove(snap.FEN)
	if string(color) != side {
		if side == string(roomdto.White) {
			return nil, ErrWhitesTurn
		}
		return nil, ErrBlacksTurn
	}

	pieces, err := board.Decode(snap.FEN)
	if err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}

	mv := msg.Move()
	pieces = board.Apply(pieces, mv)
	pieces = board.Relocate(pieces, mv.Piece, mv.To)

	kingCaptured := false
	var capturedColor roomdto.Color
	if captured := mv.Details.CapturedPiece; captured != nil {
		ledger, err := board.RecordCapture(snap.CapturedPieces, *captured)
		if err != nil {
			return nil, fmt.Errorf("record capture: %w", err)
		}
		snap.CapturedPieces = ledger
		if captured.Type == roomdto.King {
			kingCaptured = true
			capturedColor = captured.Color
		}
	}

	// The turn holds while a promotion still awaits its piece selection;
	// the follow-up message with the chosen piece completes the move.
	next := string(color.Opponent())
	if mv.Details.Promotion && mv.Details.PromotedPiece == nil {
		next = side
	}

	snap.FEN = board.Encode(pieces, next)
	snap.MoveSequence++
	snap.LastActivity = m.now()

	event := &roomdto.PieceMovedDTO{Move: *msg, FEN: snap.FEN, MoveSequence: snap.MoveSequence}

	if kingCaptured {
		if capturedColor == roomdto.White {
			snap.GameStatus = roomdto.GameBlackWon
		} else {
			snap.GameStatus = roomdto.GameWhiteWon
		}
		if err := m.finishGame(ctx, code, snap, event); err != nil {
			return nil, err
		}
		return event, nil
	}

	if err := m.cache.Put(ctx, code, snap); err != nil {
		return nil, err
	}
	if err := m.bus.Broadcast(ctx, code, event); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}
	return event, nil
}

// finishGame closes out a decided game: broadcast the final move, persist the
// terminal state durably, free both seats and complete the live channel.
func (m *Manager) finishGame(ctx context.Context, code string, snap *gamecache.Snapshot, event *roomdto.PieceMovedDTO) error {
	if err := m.bus.Broadcast(ctx, code, event); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}

	// Late readers of the hot path should see the terminal state too.
	if err := m.cache.Put(ctx, code, snap); err != nil {
		obslog.L().Warn("terminal_cache_write_failed", zap.String("room_code", code), zap.Error(err))
	}

	var (
		finalView        Room
		whiteID, blackID string
	)
	if _, err := m.updateWithRetry(ctx, code, func(r *Room) error {
		r.FEN = snap.FEN
		r.CapturedPieces = snap.CapturedPieces
		r.GameStatus = snap.GameStatus
		r.LastActivity = snap.LastActivity
		r.MoveSequence = snap.MoveSequence
		whiteID, blackID = r.WhitePlayer, r.BlackPlayer
		finalView = *r
		r.WhitePlayer, r.BlackPlayer = "", ""
		r.RoomStatus = roomdto.RoomAvailable
		return nil
	}); err != nil {
		return err
	}

	for _, id := range []string{whiteID, blackID} {
		if id == "" {
			continue
		}
		if err := m.players.SetInGame(ctx, id, false); err != nil {
			obslog.L().Warn("set_in_game_failed", zap.String("player_id", id), zap.Error(err))
		}
	}

	if err := m.bus.Broadcast(ctx, code, m.roomDTO(ctx, &finalView)); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}
	if err := m.bus.Complete(ctx, code, m.msgs.MustRender("room.game_ended", nil)); err != nil {
		obslog.L().Warn("complete_failed", zap.String("room_code", code), zap.Error(err))
	}

	obslog.L().Info("game_finished",
		zap.String("room_code", code),
		zap.String("game_status", string(snap.GameStatus)),
	)
	return nil
}

// HandleJoinRoom resumes a paused game when one of its seated players
// reconnects. Non-occupants are ignored.
func (m *Manager) HandleJoinRoom(ctx context.Context, code, playerID string) error {
	r, err := m.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRoomNotFound
	}
	if r.WhitePlayer != playerID && r.BlackPlayer != playerID {
		return nil
	}
	if r.GameStatus != roomdto.GamePaused {
		return nil
	}

	if _, err := m.updateWithRetry(ctx, code, func(r *Room) error {
		if r.GameStatus != roomdto.GamePaused {
			return nil
		}
		r.GameStatus = roomdto.GameInProgress
		r.LastActivity = m.now()
		return nil
	}); err != nil {
		return err
	}
	m.setCachedStatus(ctx, code, roomdto.GameInProgress)

	username := m.username(ctx, playerID)
	if err := m.bus.Broadcast(ctx, code, m.msgs.MustRender("room.player_rejoined", map[string]string{"Username": username})); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}
	return nil
}

// HandleLeaveRoom pauses an in-progress game when a seated player drops.
func (m *Manager) HandleLeaveRoom(ctx context.Context, code, playerID string) error {
	r, err := m.repo.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	if r.WhitePlayer != playerID && r.BlackPlayer != playerID {
		return nil
	}
	if r.GameStatus != roomdto.GameInProgress {
		return nil
	}

	if _, err := m.updateWithRetry(ctx, code, func(r *Room) error {
		if r.GameStatus != roomdto.GameInProgress {
			return nil
		}
		r.GameStatus = roomdto.GamePaused
		r.LastActivity = m.now()
		return nil
	}); err != nil {
		return err
	}
	m.setCachedStatus(ctx, code, roomdto.GamePaused)

	username := m.username(ctx, playerID)
	if err := m.bus.Broadcast(ctx, code, m.msgs.MustRender("room.player_left", map[string]string{"Username": username})); err != nil {
		obslog.L().Warn("broadcast_failed", zap.String("room_code", code), zap.Error(err))
	}
	return nil
}

// SubscribeRoom attaches a live-update stream to the room and greets the new
// subscriber directly.
func (m *Manager) SubscribeRoom(ctx context.Context, code string) (*fanout.Subscriber, error) {
	r, err := m.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	sub := m.bus.Subscribe(code)
	sub.Deliver([]byte(m.msgs.MustRender("room.connected", nil)))
	return sub, nil
}

func (m *Manager) UnsubscribeRoom(code string, sub *fanout.Subscriber) {
	m.bus.Unsubscribe(code, sub)
}

// loadSnapshot reads the live state for a room, reconstructing it from the
// durable row when the cache has no entry or is unreachable.
func (m *Manager) loadSnapshot(ctx context.Context, code string) (*gamecache.Snapshot, error) {
	snap, err := m.cache.Get(ctx, code)
	if err != nil {
		obslog.L().Warn("cache_read_failed", zap.String("room_code", code), zap.Error(err))
		snap = nil
	}
	if snap != nil {
		return snap, nil
	}

	r, err := m.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	return snapshotFromRoom(r), nil
}

func snapshotFromRoom(r *Room) *gamecache.Snapshot {
	return &gamecache.Snapshot{
		FEN:            r.FEN,
		CapturedPieces: r.CapturedPieces,
		WhitePlayerID:  r.WhitePlayer,
		BlackPlayerID:  r.BlackPlayer,
		GameStatus:     r.GameStatus,
		LastActivity:   r.LastActivity,
		MoveSequence:   r.MoveSequence,
	}
}

// updateWithRetry re-reads and re-applies the mutation on version conflicts,
// backing off between attempts so racing writers spread out. Errors returned
// by mutate abort the retry unchanged.
func (m *Manager) updateWithRetry(ctx context.Context, code string, mutate func(*Room) error) (*Room, error) {
	var out *Room
	err := resilience.Do(ctx, updateAttempts, updateBackoff, func() error {
		r, err := m.repo.FindByCode(ctx, code)
		if err != nil {
			return err
		}
		if r == nil {
			return ErrRoomNotFound
		}
		if err := mutate(r); err != nil {
			return err
		}
		if err := m.repo.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	}, func(err error) bool {
		return errors.Is(err, ErrVersionConflict)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) setCachedStatus(ctx context.Context, code string, status roomdto.GameStatus) {
	snap, err := m.cache.Get(ctx, code)
	if err != nil || snap == nil {
		return
	}
	snap.GameStatus = status
	snap.LastActivity = m.now()
	if err := m.cache.Put(ctx, code, snap); err != nil {
		obslog.L().Warn("cache_status_update_failed", zap.String("room_code", code), zap.Error(err))
	}
}

func (m *Manager) generateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		existing, err := m.repo.FindByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a free room code after %d attempts", maxCodeAttempts)
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

func (m *Manager) username(ctx context.Context, playerID string) string {
	p, err := m.players.Get(ctx, playerID)
	if err != nil || p == nil {
		return playerID
	}
	return p.Username
}

func (m *Manager) roomDTO(ctx context.Context, r *Room) *roomdto.RoomDTO {
	dto := &roomdto.RoomDTO{
		ID:             r.ID,
		Code:           r.Code,
		FEN:            r.FEN,
		CapturedPieces: r.CapturedPieces,
		RoomStatus:     r.RoomStatus,
		GameStatus:     r.GameStatus,
		MoveSequence:   r.MoveSequence,
		LastActivity:   r.LastActivity,
	}
	dto.WhitePlayer = m.playerDTO(ctx, r.WhitePlayer)
	dto.BlackPlayer = m.playerDTO(ctx, r.BlackPlayer)
	return dto
}

func (m *Manager) playerDTO(ctx context.Context, id string) *roomdto.PlayerDTO {
	if id == "" {
		return nil
	}
	p, err := m.players.Get(ctx, id)
	if err != nil || p == nil {
		return nil
	}
	return &roomdto.PlayerDTO{Username: p.Username, Email: p.Email, InGame: p.InGame}
}
