package room

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Repository is the durable room store. Find methods return nil (no error)
// when nothing matches. Update is optimistic: it fails with
// ErrVersionConflict when the row's version moved under the caller.
type Repository interface {
	Insert(ctx context.Context, r *Room) error
	FindByCode(ctx context.Context, code string) (*Room, error)
	FindByPlayer(ctx context.Context, playerID string) (*Room, error)
	FindAllByCodes(ctx context.Context, codes []string) ([]*Room, error)
	Update(ctx context.Context, r *Room) error
	SaveAll(ctx context.Context, rooms []*Room) error
}

type postgresRepo struct {
	db *sql.DB
}

// NewPostgresRepository opens the rooms store on the given database URL with
// the shared pool settings.
func NewPostgresRepository(databaseURL string) (Repository, *sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, err
	}
	return &postgresRepo{db: db}, db, nil
}

const roomColumns = `
	id, code, room_status, game_status, fen, captured_pieces,
	white_player, black_player, last_activity, move_sequence, version`

func (r *postgresRepo) Insert(ctx context.Context, room *Room) error {
	const query = `
		INSERT INTO rooms (
			id, code, room_status, game_status, fen, captured_pieces,
			white_player, black_player, last_activity, move_sequence, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Code, room.RoomStatus, room.GameStatus,
		room.FEN, room.CapturedPieces,
		nullable(room.WhitePlayer), nullable(room.BlackPlayer),
		room.LastActivity, room.MoveSequence, room.Version,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (r *postgresRepo) FindByCode(ctx context.Context, code string) (*Room, error) {
	query := `SELECT` + roomColumns + ` FROM rooms WHERE code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *postgresRepo) FindByPlayer(ctx context.Context, playerID string) (*Room, error) {
	query := `SELECT` + roomColumns + ` FROM rooms
		WHERE white_player = $1 OR black_player = $1
		ORDER BY last_activity DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, playerID))
}

func (r *postgresRepo) FindAllByCodes(ctx context.Context, codes []string) ([]*Room, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := `SELECT` + roomColumns + ` FROM rooms WHERE code = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(codes))
	if err != nil {
		return nil, fmt.Errorf("select rooms by codes: %w", err)
	}
	defer rows.Close()

	var out []*Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, room *Room) error {
	const query = `
		UPDATE rooms SET
			room_status = $2, game_status = $3, fen = $4, captured_pieces = $5,
			white_player = $6, black_player = $7, last_activity = $8,
			move_sequence = $9, version = version + 1
		WHERE code = $1 AND version = $10`

	res, err := r.db.ExecContext(ctx, query,
		room.Code, room.RoomStatus, room.GameStatus, room.FEN, room.CapturedPieces,
		nullable(room.WhitePlayer), nullable(room.BlackPlayer),
		room.LastActivity, room.MoveSequence, room.Version,
	)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	room.Version++
	return nil
}

// SaveAll commits reconciliation write-backs in one transaction. These are
// authoritative cache states, so rows are overwritten unconditionally.
func (r *postgresRepo) SaveAll(ctx context.Context, rooms []*Room) error {
	if len(rooms) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save all: %w", err)
	}
	defer tx.Rollback()

	const query = `
		UPDATE rooms SET
			room_status = $2, game_status = $3, fen = $4, captured_pieces = $5,
			white_player = $6, black_player = $7, last_activity = $8,
			move_sequence = $9, version = version + 1
		WHERE code = $1`
	for _, room := range rooms {
		if _, err := tx.ExecContext(ctx, query,
			room.Code, room.RoomStatus, room.GameStatus, room.FEN, room.CapturedPieces,
			nullable(room.WhitePlayer), nullable(room.BlackPlayer),
			room.LastActivity, room.MoveSequence,
		); err != nil {
			return fmt.Errorf("save room %s: %w", room.Code, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *postgresRepo) scanOne(row *sql.Row) (*Room, error) {
	room, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return room, err
}

func scanRoom(s rowScanner) (*Room, error) {
	var (
		room         Room
		white, black sql.NullString
	)
	err := s.Scan(
		&room.ID, &room.Code, &room.RoomStatus, &room.GameStatus,
		&room.FEN, &room.CapturedPieces,
		&white, &black, &room.LastActivity, &room.MoveSequence, &room.Version,
	)
	if err != nil {
		return nil, err
	}
	room.WhitePlayer = white.String
	room.BlackPlayer = black.String
	return &room, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
