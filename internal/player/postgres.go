package player

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresDirectory reads and updates players in the shared users table.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Get(ctx context.Context, id string) (*Player, error) {
	const query = `
		SELECT id, username, email, in_game
		FROM users
		WHERE id = $1`

	var p Player
	err := d.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Username, &p.Email, &p.InGame)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select player: %w", err)
	}
	return &p, nil
}

func (d *PostgresDirectory) SetInGame(ctx context.Context, id string, inGame bool) error {
	const query = `UPDATE users SET in_game = $2 WHERE id = $1`
	if _, err := d.db.ExecContext(ctx, query, id, inGame); err != nil {
		return fmt.Errorf("update player in_game: %w", err)
	}
	return nil
}
