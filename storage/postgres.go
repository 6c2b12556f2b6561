package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/TG-16/anonymous-telegram-bot/chat"
)

// Postgres is a Backend over a users table. Schema is managed by the
// migrations directory; see database.RunMigrations.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// LoadAll reads the full users table.
func (p *Postgres) LoadAll(ctx context.Context) (map[string]*chat.User, error) {
	var rows []chat.User
	if err := p.db.SelectContext(ctx, &rows, `SELECT id, connected, partner_id, registered FROM users`); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	users := make(map[string]*chat.User, len(rows))
	for i := range rows {
		u := rows[i]
		users[u.ID] = &u
	}
	return users, nil
}

// SaveAll upserts every record inside one transaction, so a pairing that
// touches two records lands atomically.
func (p *Postgres) SaveAll(ctx context.Context, users map[string]*chat.User) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO users (id, connected, partner_id, registered)
		VALUES (:id, :connected, :partner_id, :registered)
		ON CONFLICT (id) DO UPDATE
		SET connected = EXCLUDED.connected,
		    partner_id = EXCLUDED.partner_id,
		    registered = EXCLUDED.registered`

	for id, u := range users {
		if _, err := tx.NamedExecContext(ctx, upsert, u); err != nil {
			return fmt.Errorf("upsert user %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit users: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
