package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Provider  string
	Model     string
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

func (db *DB) CreateSession(ctx context.Context, source, provider, model string) (*Session, error) {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now(),
		Source:    source,
		Provider:  provider,
		Model:     model,
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, source, provider, model) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.CreatedAt, s.Source, s.Provider, s.Model)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (db *DB) getSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, created_at, source, provider, model FROM sessions WHERE id = ?", id,
	).Scan(&s.ID, &s.CreatedAt, &s.Source, &s.Provider, &s.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionSource records a data source switch made during the session.
func (db *DB) UpdateSessionSource(ctx context.Context, id, source string) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE sessions SET source = ? WHERE id = ?", source, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
