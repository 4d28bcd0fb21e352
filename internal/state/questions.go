package state

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"
)

// QuestionLimit caps how many questions a session keeps, and how many are
// recalled into a fresh input box.
const QuestionLimit = 100

// HistoryEntry is one submitted question with the session it came from.
type HistoryEntry struct {
	SessionID string
	Content   string
	Source    string
	CreatedAt time.Time
}

// RecordQuestion appends a question to the session and drops the oldest
// beyond QuestionLimit. Blank input is ignored.
func (db *DB) RecordQuestion(ctx context.Context, sessionID, question string) error {
	sessionID, question = strings.TrimSpace(sessionID), strings.TrimSpace(question)
	if sessionID == "" || question == "" {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO questions (session_id, content, created_at) VALUES (?, ?, ?)`,
		sessionID, question, now()); err != nil {
		return fmt.Errorf("record question: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM questions
		WHERE session_id = ? AND id <= (
			SELECT id FROM questions WHERE session_id = ?
			ORDER BY id DESC LIMIT 1 OFFSET ?
		)`, sessionID, sessionID, QuestionLimit); err != nil {
		return fmt.Errorf("trim questions: %w", err)
	}
	return tx.Commit()
}

// SessionQuestions lists one session's questions, oldest first.
func (db *DB) SessionQuestions(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT content FROM questions WHERE session_id = ? ORDER BY id`,
		strings.TrimSpace(sessionID))
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

// RecentQuestions returns up to limit distinct questions across all sessions,
// oldest first, so the input box can recall questions from earlier runs.
func (db *DB) RecentQuestions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = QuestionLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT content FROM questions
		GROUP BY content
		ORDER BY MAX(id) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out, err := collectStrings(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// SearchQuestions lists questions containing term (case-insensitive), newest
// first. An empty term lists everything.
func (db *DB) SearchQuestions(ctx context.Context, term string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = QuestionLimit
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT q.session_id, q.content, s.source, q.created_at
		FROM questions q
		JOIN sessions s ON s.id = q.session_id
		WHERE lower(q.content) LIKE ? ESCAPE '\'
		ORDER BY q.id DESC
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.SessionID, &e.Content, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// collectStrings drains a single-column result, skipping blank values, and
// closes rows.
func collectStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, rows.Err()
}
