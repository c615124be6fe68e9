// Package store persists conversation history and tracks uploaded
// files awaiting processing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// keepPerSession bounds how many exchanges each session retains.
const keepPerSession = 10

// Exchange is one user turn and its reply.
type Exchange struct {
	SessionID string
	User      string
	Assistant string
	Route     string
	CreatedAt time.Time
}

// Store is the SQLite-backed conversation history. Safe for concurrent
// use; database/sql serializes access to the single connection pool.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS exchanges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_message TEXT NOT NULL,
	assistant_message TEXT NOT NULL,
	route TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id, id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// AppendExchange records one completed turn and trims the session to
// its most recent exchanges.
func (s *Store) AppendExchange(ctx context.Context, ex Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, user_message, assistant_message, route, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ex.SessionID, ex.User, ex.Assistant, ex.Route, ex.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM exchanges
		 WHERE session_id = ?
		   AND id NOT IN (
			SELECT id FROM exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?
		 )`,
		ex.SessionID, ex.SessionID, keepPerSession)
	if err != nil {
		return fmt.Errorf("trim session: %w", err)
	}

	return tx.Commit()
}

// RecentExchanges returns the session's last n exchanges, oldest
// first, ready to be folded into a prompt.
func (s *Store) RecentExchanges(ctx context.Context, sessionID string, n int) ([]Exchange, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_message, assistant_message, route, created_at
		 FROM (
			SELECT * FROM exchanges WHERE session_id = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var created string
		if err := rows.Scan(&ex.SessionID, &ex.User, &ex.Assistant, &ex.Route, &created); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// TotalExchanges counts every stored exchange.
func (s *Store) TotalExchanges(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n)
	return n, err
}

// ActiveSessions counts sessions holding at least one exchange.
func (s *Store) ActiveSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM exchanges`).Scan(&n)
	return n, err
}
