package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the credential in a single-row SQLite table. Useful when
// the client already carries a SQLite file for other local state.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS credential (
    key TEXT PRIMARY KEY CHECK (key = 'current'),
    token TEXT NOT NULL,
    login_time INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts the single credential row.
func (s *SQLiteStore) Save(ctx context.Context, cred Credential) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credential (key, token, login_time) VALUES ('current', ?, ?)
ON CONFLICT(key) DO UPDATE SET token = excluded.token, login_time = excluded.login_time`,
		cred.Token, cred.LoginAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

// Read returns the stored credential, or ErrNotFound when the row is absent.
func (s *SQLiteStore) Read(ctx context.Context) (Credential, error) {
	var token string
	var loginMillis int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, login_time FROM credential WHERE key = 'current'`,
	).Scan(&token, &loginMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, ErrNotFound
	}

	return Credential{
		Token:   token,
		LoginAt: time.UnixMilli(loginMillis),
	}, nil
}

// Clear deletes the credential row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credential WHERE key = 'current'`); err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
