package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/linechat/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS identities (
	username      TEXT PRIMARY KEY,
	salt          BLOB NOT NULL,
	password_hash BLOB NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore implements store.IdentityStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps an in-memory database alive and serializes
	// writers, which is what makes CreateIdentity insert-if-absent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateIdentity inserts the identity unless the username already exists.
func (s *SQLiteStore) CreateIdentity(ctx context.Context, ident *store.Identity) (*store.Identity, bool, error) {
	query := `
		INSERT INTO identities (username, salt, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, ident.Username, ident.Salt, ident.PasswordHash, ident.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("insert identity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("get rows affected: %w", err)
	}

	stored, err := s.GetIdentity(ctx, ident.Username)
	if err != nil {
		return nil, false, err
	}
	return stored, affected == 1, nil
}

// GetIdentity retrieves an identity by username.
func (s *SQLiteStore) GetIdentity(ctx context.Context, username string) (*store.Identity, error) {
	query := `
		SELECT username, salt, password_hash, created_at
		FROM identities
		WHERE username = ?
	`
	var ident store.Identity
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&ident.Username,
		&ident.Salt,
		&ident.PasswordHash,
		&ident.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get identity %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query identity: %w", err)
	}

	return &ident, nil
}

var _ store.IdentityStore = (*SQLiteStore)(nil)
