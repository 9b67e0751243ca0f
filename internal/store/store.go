package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no identity exists for a username.
var ErrNotFound = errors.New("identity not found")

// Identity binds a username to a salted password hash.
// It is created once and never mutated afterwards.
type Identity struct {
	Username     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}

// IdentityStore handles identity persistence.
type IdentityStore interface {
	// CreateIdentity inserts ident unless the username is already taken.
	// It returns the stored identity and true when ident was the one stored.
	// When another identity already exists it is returned with false.
	CreateIdentity(ctx context.Context, ident *Identity) (*Identity, bool, error)

	// GetIdentity retrieves an identity by username.
	GetIdentity(ctx context.Context, username string) (*Identity, error)

	// Close releases resources held by the store.
	Close() error
}
