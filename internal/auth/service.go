package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/linechat/internal/store"
)

// ErrWrongPassword is returned when the password does not match the identity.
var ErrWrongPassword = errors.New("wrong password")

// Service is the credential store front: it creates identities on first use
// and validates passwords for known usernames.
type Service struct {
	store  store.IdentityStore
	hasher *Hasher
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(identities store.IdentityStore, hasher *Hasher) *Service {
	if hasher == nil {
		hasher = NewHasher()
	}
	return &Service{
		store:  identities,
		hasher: hasher,
		now:    time.Now,
	}
}

// Authenticate accepts the login when the username is new (creating its
// identity with this password) or when the password matches the stored one.
// A mismatch yields ErrWrongPassword; any other error is an internal fault.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.Identity, error) {
	existing, err := s.store.GetIdentity(ctx, username)
	switch {
	case err == nil:
		return s.verify(existing, password)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return nil, err
	}
	candidate := &store.Identity{
		Username:     username,
		Salt:         salt,
		PasswordHash: s.hasher.Hash(password, salt),
		CreatedAt:    s.now().UTC(),
	}

	stored, created, err := s.store.CreateIdentity(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	if created {
		return stored, nil
	}

	// Another login for the same new username committed first.
	return s.verify(stored, password)
}

func (s *Service) verify(ident *store.Identity, password string) (*store.Identity, error) {
	if !s.hasher.Compare(ident.PasswordHash, ident.Salt, password) {
		return nil, ErrWrongPassword
	}
	return ident, nil
}
