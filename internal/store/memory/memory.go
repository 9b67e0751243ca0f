package memory

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vovakirdan/linechat/internal/store"
)

// Store keeps identities in a concurrent map for the process lifetime.
type Store struct {
	identities *xsync.MapOf[string, *store.Identity]
}

// New creates an empty in-memory identity store.
func New() *Store {
	return &Store{identities: xsync.NewMapOf[string, *store.Identity]()}
}

// CreateIdentity stores ident unless the username already exists.
func (s *Store) CreateIdentity(_ context.Context, ident *store.Identity) (*store.Identity, bool, error) {
	actual, loaded := s.identities.LoadOrStore(ident.Username, ident)
	return actual, !loaded, nil
}

// GetIdentity retrieves an identity by username.
func (s *Store) GetIdentity(_ context.Context, username string) (*store.Identity, error) {
	ident, ok := s.identities.Load(username)
	if !ok {
		return nil, fmt.Errorf("get identity %q: %w", username, store.ErrNotFound)
	}
	return ident, nil
}

// Len reports how many identities exist.
func (s *Store) Len() int {
	return s.identities.Size()
}

// Close is a no-op; identities live until the process exits.
func (s *Store) Close() error {
	return nil
}

var _ store.IdentityStore = (*Store)(nil)
