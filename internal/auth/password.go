package auth

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 round count. High enough to slow down
	// offline guessing, low enough for interactive logins.
	DefaultIterations = 65536
	// SaltSize is the length of the per-identity random salt in bytes.
	SaltSize = 16
	// KeySize is the length of the derived password hash in bytes.
	KeySize = 16
)

// Hasher derives salted password hashes with PBKDF2-HMAC-SHA1.
type Hasher struct {
	Iterations int
}

// NewHasher returns a hasher using DefaultIterations.
func NewHasher() *Hasher {
	return &Hasher{Iterations: DefaultIterations}
}

// NewSalt generates a fresh random salt.
func (h *Hasher) NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives the password hash for the given salt.
func (h *Hasher) Hash(password string, salt []byte) []byte {
	iterations := h.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, KeySize, sha1.New)
}

// Compare reports whether password hashes to expected under salt.
// The comparison runs in constant time.
func (h *Hasher) Compare(expected, salt []byte, password string) bool {
	return subtle.ConstantTimeCompare(expected, h.Hash(password, salt)) == 1
}
