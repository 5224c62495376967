package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies credentials (passwords, recovery codes) using
// bcrypt. Callers must not log or persist the plaintext.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4-31). Cost 12 is a
// reasonable default for interactive login; recovery-code stores that compare
// against many hashes per attempt may prefer a lower cost.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of plaintext, returned as a string suitable for
// storage.
func (h *Hasher) Hash(plaintext []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(plaintext, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies plaintext against the stored hash using constant-time
// comparison. Returns nil on match; bcrypt.ErrMismatchedHashAndPassword (or a
// parse error) otherwise.
func (h *Hasher) Compare(hash string, plaintext []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), plaintext)
}
