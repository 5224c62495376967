// Package backupcode manages single-use recovery codes. Codes are bcrypt
// hashed at rest; a successful match deletes the row, so a code can never
// validate twice. A Store plugs into a primary source as its backup-code
// capability.
package backupcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dknauss/twofactor-bridge/internal/security"
)

const (
	// DefaultCodeCount is how many codes Generate issues per user.
	DefaultCodeCount = 10
	codeLength       = 8
	// codeAlphabet avoids ambiguous characters (0/O, 1/I/L).
	codeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"
)

// CodeHash is one stored recovery code: the row id and the bcrypt hash.
type CodeHash struct {
	ID   string
	Hash string
}

// Repository defines persistence for recovery-code hashes.
type Repository interface {
	// ListByUser returns the user's stored code hashes.
	ListByUser(ctx context.Context, userID string) ([]CodeHash, error)
	// Insert stores a hash for the user under the given id.
	Insert(ctx context.Context, id, userID, hash string) error
	// Delete removes one stored hash by id.
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes all of the user's stored hashes.
	DeleteByUser(ctx context.Context, userID string) error
}

// Store generates, checks, and consumes recovery codes.
type Store struct {
	repo   Repository
	hasher *security.Hasher
	newID  func() string
}

// NewStore returns a recovery-code store. newID supplies row ids (e.g.
// uuid.NewString).
func NewStore(repo Repository, hasher *security.Hasher, newID func() string) *Store {
	return &Store{repo: repo, hasher: hasher, newID: newID}
}

// Has reports whether the user has unused recovery codes.
func (s *Store) Has(ctx context.Context, userID string) (bool, error) {
	hashes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(hashes) > 0, nil
}

// Consume checks code against the user's stored hashes and deletes the
// matching row. Returns false without error when nothing matches.
func (s *Store) Consume(ctx context.Context, userID, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	hashes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, h := range hashes {
		if err := s.hasher.Compare(h.Hash, []byte(code)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				continue
			}
			return false, err
		}
		if err := s.repo.Delete(ctx, h.ID); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Generate replaces the user's recovery codes with n fresh ones and returns
// the plaintext codes. This is the only time the plaintext exists; callers
// show it to the user once. n <= 0 uses DefaultCodeCount.
func (s *Store) Generate(ctx context.Context, userID string, n int) ([]string, error) {
	if n <= 0 {
		n = DefaultCodeCount
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return nil, err
	}
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash([]byte(code))
		if err != nil {
			return nil, err
		}
		if err := s.repo.Insert(ctx, s.newID(), userID, hash); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func randomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("backupcode: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
