// Package totp implements a second-factor source backed by time-based
// one-time codes. Per-user secrets live behind a Repository; codes are checked
// with the otp library, never re-derived locally.
package totp

import (
	"context"
	"errors"
	"fmt"

	pqtotp "github.com/pquerna/otp/totp"

	"github.com/dknauss/twofactor-bridge/internal/source"
)

// SourceName keys this source in the registry and derives its form fields.
const SourceName = "totp"

// ErrAlreadyEnrolled is returned by Enroll when the user has a secret.
var ErrAlreadyEnrolled = errors.New("totp: user already enrolled")

// Repository defines persistence for per-user TOTP secrets.
type Repository interface {
	// Secret returns the user's base32 secret, or "" when the user has none.
	Secret(ctx context.Context, userID string) (string, error)
	// SetSecret stores the user's secret, replacing any existing one.
	SetSecret(ctx context.Context, userID, secret string) error
	// DeleteSecret removes the user's secret. Removing a missing secret is not an error.
	DeleteSecret(ctx context.Context, userID string) error
}

// Source validates TOTP codes against stored per-user secrets. It optionally
// carries a backup-code store; when absent, the backup capability reports no
// codes for every user.
type Source struct {
	repo    Repository
	issuer  string
	backups BackupStore
}

// BackupStore is the recovery-code capability a Source can delegate to.
type BackupStore interface {
	Has(ctx context.Context, userID string) (bool, error)
	Consume(ctx context.Context, userID, code string) (bool, error)
}

// New returns a TOTP source reading secrets from repo. issuer names the
// service in enrollment URLs. backups may be nil.
func New(repo Repository, issuer string, backups BackupStore) *Source {
	return &Source{repo: repo, issuer: issuer, backups: backups}
}

// Name implements source.Source.
func (s *Source) Name() string { return SourceName }

// Enabled reports whether the user has a stored secret.
func (s *Source) Enabled(ctx context.Context, userID string) (bool, error) {
	secret, err := s.repo.Secret(ctx, userID)
	if err != nil {
		return false, err
	}
	return secret != "", nil
}

// Method reports totp for enrolled users and none otherwise.
func (s *Source) Method(ctx context.Context, userID string) (source.Method, error) {
	enabled, err := s.Enabled(ctx, userID)
	if err != nil {
		return source.MethodNone, err
	}
	if !enabled {
		return source.MethodNone, nil
	}
	return source.MethodTOTP, nil
}

// ValidatePrimary checks code against the user's secret for the current time
// window. A user without a secret fails the attempt without error.
func (s *Source) ValidatePrimary(ctx context.Context, userID, code string) (bool, error) {
	secret, err := s.repo.Secret(ctx, userID)
	if err != nil {
		return false, err
	}
	if secret == "" {
		return false, nil
	}
	return pqtotp.Validate(code, secret), nil
}

// HasBackupCodes implements source.BackupValidator via the backup store.
func (s *Source) HasBackupCodes(ctx context.Context, userID string) (bool, error) {
	if s.backups == nil {
		return false, nil
	}
	return s.backups.Has(ctx, userID)
}

// ValidateBackup implements source.BackupValidator; a successful match
// consumes the code.
func (s *Source) ValidateBackup(ctx context.Context, userID, code string) (bool, error) {
	if s.backups == nil {
		return false, nil
	}
	return s.backups.Consume(ctx, userID, code)
}

// Enroll generates and stores a secret for the user and returns the
// otpauth:// URL for provisioning an authenticator app. Fails when the user
// already has a secret; callers wanting rotation delete first.
func (s *Source) Enroll(ctx context.Context, userID, accountName string) (string, error) {
	existing, err := s.repo.Secret(ctx, userID)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return "", ErrAlreadyEnrolled
	}
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", fmt.Errorf("totp: generate key: %w", err)
	}
	if err := s.repo.SetSecret(ctx, userID, key.Secret()); err != nil {
		return "", err
	}
	return key.URL(), nil
}
