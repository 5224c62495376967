// Package emailcode implements a second-factor source that mails the user a
// short-lived 6-digit code. Rendering the challenge form sends the code as a
// side effect, once per render invocation; re-rendering re-sends, which is the
// documented behavior of the pattern rather than something this source
// deduplicates.
package emailcode

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dknauss/twofactor-bridge/internal/source"
	"github.com/dknauss/twofactor-bridge/internal/source/emailcode/domain"
)

// SourceName keys this source in the registry and derives its form fields.
const SourceName = "email"

// DefaultChallengeTTL is how long an emailed code stays valid.
const DefaultChallengeTTL = 10 * time.Minute

// Repository defines persistence for email enrollments and pending challenges.
type Repository interface {
	// Enrollment returns the user's enrolled address, or enrolled false when
	// the user has not opted into email codes.
	Enrollment(ctx context.Context, userID string) (email string, enrolled bool, err error)
	// SetEnrollment enrolls the user with the given address.
	SetEnrollment(ctx context.Context, userID, email string) error
	// SaveChallenge persists a pending challenge, replacing any active one for
	// the same user.
	SaveChallenge(ctx context.Context, c *domain.Challenge) error
	// ActiveChallenge returns the user's pending challenge, or nil when none.
	// Expiry is the caller's concern.
	ActiveChallenge(ctx context.Context, userID string) (*domain.Challenge, error)
	// DeleteChallenge removes a challenge by id.
	DeleteChallenge(ctx context.Context, id string) error
}

// Mailer delivers a one-time code to an address.
type Mailer interface {
	SendCode(ctx context.Context, email, code string) error
}

// Source holds the wiring for the email-code second factor.
type Source struct {
	repo   Repository
	mailer Mailer
	ttl    time.Duration
	nowF   func() time.Time
}

// New returns an email-code source with the given repository and mailer.
// ttl <= 0 falls back to DefaultChallengeTTL.
func New(repo Repository, mailer Mailer, ttl time.Duration) *Source {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Source{repo: repo, mailer: mailer, ttl: ttl, nowF: func() time.Time { return time.Now().UTC() }}
}

// Name implements source.Source.
func (s *Source) Name() string { return SourceName }

// Enabled reports whether the user is enrolled for email codes.
func (s *Source) Enabled(ctx context.Context, userID string) (bool, error) {
	_, enrolled, err := s.repo.Enrollment(ctx, userID)
	return enrolled, err
}

// Method reports email for enrolled users and none otherwise.
func (s *Source) Method(ctx context.Context, userID string) (source.Method, error) {
	enrolled, err := s.Enabled(ctx, userID)
	if err != nil {
		return source.MethodNone, err
	}
	if !enrolled {
		return source.MethodNone, nil
	}
	return source.MethodEmail, nil
}

// SendChallenge generates a fresh code, stores its hash with a TTL, and mails
// the plain code to the enrolled address. Any previous pending challenge for
// the user is replaced.
func (s *Source) SendChallenge(ctx context.Context, userID string) error {
	email, enrolled, err := s.repo.Enrollment(ctx, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return nil
	}
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	now := s.nowF()
	c := &domain.Challenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		CodeHash:  HashCode(code),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.SaveChallenge(ctx, c); err != nil {
		return err
	}
	return s.mailer.SendCode(ctx, email, code)
}

// ValidatePrimary checks code against the user's pending challenge. A missing
// or expired challenge fails the attempt without error; a match consumes the
// challenge so the code is single-use.
func (s *Source) ValidatePrimary(ctx context.Context, userID, code string) (bool, error) {
	c, err := s.repo.ActiveChallenge(ctx, userID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}
	if c.Expired(s.nowF()) {
		_ = s.repo.DeleteChallenge(ctx, c.ID)
		return false, nil
	}
	if !CodeEqual(code, c.CodeHash) {
		return false, nil
	}
	if err := s.repo.DeleteChallenge(ctx, c.ID); err != nil {
		return false, err
	}
	return true, nil
}
