package repository

import (
	"context"

	"github.com/dknauss/twofactor-bridge/internal/source/emailcode/domain"
)

// Repository defines persistence for email enrollments and pending challenges.
type Repository interface {
	Enrollment(ctx context.Context, userID string) (email string, enrolled bool, err error)
	SetEnrollment(ctx context.Context, userID, email string) error
	SaveChallenge(ctx context.Context, c *domain.Challenge) error
	ActiveChallenge(ctx context.Context, userID string) (*domain.Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error
}
