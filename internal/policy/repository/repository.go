package repository

import (
	"context"

	"github.com/dknauss/twofactor-bridge/internal/policy/domain"
)

// Repository defines access to org second-factor enforcement settings.
type Repository interface {
	// GetByOrgID returns enforcement settings for the org, or nil if not found
	// (caller uses defaults: nothing forced).
	GetByOrgID(ctx context.Context, orgID string) (*domain.Enforcement, error)
	// Upsert creates or updates enforcement settings for the org.
	Upsert(ctx context.Context, e *domain.Enforcement) error
}
