package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dknauss/twofactor-bridge/internal/policy/domain"
)

// PostgresRepository stores enforcement settings in the org_enforcement table.
// require_for_roles is persisted as a comma-separated list.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an enforcement repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByOrgID returns enforcement settings for the org, or nil if not found.
func (r *PostgresRepository) GetByOrgID(ctx context.Context, orgID string) (*domain.Enforcement, error) {
	var e domain.Enforcement
	var roles string
	err := r.db.QueryRowContext(ctx,
		`SELECT org_id, require_always, require_for_roles, created_at, updated_at
		 FROM org_enforcement WHERE org_id = $1`, orgID,
	).Scan(&e.OrgID, &e.RequireAlways, &roles, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	e.RequireForRoles = splitRoles(roles)
	return &e, nil
}

// Upsert creates or updates enforcement settings for the org.
func (r *PostgresRepository) Upsert(ctx context.Context, e *domain.Enforcement) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO org_enforcement (org_id, require_always, require_for_roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4)
		 ON CONFLICT (org_id) DO UPDATE SET
		   require_always = EXCLUDED.require_always,
		   require_for_roles = EXCLUDED.require_for_roles,
		   updated_at = EXCLUDED.updated_at`,
		e.OrgID, e.RequireAlways, strings.Join(e.RequireForRoles, ","), now,
	)
	return err
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if r := strings.TrimSpace(p); r != "" {
			out = append(out, r)
		}
	}
	return out
}
