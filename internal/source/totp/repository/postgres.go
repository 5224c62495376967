package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepository stores TOTP secrets in the totp_secrets table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a TOTP secret repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Secret returns the user's secret, or "" when the user has none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Secret(ctx context.Context, userID string) (string, error) {
	var secret string
	err := r.db.QueryRowContext(ctx,
		`SELECT secret FROM totp_secrets WHERE user_id = $1`, userID,
	).Scan(&secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return secret, nil
}

// SetSecret stores the user's secret, replacing any existing one.
func (r *PostgresRepository) SetSecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO totp_secrets (user_id, secret, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET secret = EXCLUDED.secret`,
		userID, secret, time.Now().UTC(),
	)
	return err
}

// DeleteSecret removes the user's secret if present.
func (r *PostgresRepository) DeleteSecret(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM totp_secrets WHERE user_id = $1`, userID,
	)
	return err
}
