package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dknauss/twofactor-bridge/internal/source/emailcode/domain"
)

// PostgresRepository stores enrollments in email_enrollments and pending
// challenges in email_challenges.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an email-code repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Enrollment returns the user's enrolled address, or enrolled false when absent.
func (r *PostgresRepository) Enrollment(ctx context.Context, userID string) (string, bool, error) {
	var email string
	err := r.db.QueryRowContext(ctx,
		`SELECT email FROM email_enrollments WHERE user_id = $1`, userID,
	).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return email, true, nil
}

// SetEnrollment enrolls the user, replacing any existing address.
func (r *PostgresRepository) SetEnrollment(ctx context.Context, userID, email string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_enrollments (user_id, email, created_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email`,
		userID, email,
	)
	return err
}

// SaveChallenge persists a challenge, replacing any pending one for the user.
func (r *PostgresRepository) SaveChallenge(ctx context.Context, c *domain.Challenge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM email_challenges WHERE user_id = $1`, c.UserID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO email_challenges (id, user_id, code_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.CodeHash, c.ExpiresAt, c.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ActiveChallenge returns the user's pending challenge, or nil when none.
func (r *PostgresRepository) ActiveChallenge(ctx context.Context, userID string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, expires_at, created_at
		 FROM email_challenges WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.CodeHash, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// DeleteChallenge removes the challenge by id.
func (r *PostgresRepository) DeleteChallenge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM email_challenges WHERE id = $1`, id,
	)
	return err
}
