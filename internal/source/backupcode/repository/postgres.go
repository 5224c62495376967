package repository

import (
	"context"
	"database/sql"

	"github.com/dknauss/twofactor-bridge/internal/source/backupcode"
)

// PostgresRepository stores recovery-code hashes in the backup_codes table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a recovery-code repository using the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListByUser returns the user's stored code hashes.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]backupcode.CodeHash, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code_hash FROM backup_codes WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []backupcode.CodeHash
	for rows.Next() {
		var h backupcode.CodeHash
		if err := rows.Scan(&h.ID, &h.Hash); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Insert stores a hash for the user under the given id.
func (r *PostgresRepository) Insert(ctx context.Context, id, userID, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO backup_codes (id, user_id, code_hash, created_at)
		 VALUES ($1, $2, $3, now())`,
		id, userID, hash,
	)
	return err
}

// Delete removes one stored hash by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE id = $1`, id,
	)
	return err
}

// DeleteByUser removes all of the user's stored hashes.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE user_id = $1`, userID,
	)
	return err
}
