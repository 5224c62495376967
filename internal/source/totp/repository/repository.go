package repository

import (
	"context"
)

// Repository defines persistence for per-user TOTP secrets.
type Repository interface {
	Secret(ctx context.Context, userID string) (string, error)
	SetSecret(ctx context.Context, userID, secret string) error
	DeleteSecret(ctx context.Context, userID string) error
}
