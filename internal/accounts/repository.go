package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for account records. Every
// mutation updates a single row and touches only its own columns, so
// concurrent writers to the same account cannot interleave partial
// field sets.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByExternalID(ctx context.Context, provider Provider, externalID string) (*Account, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	SetVerification(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error
}
