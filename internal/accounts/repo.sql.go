package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountColumns = `id, name, email, password_hash, auth_provider, google_id, microsoft_id,
	profile_image, is_email_verified, email_verification_token, email_verification_expiry,
	reset_password_token, reset_password_expiry, refresh_token, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var acct Account
	err := row.Scan(
		&acct.ID, &acct.Name, &acct.Email, &acct.PasswordHash, &acct.Provider,
		&acct.GoogleID, &acct.MicrosoftID, &acct.ProfileImage, &acct.IsEmailVerified,
		&acct.EmailVerificationToken, &acct.EmailVerificationExpiry,
		&acct.ResetPasswordToken, &acct.ResetPasswordExpiry, &acct.RefreshToken,
		&acct.CreatedAt, &acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// Create inserts a new account record.
func (r *PGRepository) Create(ctx context.Context, acct Account) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, email, password_hash, auth_provider, google_id, microsoft_id,
			profile_image, is_email_verified, email_verification_token, email_verification_expiry,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
		acct.ID, acct.Name, acct.Email, acct.PasswordHash, acct.Provider,
		acct.GoogleID, acct.MicrosoftID, acct.ProfileImage, acct.IsEmailVerified,
		acct.EmailVerificationToken, acct.EmailVerificationExpiry, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// FindByEmail fetches an account by its normalized email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

// FindByExternalID fetches an account bound to a federated identity.
func (r *PGRepository) FindByExternalID(ctx context.Context, provider Provider, externalID string) (*Account, error) {
	column := "google_id"
	if provider == ProviderMicrosoft {
		column = "microsoft_id"
	}
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, externalID))
}

// SetRefreshToken overwrites the stored refresh token. A nil token
// revokes the active session.
func (r *PGRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return r.update(ctx, id,
		`UPDATE accounts SET refresh_token = $2, updated_at = $3 WHERE id = $1`, token)
}

// SetVerification stores a fresh email verification token and expiry,
// superseding any prior one.
func (r *PGRepository) SetVerification(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET email_verification_token = $2, email_verification_expiry = $3, updated_at = $4
		WHERE id = $1`,
		id, token, expiry.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkVerified flips the verification flag and clears the transient
// token fields in one statement.
func (r *PGRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET is_email_verified = TRUE, email_verification_token = NULL,
			email_verification_expiry = NULL, updated_at = $2
		WHERE id = $1`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores a password reset token and expiry.
func (r *PGRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts
		SET reset_password_token = $2, reset_password_expiry = $3, updated_at = $4
		WHERE id = $1`,
		id, token, expiry.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) update(ctx context.Context, id uuid.UUID, query string, arg any) error {
	tag, err := r.pool.Exec(ctx, query, id, arg, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
