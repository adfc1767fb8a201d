package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

// bcryptCost matches the cost used when the accounts table was first
// populated; changing it only affects newly hashed passwords.
const bcryptCost = 10

var emailFolder = cases.Fold()

// NormalizeEmail lowercases and trims an address so lookups are
// case-insensitive regardless of provider.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

// Store wraps the repository with credential rules: it owns password
// hashing and guarantees plaintext never reaches persistence.
type Store struct {
	repo Repository
}

// NewStore constructs a Store.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo}
}

// CreateLocal creates a local-credential account. The raw password is
// bcrypt-hashed before it is handed to the repository.
func (s *Store) CreateLocal(ctx context.Context, name, email, rawPassword string) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	acct := Account{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: &hashed,
		Provider:     ProviderLocal,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, acct.ID)
}

// CreateOrLinkFederated returns the account bound to the external
// identity, creating one on first login. Repeated calls with the same
// external id return the same account. Accounts created here are
// trusted as email-verified because the provider already verified the
// mailbox.
//
// Known gap: a user who registered locally and later signs in with the
// same email through a provider is rejected with a duplicate-email
// error rather than linked. Email based linking needs product input
// before it can be added.
func (s *Store) CreateOrLinkFederated(ctx context.Context, provider Provider, externalID, email, name string) (*Account, error) {
	existing, err := s.repo.FindByExternalID(ctx, provider, externalID)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	acct := Account{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(name),
		Email:           NormalizeEmail(email),
		Provider:        provider,
		IsEmailVerified: true,
	}
	switch provider {
	case ProviderGoogle:
		acct.GoogleID = &externalID
	case ProviderMicrosoft:
		acct.MicrosoftID = &externalID
	default:
		return nil, fmt.Errorf("provider %q is not federated", provider)
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		if err == ErrDuplicateEmail {
			// Either a race with another first login for the same
			// identity, or the email already belongs to an account
			// under a different provider.
			won, raceErr := s.repo.FindByExternalID(ctx, provider, externalID)
			if raceErr == ErrNotFound {
				return nil, fmt.Errorf("email %s is already registered with another provider: %w", acct.Email, ErrDuplicateEmail)
			}
			return won, raceErr
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, acct.ID)
}

// CheckPassword reports whether the raw password matches the stored
// hash. Accounts without a hash never match.
func (s *Store) CheckPassword(acct *Account, rawPassword string) bool {
	if acct == nil || acct.PasswordHash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*acct.PasswordHash), []byte(rawPassword)) == nil
}

// FindByEmail looks up an account by address, normalizing first.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// FindByID looks up an account by id.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// SetRefreshToken persists the single currently-valid refresh token,
// or revokes it when token is nil.
func (s *Store) SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error {
	return s.repo.SetRefreshToken(ctx, id, token)
}

// SetVerification persists a fresh verification token and expiry.
func (s *Store) SetVerification(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	return s.repo.SetVerification(ctx, id, token, expiry)
}

// MarkVerified records a successful email verification.
func (s *Store) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkVerified(ctx, id)
}

// SetResetToken persists a password reset token and expiry.
func (s *Store) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiry time.Time) error {
	return s.repo.SetResetToken(ctx, id, token, expiry)
}
