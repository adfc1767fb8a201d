package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclefab/unclefab-auth/internal/accounts"
	"github.com/unclefab/unclefab-auth/internal/platform/httpx"
	"github.com/unclefab/unclefab-auth/internal/token"
)

// Notifier delivers transactional email synchronously. Used where a
// delivery failure must surface to the caller.
type Notifier interface {
	SendVerification(ctx context.Context, email, tokenString, name string) error
	SendPasswordReset(ctx context.Context, email, tokenString, name string) error
}

// Queue hands email off to the background worker. Used where delivery
// is best-effort and must not block the request outcome.
type Queue interface {
	EnqueueVerificationEmail(ctx context.Context, email, tokenString, name string) error
}

// Service orchestrates the local auth and session refresh flows over
// the credential store, the token service, and the notifier.
type Service struct {
	store  *accounts.Store
	tokens *token.Service
	mailer Notifier
	queue  Queue
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. queue may be nil, in which case
// registration falls back to the synchronous mailer (still
// best-effort).
func NewService(store *accounts.Store, tokens *token.Service, mailer Notifier, queue Queue, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		mailer: mailer,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func subject(acct *accounts.Account) token.Subject {
	return token.Subject{ID: acct.ID.String(), Email: acct.Email, Name: acct.Name}
}

// issueTokens mints an access/refresh pair and persists the refresh
// token, overwriting any prior value. The overwrite is what revokes a
// previously issued refresh token.
func (s *Service) issueTokens(ctx context.Context, acct *accounts.Account) (TokenPair, error) {
	access, err := s.tokens.Mint(token.Access, subject(acct))
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.tokens.Mint(token.Refresh, subject(acct))
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, acct.ID, &refresh); err != nil {
		return TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Register creates a local account, persists a 24h verification token,
// and sends the verification email best-effort: a delivery failure is
// logged, never surfaced, because the account exists either way.
func (s *Service) Register(ctx context.Context, name, email, password string) (*AccountView, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: all fields are required", httpx.ErrValidation)
	}

	acct, err := s.store.CreateLocal(ctx, name, email, password)
	if err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%w: user with email already exists", httpx.ErrDuplicate)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	verification, err := s.tokens.Mint(token.EmailVerification, subject(acct))
	if err != nil {
		return nil, fmt.Errorf("mint verification token: %w", err)
	}
	expiry := s.now().Add(s.tokens.TTL(token.EmailVerification))
	if err := s.store.SetVerification(ctx, acct.ID, verification, expiry); err != nil {
		return nil, fmt.Errorf("persist verification token: %w", err)
	}

	if err := s.sendVerificationBestEffort(ctx, acct.Email, verification, acct.Name); err != nil {
		s.logger.Error("send verification email", slog.String("email", acct.Email), slog.Any("error", err))
	}

	view := NewAccountView(acct)
	return &view, nil
}

func (s *Service) sendVerificationBestEffort(ctx context.Context, email, tokenString, name string) error {
	if s.queue != nil {
		return s.queue.EnqueueVerificationEmail(ctx, email, tokenString, name)
	}
	return s.mailer.SendVerification(ctx, email, tokenString, name)
}

// Login verifies local credentials and issues a fresh token pair. The
// stored refresh token is overwritten, invalidating any earlier
// session.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, fmt.Errorf("%w: user does not exist", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if acct.Provider != accounts.ProviderLocal {
		return nil, fmt.Errorf("%w: please login using %s", httpx.ErrValidation, acct.Provider)
	}
	if !s.store.CheckPassword(acct, password) {
		return nil, fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	}
	if !acct.IsEmailVerified {
		return nil, fmt.Errorf("%w: please verify your email before logging in", httpx.ErrUnauthorized)
	}

	pair, err := s.issueTokens(ctx, acct)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: NewAccountView(acct), Tokens: pair}, nil
}

// Logout revokes the caller's stored refresh token. Idempotent.
func (s *Service) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.SetRefreshToken(ctx, accountID, nil); err != nil && !errors.Is(err, accounts.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Refresh validates a presented refresh token and rotates it. Every
// failure mode is unauthorized: an absent, malformed, expired, or
// superseded token reveals nothing further.
func (s *Service) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, fmt.Errorf("%w: unauthorized request", httpx.ErrUnauthorized)
	}
	claims, err := s.tokens.Verify(token.Refresh, presented)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", httpx.ErrUnauthorized)
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", httpx.ErrUnauthorized)
	}
	acct, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", httpx.ErrUnauthorized)
	}
	if acct.RefreshToken == nil || *acct.RefreshToken != presented {
		return nil, fmt.Errorf("%w: refresh token is expired or used", httpx.ErrUnauthorized)
	}

	pair, err := s.issueTokens(ctx, acct)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// CurrentUser returns the wire representation of the caller's account.
func (s *Service) CurrentUser(ctx context.Context, accountID uuid.UUID) (*AccountView, error) {
	acct, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	view := NewAccountView(acct)
	return &view, nil
}

// VerifyEmail validates a verification token against both its
// signature and the stored copy, then flips the account to verified.
// Re-verifying an already verified account succeeds as a no-op.
func (s *Service) VerifyEmail(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.Verify(token.EmailVerification, tokenString)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired verification token", httpx.ErrValidation)
	}
	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return fmt.Errorf("%w: invalid verification token", httpx.ErrValidation)
	}
	acct, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return fmt.Errorf("find account: %w", err)
	}
	if acct.IsEmailVerified {
		return nil
	}
	// The stored copy must match exactly: a token that still verifies
	// cryptographically may have been superseded by a resend.
	if acct.EmailVerificationToken == nil || *acct.EmailVerificationToken != tokenString {
		return fmt.Errorf("%w: invalid verification token", httpx.ErrValidation)
	}
	if acct.EmailVerificationExpiry == nil || acct.EmailVerificationExpiry.Before(s.now()) {
		return fmt.Errorf("%w: verification token has expired", httpx.ErrValidation)
	}

	if err := s.store.MarkVerified(ctx, acct.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// ResendVerification mints a fresh verification token, invalidating the
// previous one by overwrite, and sends the email. Unlike registration,
// a delivery failure here propagates: the caller explicitly asked for
// the email.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return fmt.Errorf("find account: %w", err)
	}
	if acct.IsEmailVerified {
		return fmt.Errorf("%w: email is already verified", httpx.ErrValidation)
	}

	verification, err := s.tokens.Mint(token.EmailVerification, subject(acct))
	if err != nil {
		return fmt.Errorf("mint verification token: %w", err)
	}
	expiry := s.now().Add(s.tokens.TTL(token.EmailVerification))
	if err := s.store.SetVerification(ctx, acct.ID, verification, expiry); err != nil {
		return fmt.Errorf("persist verification token: %w", err)
	}
	if err := s.mailer.SendVerification(ctx, acct.Email, verification, acct.Name); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ForgotPassword mints a password reset token, persists it with a 1h
// expiry, and sends the reset email. The consuming endpoint is handled
// by the account management service.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	acct, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return fmt.Errorf("find account: %w", err)
	}

	reset, err := s.tokens.Mint(token.PasswordReset, subject(acct))
	if err != nil {
		return fmt.Errorf("mint reset token: %w", err)
	}
	expiry := s.now().Add(s.tokens.TTL(token.PasswordReset))
	if err := s.store.SetResetToken(ctx, acct.ID, reset, expiry); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, acct.Email, reset, acct.Name); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}
