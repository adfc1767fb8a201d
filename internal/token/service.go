// Package token mints and verifies the four bearer credential kinds
// used by the auth flows. Each kind has its own HMAC secret and
// lifetime, so a token minted for one purpose never verifies as
// another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects a token purpose.
type Kind string

const (
	Access            Kind = "access"
	Refresh           Kind = "refresh"
	EmailVerification Kind = "emailVerification"
	PasswordReset     Kind = "passwordReset"
)

// Typed verification failures. Flows normalize these to 401/400 at the
// boundary so callers never see raw cryptographic detail.
var (
	ErrExpired     = errors.New("token expired")
	ErrMalformed   = errors.New("token malformed")
	ErrSignature   = errors.New("token signature invalid")
	ErrUnknownKind = errors.New("unknown token kind")
)

// Subject is the identity a token is minted for. Email and Name are
// only embedded where the kind calls for them.
type Subject struct {
	ID    string
	Email string
	Name  string
}

// Claims is the signed payload common to all kinds.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

type kindConfig struct {
	secret []byte
	ttl    time.Duration
}

// Config carries one secret and lifetime per kind.
type Config struct {
	AccessSecret            string
	AccessTTL               time.Duration
	RefreshSecret           string
	RefreshTTL              time.Duration
	EmailVerificationSecret string
	EmailVerificationTTL    time.Duration
	PasswordResetSecret     string
	PasswordResetTTL        time.Duration
}

// Service signs and verifies tokens. Verification is pure and safe for
// concurrent use.
type Service struct {
	kinds map[Kind]kindConfig
	now   func() time.Time
}

// NewService constructs a Service from per-kind configuration.
func NewService(cfg Config) (*Service, error) {
	kinds := map[Kind]kindConfig{
		Access:            {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		Refresh:           {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		EmailVerification: {secret: []byte(cfg.EmailVerificationSecret), ttl: cfg.EmailVerificationTTL},
		PasswordReset:     {secret: []byte(cfg.PasswordResetSecret), ttl: cfg.PasswordResetTTL},
	}
	for kind, kc := range kinds {
		if len(kc.secret) == 0 {
			return nil, fmt.Errorf("token: %s secret is required", kind)
		}
		if kc.ttl <= 0 {
			return nil, fmt.Errorf("token: %s ttl must be positive", kind)
		}
	}
	return &Service{kinds: kinds, now: time.Now}, nil
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTL reports the configured lifetime for a kind.
func (s *Service) TTL(kind Kind) time.Duration {
	return s.kinds[kind].ttl
}

// Mint signs a token of the given kind for the subject.
func (s *Service) Mint(kind Kind, sub Subject) (string, error) {
	kc, ok := s.kinds[kind]
	if !ok {
		return "", ErrUnknownKind
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The unique ID makes every minted token distinct, so
			// overwriting a stored refresh token always revokes the
			// previous one even when both were minted within a second.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(kc.ttl)),
		},
		AccountID: sub.ID,
	}
	switch kind {
	case Access:
		claims.Email = sub.Email
		claims.Name = sub.Name
	case EmailVerification, PasswordReset:
		claims.Email = sub.Email
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(kc.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify parses and validates a token of the given kind. Structurally
// invalid input reports ErrMalformed rather than panicking; a token
// signed with another kind's secret reports ErrSignature.
func (s *Service) Verify(kind Kind, tokenString string) (*Claims, error) {
	kc, ok := s.kinds[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return kc.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}
	return &claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrSignature
	default:
		return ErrMalformed
	}
}
