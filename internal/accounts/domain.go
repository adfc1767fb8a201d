// Package accounts owns the persisted account records and the rules for
// creating and mutating credentials.
package accounts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Provider identifies which credential path is valid for an account.
type Provider string

const (
	ProviderLocal     Provider = "local"
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// Sentinel errors surfaced by the store.
var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("account with email already exists")
)

// Account is the sole persisted entity. PasswordHash is present iff the
// provider is local; at most one external id is set, matching Provider.
type Account struct {
	ID                      uuid.UUID
	Name                    string
	Email                   string
	PasswordHash            *string
	Provider                Provider
	GoogleID                *string
	MicrosoftID             *string
	ProfileImage            string
	IsEmailVerified         bool
	EmailVerificationToken  *string
	EmailVerificationExpiry *time.Time
	ResetPasswordToken      *string
	ResetPasswordExpiry     *time.Time
	RefreshToken            *string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ExternalID returns the federated identity bound to the account, if any.
func (a *Account) ExternalID() *string {
	switch a.Provider {
	case ProviderGoogle:
		return a.GoogleID
	case ProviderMicrosoft:
		return a.MicrosoftID
	default:
		return nil
	}
}
