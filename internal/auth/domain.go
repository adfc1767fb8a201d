package auth

import (
	"time"

	"github.com/unclefab/unclefab-auth/internal/accounts"
)

// AccountView is the wire representation of an account. It never
// carries the password hash or the refresh token.
type AccountView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImage    string    `json:"profileImage,omitempty"`
	AuthProvider    string    `json:"authProvider"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewAccountView projects an account onto its wire shape.
func NewAccountView(acct *accounts.Account) AccountView {
	return AccountView{
		ID:              acct.ID.String(),
		Name:            acct.Name,
		Email:           acct.Email,
		ProfileImage:    acct.ProfileImage,
		AuthProvider:    string(acct.Provider),
		IsEmailVerified: acct.IsEmailVerified,
		CreatedAt:       acct.CreatedAt,
		UpdatedAt:       acct.UpdatedAt,
	}
}

// TokenPair carries a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Account AccountView
	Tokens  TokenPair
}

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}
