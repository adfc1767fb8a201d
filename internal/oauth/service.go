// Package oauth maps externally verified identities onto account
// records and issues the same token pair as a local login.
//
// Design note: the callback hands tokens back to the SPA as query
// parameters on the redirect URL, not as cookies like the local flow.
// That asymmetry is part of the front-end contract; changing it means
// changing the SPA's oauth-callback route first.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/unclefab/unclefab-auth/internal/accounts"
	"github.com/unclefab/unclefab-auth/internal/token"
)

// ExternalIdentity is the verified result of a provider handshake.
type ExternalIdentity struct {
	Provider   accounts.Provider
	ExternalID string
	Email      string
	Name       string
}

// HTTPClient allows substituting the userinfo transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config carries the provider credentials.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// TokenPair mirrors the pair issued by the local login flow.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service performs the Google handshake and the create-or-link step.
type Service struct {
	google *oauth2.Config
	store  *accounts.Store
	tokens *token.Service
	client HTTPClient
}

// NewService constructs a Service. Returns nil when Google credentials
// are not configured, which disables the federated routes.
func NewService(cfg Config, store *accounts.Store, tokens *token.Service) *Service {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil
	}
	return &Service{
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.GoogleCallbackURL,
			Scopes:       []string{"email", "profile"},
		},
		store:  store,
		tokens: tokens,
		client: http.DefaultClient,
	}
}

// WithHTTPClient overrides the userinfo transport, for tests.
func (s *Service) WithHTTPClient(client HTTPClient) *Service {
	s.client = client
	return s
}

// AuthURL returns the provider consent URL for the given state.
func (s *Service) AuthURL(state string) string {
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a verified external
// identity.
func (s *Service) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	providerToken, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return s.fetchGoogleIdentity(ctx, providerToken)
}

func (s *Service) fetchGoogleIdentity(ctx context.Context, providerToken *oauth2.Token) (*ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	providerToken.SetAuthHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch google user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned status %d", resp.StatusCode)
	}

	var data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode google user response: %w", err)
	}
	if data.ID == "" {
		return nil, fmt.Errorf("google user response missing id")
	}
	return &ExternalIdentity{
		Provider:   accounts.ProviderGoogle,
		ExternalID: data.ID,
		Email:      data.Email,
		Name:       data.Name,
	}, nil
}

// SignIn resolves the identity to an account (creating one on first
// login) and issues a token pair exactly as the local login does,
// persisting the refresh token.
func (s *Service) SignIn(ctx context.Context, identity ExternalIdentity) (*accounts.Account, TokenPair, error) {
	acct, err := s.store.CreateOrLinkFederated(ctx, identity.Provider, identity.ExternalID, identity.Email, identity.Name)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("find or create account: %w", err)
	}

	sub := token.Subject{ID: acct.ID.String(), Email: acct.Email, Name: acct.Name}
	access, err := s.tokens.Mint(token.Access, sub)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.tokens.Mint(token.Refresh, sub)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("mint refresh token: %w", err)
	}
	if err := s.store.SetRefreshToken(ctx, acct.ID, &refresh); err != nil {
		return nil, TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return acct, TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
