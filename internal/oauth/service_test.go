package oauth

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/unclefab/unclefab-auth/internal/accounts"
	"github.com/unclefab/unclefab-auth/internal/token"
)

type memRepo struct {
	byID map[uuid.UUID]*accounts.Account
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*accounts.Account)}
}

func (m *memRepo) Create(ctx context.Context, acct accounts.Account) error {
	for _, existing := range m.byID {
		if existing.Email == acct.Email {
			return accounts.ErrDuplicateEmail
		}
	}
	acct.CreatedAt = time.Now()
	acct.UpdatedAt = acct.CreatedAt
	stored := acct
	m.byID[acct.ID] = &stored
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*accounts.Account, error) {
	acct, ok := m.byID[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *acct
	return &copied, nil
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	for _, acct := range m.byID {
		if acct.Email == email {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (m *memRepo) FindByExternalID(ctx context.Context, provider accounts.Provider, externalID string) (*accounts.Account, error) {
	for _, acct := range m.byID {
		ext := acct.ExternalID()
		if acct.Provider == provider && ext != nil && *ext == externalID {
			copied := *acct
			return &copied, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (m *memRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, tok *string) error {
	acct, ok := m.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	acct.RefreshToken = tok
	return nil
}

func (m *memRepo) SetVerification(ctx context.Context, id uuid.UUID, tok string, expiry time.Time) error {
	return accounts.ErrNotFound
}

func (m *memRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return accounts.ErrNotFound
}

func (m *memRepo) SetResetToken(ctx context.Context, id uuid.UUID, tok string, expiry time.Time) error {
	return accounts.ErrNotFound
}

var _ accounts.Repository = (*memRepo)(nil)

type stubClient struct {
	status string
	code   int
	body   string
	err    error
}

func (c *stubClient) Do(req *http.Request) (*http.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		Status:     c.status,
		StatusCode: c.code,
		Body:       io.NopCloser(strings.NewReader(c.body)),
		Header:     make(http.Header),
	}, nil
}

func newTestService(t *testing.T) (*Service, *memRepo, *token.Service) {
	t.Helper()
	tokens, err := token.NewService(token.Config{
		AccessSecret:            "access-secret",
		AccessTTL:               15 * time.Minute,
		RefreshSecret:           "refresh-secret",
		RefreshTTL:              7 * 24 * time.Hour,
		EmailVerificationSecret: "verify-secret",
		EmailVerificationTTL:    24 * time.Hour,
		PasswordResetSecret:     "reset-secret",
		PasswordResetTTL:        time.Hour,
	})
	require.NoError(t, err)

	repo := newMemRepo()
	svc := NewService(Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		GoogleCallbackURL:  "http://localhost:8080/auth/google/callback",
	}, accounts.NewStore(repo), tokens)
	require.NotNil(t, svc)
	return svc, repo, tokens
}

func TestNewServiceDisabledWithoutCredentials(t *testing.T) {
	svc := NewService(Config{}, nil, nil)
	assert.Nil(t, svc)

	svc = NewService(Config{GoogleClientID: "id-only"}, nil, nil)
	assert.Nil(t, svc)
}

func TestAuthURLCarriesStateAndClient(t *testing.T) {
	svc, _, _ := newTestService(t)

	u := svc.AuthURL("the-state")
	assert.Contains(t, u, "state=the-state")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "access_type=offline")
}

func TestFetchGoogleIdentity(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.WithHTTPClient(&stubClient{
		code: http.StatusOK,
		body: `{"id":"g-123","email":"ana@x.com","name":"Ana"}`,
	})

	identity, err := svc.fetchGoogleIdentity(context.Background(), &oauth2.Token{AccessToken: "provider-token"})
	require.NoError(t, err)
	assert.Equal(t, accounts.ProviderGoogle, identity.Provider)
	assert.Equal(t, "g-123", identity.ExternalID)
	assert.Equal(t, "ana@x.com", identity.Email)
	assert.Equal(t, "Ana", identity.Name)
}

func TestFetchGoogleIdentityFailures(t *testing.T) {
	svc, _, _ := newTestService(t)

	svc.WithHTTPClient(&stubClient{code: http.StatusUnauthorized, body: `{}`})
	_, err := svc.fetchGoogleIdentity(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.Error(t, err, "non-200 userinfo response")

	svc.WithHTTPClient(&stubClient{code: http.StatusOK, body: `{"email":"ana@x.com"}`})
	_, err = svc.fetchGoogleIdentity(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.Error(t, err, "userinfo without an id")

	svc.WithHTTPClient(&stubClient{code: http.StatusOK, body: `not json`})
	_, err = svc.fetchGoogleIdentity(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.Error(t, err, "malformed userinfo body")
}

func TestSignInCreatesVerifiedAccountAndTokens(t *testing.T) {
	svc, repo, tokens := newTestService(t)
	identity := ExternalIdentity{
		Provider:   accounts.ProviderGoogle,
		ExternalID: "g-123",
		Email:      "ana@x.com",
		Name:       "Ana",
	}

	acct, pair, err := svc.SignIn(context.Background(), identity)
	require.NoError(t, err)
	assert.True(t, acct.IsEmailVerified, "federated accounts skip email verification")
	assert.Equal(t, accounts.ProviderGoogle, acct.Provider)

	claims, err := tokens.Verify(token.Access, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acct.ID.String(), claims.AccountID)

	stored, err := repo.FindByID(context.Background(), acct.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)
}

func TestSignInReusesExistingAccount(t *testing.T) {
	svc, repo, _ := newTestService(t)
	identity := ExternalIdentity{
		Provider:   accounts.ProviderGoogle,
		ExternalID: "g-123",
		Email:      "ana@x.com",
		Name:       "Ana",
	}

	first, firstPair, err := svc.SignIn(context.Background(), identity)
	require.NoError(t, err)
	second, secondPair, err := svc.SignIn(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.byID, 1)

	// The second login overwrites the stored refresh token.
	stored, err := repo.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, secondPair.RefreshToken, *stored.RefreshToken)
	assert.NotEqual(t, firstPair.RefreshToken, *stored.RefreshToken)
}
