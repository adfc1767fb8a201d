package oauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/unclefab/unclefab-auth/internal/accounts"
)

const testFrontendURL = "https://unclefab.com"

type memStateStore struct {
	states map[string]bool
	next   int
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]bool)}
}

func (m *memStateStore) Issue(ctx context.Context) (string, error) {
	m.next++
	state := fmt.Sprintf("state-%d", m.next)
	m.states[state] = true
	return state, nil
}

func (m *memStateStore) Consume(ctx context.Context, state string) (bool, error) {
	if !m.states[state] {
		return false, nil
	}
	delete(m.states, state)
	return true, nil
}

var _ StateStore = (*memStateStore)(nil)

// seed records a state as if a login redirect had issued it.
func (m *memStateStore) seed(state string) {
	m.states[state] = true
}

type handlerFixture struct {
	handler *Handler
	router  chi.Router
	repo    *memRepo
	states  *memStateStore
}

// newHandlerFixture wires the handler against a local token endpoint
// and a stubbed userinfo transport, so the full callback path runs
// without leaving the process. The token endpoint rejects the code
// "bad-code" to drive the exchange failure branch.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	svc, repo, _ := newTestService(t)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") == "bad-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"provider-token","token_type":"Bearer"}`)
	}))
	t.Cleanup(tokenServer.Close)

	svc.google.Endpoint = oauth2.Endpoint{
		AuthURL:  "https://provider.example/o/oauth2/auth",
		TokenURL: tokenServer.URL + "/token",
	}
	svc.WithHTTPClient(&stubClient{
		code: http.StatusOK,
		body: `{"id":"g-123","email":"ana@x.com","name":"Ana"}`,
	})

	states := newMemStateStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, states, testFrontendURL)

	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)

	return &handlerFixture{handler: h, router: r, repo: repo, states: states}
}

func (hf *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	hf.router.ServeHTTP(rec, req)
	return rec
}

func TestGoogleLoginRedirectsToConsent(t *testing.T) {
	hf := newHandlerFixture(t)

	rec := hf.get(t, "/auth/google")
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	assert.Contains(t, location, "https://provider.example/o/oauth2/auth")
	assert.Contains(t, location, "client_id=client-id")
	assert.Contains(t, location, "state=state-1")
	assert.True(t, hf.states.states["state-1"], "the issued state is pending consumption")
}

func TestGoogleCallbackSuccess(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.states.seed("the-state")

	rec := hf.get(t, "/auth/google/callback?state=the-state&code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, testFrontendURL+"/oauth-callback", location.Scheme+"://"+location.Host+location.Path)

	query := location.Query()
	assert.NotEmpty(t, query.Get("accessToken"))
	assert.NotEmpty(t, query.Get("refreshToken"))

	// The sign-in created the account and persisted the refresh token
	// from the redirect.
	acct, err := hf.repo.FindByExternalID(context.Background(), accounts.ProviderGoogle, "g-123")
	require.NoError(t, err)
	assert.True(t, acct.IsEmailVerified)
	require.NotNil(t, acct.RefreshToken)
	assert.Equal(t, query.Get("refreshToken"), *acct.RefreshToken)
}

func TestGoogleCallbackConsumesState(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.states.seed("the-state")

	rec := hf.get(t, "/auth/google/callback?state=the-state&code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)

	rec = hf.get(t, "/auth/google/callback?state=the-state&code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login", rec.Header().Get("Location"), "a state replays as a mismatch")
}

func TestGoogleCallbackConsentDenied(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.states.seed("the-state")

	rec := hf.get(t, "/auth/google/callback?error=access_denied&state=the-state")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login", rec.Header().Get("Location"))
	assert.Empty(t, hf.repo.byID, "no account is created on denial")
}

func TestGoogleCallbackStateMismatch(t *testing.T) {
	hf := newHandlerFixture(t)

	rec := hf.get(t, "/auth/google/callback?state=never-issued&code=good-code")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login", rec.Header().Get("Location"))
	assert.Empty(t, hf.repo.byID)
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	hf := newHandlerFixture(t)
	hf.states.seed("the-state")

	rec := hf.get(t, "/auth/google/callback?state=the-state&code=bad-code")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testFrontendURL+"/login", rec.Header().Get("Location"))
	assert.Empty(t, hf.repo.byID)
}
