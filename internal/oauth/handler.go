package oauth

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Handler wires the federated login endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	states      StateStore
	frontendURL string
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, states StateStore, frontendURL string) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		states:      states,
		frontendURL: frontendURL,
	}
}

// MountRoutes registers federated login routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/google", h.handleGoogleLogin)
	r.Get("/google/callback", h.handleGoogleCallback)
}

func (h *Handler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Issue(r.Context())
	if err != nil {
		h.logger.Error("issue oauth state", slog.Any("error", err))
		h.redirectToLogin(w, r)
		return
	}
	http.Redirect(w, r, h.service.AuthURL(state), http.StatusFound)
}

func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("error") != "" {
		h.logger.Warn("oauth consent denied", slog.String("error", query.Get("error")))
		h.redirectToLogin(w, r)
		return
	}

	ok, err := h.states.Consume(r.Context(), query.Get("state"))
	if err != nil || !ok {
		h.logger.Warn("oauth state mismatch", slog.Any("error", err))
		h.redirectToLogin(w, r)
		return
	}

	identity, err := h.service.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		h.logger.Warn("oauth exchange", slog.Any("error", err))
		h.redirectToLogin(w, r)
		return
	}

	acct, pair, err := h.service.SignIn(r.Context(), *identity)
	if err != nil {
		h.logger.Error("oauth sign in", slog.Any("error", err))
		h.redirectToLogin(w, r)
		return
	}
	h.logger.Info("oauth login", slog.String("account_id", acct.ID.String()), slog.String("provider", string(identity.Provider)))

	// Tokens travel in the redirect URL here; see the package doc for
	// why this differs from the cookie delivery used by local login.
	redirect := h.frontendURL + "/oauth-callback?" + url.Values{
		"accessToken":  {pair.AccessToken},
		"refreshToken": {pair.RefreshToken},
	}.Encode()
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login", http.StatusFound)
}
