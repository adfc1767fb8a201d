package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/unclefab/unclefab-auth/internal/observability"
	"github.com/unclefab/unclefab-auth/internal/platform/httpx"
	"github.com/unclefab/unclefab-auth/internal/token"
)

// HandlerConfig carries the handler knobs that come from app config.
type HandlerConfig struct {
	// SecureCookies marks auth cookies Secure; enabled in production.
	SecureCookies bool
}

// Handler wires HTTP endpoints for the local auth and refresh flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	tokens    *token.Service
	metrics   *observability.Metrics
	validator *validator.Validate
	cfg       HandlerConfig
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *token.Service, metrics *observability.Metrics, cfg HandlerConfig) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		tokens:    tokens,
		metrics:   metrics,
		validator: validator.New(),
		cfg:       cfg,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/refresh-token", h.handleRefresh)
	r.Post("/verify-email", h.handleVerifyEmail)
	r.Post("/resend-verification", h.handleResendVerification)
	r.Post("/forgot-password", h.handleForgotPassword)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.tokens))
		r.Post("/logout", h.handleLogout)
		r.Get("/current-user", h.handleCurrentUser)
	})
}

func (h *Handler) decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return httpx.ErrValidation
	}
	if err := h.validator.Struct(target); err != nil {
		return httpx.ErrValidation
	}
	return nil
}

func (h *Handler) observe(op, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveAuth(op, outcome)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "all fields are required")
		return
	}

	account, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.observe("register", "failure")
		h.logger.Warn("register", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.observe("register", "success")
	httpx.OK(w, http.StatusCreated, account, "User registered successfully. Please check your email to verify your account.")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.observe("login", "failure")
		h.logger.Warn("login", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.observe("login", "success")
	h.setAuthCookies(w, result.Tokens)
	httpx.OK(w, http.StatusOK, map[string]any{
		"user":         result.Account,
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthorized request")
		return
	}
	if err := h.service.Logout(r.Context(), identity.ID); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.clearAuthCookies(w)
	httpx.OK(w, http.StatusOK, map[string]any{}, "User logged out")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	presented := ""
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		// Body is optional when the cookie is present; ignore decode errors.
		_ = httpx.DecodeJSON(r, &req)
		presented = req.RefreshToken
	}

	pair, err := h.service.Refresh(r.Context(), presented)
	if err != nil {
		h.observe("refresh", "failure")
		httpx.RespondError(w, err)
		return
	}
	h.observe("refresh", "success")
	h.setAuthCookies(w, *pair)
	httpx.OK(w, http.StatusOK, pair, "Access token refreshed")
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unauthorized request")
		return
	}
	account, err := h.service.CurrentUser(r.Context(), identity.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, account, "User fetched successfully")
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "verification token is required")
		return
	}
	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		h.observe("verify_email", "failure")
		httpx.RespondError(w, err)
		return
	}
	h.observe("verify_email", "success")
	httpx.OK(w, http.StatusOK, map[string]any{}, "Email verified successfully")
}

func (h *Handler) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email is required")
		return
	}
	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		h.logger.Warn("resend verification", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{}, "Verification email sent successfully")
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email is required")
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Warn("forgot password", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{}, "Password reset email sent successfully")
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair TokenPair) {
	http.SetCookie(w, h.authCookie(AccessTokenCookie, pair.AccessToken, h.tokens.TTL(token.Access)))
	http.SetCookie(w, h.authCookie(RefreshTokenCookie, pair.RefreshToken, h.tokens.TTL(token.Refresh)))
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.authCookie(AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, h.authCookie(RefreshTokenCookie, "", -time.Second))
}

func (h *Handler) authCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
