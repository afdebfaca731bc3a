package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "dcaf/internal/jwt_token"
	"dcaf/internal/login/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/email"
	"dcaf/pkg/platform/httputil"
	authmw "dcaf/pkg/platform/middleware/auth"
	"dcaf/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/login-mocks.go -package=mocks Service,TokenValidator

// Service defines the interface for secure login.
type Service interface {
	SecureLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
}

// TokenValidator validates minted login tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.LoginClaims, error)
}

// Handler wires login endpoints to the login service.
type Handler struct {
	service Service
	tokens  TokenValidator
	logger  *slog.Logger
}

func New(service Service, tokens TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		tokens:  tokens,
		logger:  logger,
	}
}

// Register mounts public login endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/secure-login", h.HandleSecureLogin)
	r.Post("/auth/token/introspect", h.HandleIntrospect)
}

// RegisterProtected mounts endpoints that expect auth middleware to have run.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/session", h.HandleSession)
}

// HandleSecureLogin handles POST /auth/secure-login requests. Missing
// contextual IP and user agent are filled from the transport.
func (h *Handler) HandleSecureLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SecureLoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.Context.IPAddress == "" {
		req.Context.IPAddress = requestcontext.ClientIP(ctx)
	}
	if req.Context.UserAgent == "" {
		req.Context.UserAgent = requestcontext.UserAgent(ctx)
	}

	result, err := h.service.SecureLogin(ctx, req.toModel())
	if err != nil {
		h.logger.WarnContext(ctx, "secure login rejected",
			"request_id", requestID,
			"email", email.Mask(req.Email),
			"error_code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "secure login decided",
		"request_id", requestID,
		"email", email.Mask(req.Email),
		"status", string(result.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleIntrospect handles POST /auth/token/introspect requests.
func (h *Handler) HandleIntrospect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IntrospectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claims, err := h.tokens.ValidateToken(req.Token)
	if err != nil {
		h.logger.InfoContext(ctx, "inactive token introspected",
			"request_id", requestID,
			"reason", dErrors.Message(err),
		)
		httputil.WriteJSON(w, http.StatusOK, IntrospectResponse{Active: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromClaims(claims))
}

// HandleSession handles GET /auth/session for approved bearer tokens.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	claims := authmw.GetClaims(r.Context())
	if claims == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing login token"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromMiddlewareClaims(claims))
}
