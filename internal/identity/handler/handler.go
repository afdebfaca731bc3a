package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/platform/httputil"
	"dcaf/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/identity-mocks.go -package=mocks Service

// Service defines the interface for identity authorization.
type Service interface {
	AuthorizeIdentity(ctx context.Context, req models.AuthorizeRequest) (*models.AuthenticationResult, error)
}

// Handler wires identity endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts identity endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/authorize", h.HandleAuthorize)
}

// HandleAuthorize handles POST /identity/authorize requests.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AuthorizeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.AuthorizeIdentity(ctx, req.toModel())
	if err != nil {
		h.logger.ErrorContext(ctx, "identity authorization failed",
			"request_id", requestID,
			"owner_profile_ref", req.OwnerProfileRef,
			"error_code", string(dErrors.CodeOf(err)),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity authorized",
		"request_id", requestID,
		"owner_profile_ref", req.OwnerProfileRef,
		"content_fingerprint", result.ContentFingerprint,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
