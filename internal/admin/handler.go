// Package admin exposes operator endpoints over the audit trail. Routes are
// mounted behind the admin token middleware.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/platform/audit"
	"dcaf/pkg/platform/httputil"
	"dcaf/pkg/requestcontext"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// AuditReader is the read side of the audit store.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
}

type Handler struct {
	audit  AuditReader
	logger *slog.Logger
}

func New(reader AuditReader, logger *slog.Logger) *Handler {
	return &Handler{audit: reader, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit/recent", h.HandleRecent)
	r.Get("/admin/audit/subjects/{subject}", h.HandleBySubject)
}

// HandleRecent handles GET /admin/audit/recent?limit=N.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	events, err := h.audit.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent audit events",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditList(events))
}

// HandleBySubject handles GET /admin/audit/subjects/{subject}.
func (h *Handler) HandleBySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject := chi.URLParam(r, "subject")
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "subject is required"))
		return
	}

	events, err := h.audit.ListBySubject(ctx, subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events by subject",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditList(events))
}
