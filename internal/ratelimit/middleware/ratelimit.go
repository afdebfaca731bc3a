// Package middleware enforces per-client-IP request budgets on chi routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dcaf/internal/ratelimit/metrics"
	"dcaf/internal/ratelimit/models"
	"dcaf/pkg/platform/httputil"
	"dcaf/pkg/requestcontext"
)

// BucketStore admits or rejects one request for key.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

type Middleware struct {
	store    BucketStore
	policies map[models.EndpointClass]models.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithPolicy(class models.EndpointClass, p models.Policy) Option {
	return func(m *Middleware) { m.policies[class] = p }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:    store,
		policies: map[models.EndpointClass]models.Policy{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit applies the class policy per client IP. Requests on an
// unlimited or unknown class pass untouched. Store failures fail open.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	policy, limited := m.policies[class]
	limited = limited && !m.disabled && !policy.Unlimited()
	return func(next http.Handler) http.Handler {
		if !limited {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.admit(w, r, class, policy) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// admit reports whether the request may proceed. A rejected request has
// already been answered.
func (m *Middleware) admit(w http.ResponseWriter, r *http.Request, class models.EndpointClass, policy models.Policy) bool {
	ctx := r.Context()
	result, err := m.store.Allow(ctx, models.BucketKey(class, requestcontext.ClientIP(ctx)), policy.Limit, policy.Window)
	if err != nil {
		m.metrics.IncrementStoreError()
		m.logger.ErrorContext(ctx, "rate limit store unavailable, admitting request",
			"class", string(class),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return true
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if result.Allowed {
		return true
	}

	m.metrics.IncrementRejection(string(class))
	m.logger.WarnContext(ctx, "rate limit exceeded",
		"class", string(class),
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	h.Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.RateLimitExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "request budget for this client exhausted",
		RetryAfter:       result.RetryAfter,
	})
	return false
}
