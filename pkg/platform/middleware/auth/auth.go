// Package auth authenticates bearer login tokens and gates routes on the
// login decision carried in them.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dcaf/pkg/platform/httputil"
	"dcaf/pkg/requestcontext"
)

// JWTValidator verifies a raw bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// ValidatorFunc adapts a plain function to JWTValidator.
type ValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f ValidatorFunc) ValidateToken(tokenString string) (*JWTClaims, error) { return f(tokenString) }

// JWTClaims is the transport-neutral view of a login token.
type JWTClaims struct {
	Email     string
	Status    string
	JTI       string
	ExpiresAt time.Time
}

// StatusApproved is the only status RequireApproved lets through.
const StatusApproved = "APPROVED"

type claimsKey struct{}

// GetClaims returns the claims stored by RequireAuth, or nil.
func GetClaims(ctx context.Context) *JWTClaims {
	c, _ := ctx.Value(claimsKey{}).(*JWTClaims)
	return c
}

// WithClaims stores claims in ctx. Handler tests use it to skip the middleware.
func WithClaims(ctx context.Context, claims *JWTClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// bearerToken extracts the credential of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func reject(w http.ResponseWriter, status int, code, description string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: code, ErrorDescription: description})
}

// RequireAuth rejects requests without a valid bearer login token and stores
// the claims of a valid one in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := bearerToken(r)
			if token == "" {
				logger.WarnContext(ctx, "bearer token missing", "request_id", requestcontext.RequestID(ctx))
				reject(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "bearer token rejected",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				reject(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}

// RequireApproved must run after RequireAuth. Tokens minted for a
// CHALLENGED login are refused with step_up_required.
func RequireApproved(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			switch {
			case claims == nil:
				reject(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			case claims.Status != StatusApproved:
				logger.InfoContext(r.Context(), "step-up required",
					"jti", claims.JTI,
					"status", claims.Status,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				reject(w, http.StatusForbidden, "step_up_required", "Login must be approved")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
