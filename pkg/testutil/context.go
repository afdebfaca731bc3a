package testutil

import (
	"net/http"

	authmw "dcaf/pkg/platform/middleware/auth"
	"dcaf/pkg/requestcontext"
)

// WithClientMetadata attaches the client IP and User-Agent the way the
// metadata middleware would.
func WithClientMetadata(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}

// WithLoginClaims simulates what RequireAuth does for a validated bearer token.
func WithLoginClaims(req *http.Request, email, status, jti string) *http.Request {
	return req.WithContext(authmw.WithClaims(req.Context(), &authmw.JWTClaims{
		Email:  email,
		Status: status,
		JTI:    jti,
	}))
}
