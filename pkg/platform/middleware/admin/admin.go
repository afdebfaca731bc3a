// Package admin guards the operator audit routes with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/platform/httputil"
	"dcaf/pkg/requestcontext"
)

// HeaderAdminToken carries the operator token.
const HeaderAdminToken = "X-Admin-Token"

var errAdminToken = dErrors.New(dErrors.CodeUnauthorized, "admin token required")

// RequireAdminToken rejects requests whose X-Admin-Token differs from want.
// With an empty want every request is rejected.
func RequireAdminToken(want string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(want)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderAdminToken))
			if len(expected) > 0 && subtle.ConstantTimeCompare(got, expected) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			if logger != nil {
				logger.WarnContext(r.Context(), "admin token rejected",
					"path", r.URL.Path,
					"client_ip", requestcontext.ClientIP(r.Context()),
					"request_id", requestcontext.RequestID(r.Context()),
				)
			}
			httputil.WriteError(w, errAdminToken)
		})
	}
}
