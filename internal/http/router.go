// Package httpapi assembles the chi router: shared middleware, operational
// endpoints and every feature handler.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dcaf/internal/admin"
	identityhandler "dcaf/internal/identity/handler"
	loginhandler "dcaf/internal/login/handler"
	"dcaf/internal/platform/metrics"
	ratelimitmw "dcaf/internal/ratelimit/middleware"
	ratelimitmodels "dcaf/internal/ratelimit/models"
	"dcaf/pkg/platform/httputil"
	adminmw "dcaf/pkg/platform/middleware/admin"
	authmw "dcaf/pkg/platform/middleware/auth"
	"dcaf/pkg/platform/middleware/metadata"
	"dcaf/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps collects what the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Identity   *identityhandler.Handler
	Login      *loginhandler.Handler
	Admin      *admin.Handler
	RateLimit  *ratelimitmw.Middleware
	Tokens     authmw.JWTValidator
	AdminToken string
	Health     map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Registry != nil {
		r.Use(metrics.New(d.Registry).Middleware)
	}
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/health", handleHealth(d.Health))
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
	}

	if d.Identity != nil {
		r.Group(func(r chi.Router) {
			d.limit(r, ratelimitmodels.ClassSensitive)
			d.Identity.Register(r)
		})
	}
	if d.Login != nil {
		r.Group(func(r chi.Router) {
			d.limit(r, ratelimitmodels.ClassAuth)
			d.Login.Register(r)
		})
		if d.Tokens != nil {
			r.Group(func(r chi.Router) {
				r.Use(authmw.RequireAuth(d.Tokens, d.Logger))
				r.Use(authmw.RequireApproved(d.Logger))
				d.Login.RegisterProtected(r)
			})
		}
	}
	if d.Admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
			d.Admin.Register(r)
		})
	}
	return r
}

func (d Deps) limit(r chi.Router, class ratelimitmodels.EndpointClass) {
	if d.RateLimit != nil {
		r.Use(d.RateLimit.RateLimit(class))
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
