package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"dcaf/internal/admin"
	jwttoken "dcaf/internal/jwt_token"
	loginhandler "dcaf/internal/login/handler"
	"dcaf/internal/login/models"
	"dcaf/internal/login/ports"
	ratelimitmw "dcaf/internal/ratelimit/middleware"
	ratelimitmodels "dcaf/internal/ratelimit/models"
	"dcaf/internal/ratelimit/store/bucket"
	"dcaf/pkg/platform/audit/store/memory"
	"dcaf/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	jwt     *jwttoken.JWTService
	healthy bool
	router  http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.jwt = jwttoken.NewJWTService("test-key", "dcaf", "dcaf-clients")
	s.healthy = true

	s.router = NewRouter(Deps{
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Login:    loginhandler.New(nil, s.jwt, logger),
		Admin:    admin.New(memory.NewInMemoryStore(), logger),
		RateLimit: ratelimitmw.New(bucket.NewInMemoryBucketStore(), logger,
			ratelimitmw.WithPolicy(ratelimitmodels.ClassAuth, ratelimitmodels.Policy{Limit: 2, Window: time.Minute}),
		),
		Tokens:     s.jwt.Middleware(),
		AdminToken: "admin",
		Health: map[string]HealthCheck{
			"redis": func(context.Context) error {
				if !s.healthy {
					return errors.New("down")
				}
				return nil
			},
		},
	})
}

func (s *RouterSuite) token(status models.Status) string {
	tok, _, err := s.jwt.GenerateLoginToken(ports.LoginTokenRequest{
		Email:         "a@example.com",
		ContextDigest: "digest",
		Status:        status,
		IssuedAt:      time.Now(),
		TTL:           time.Minute,
	})
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"redis":"ok"`)

	s.healthy = false
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	s.Equal(http.StatusServiceUnavailable, rr.Code)
	s.Contains(rr.Body.String(), "degraded")
}

func (s *RouterSuite) TestMetricsExposeRouteCounters() {
	testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "dcaf_http_requests_total")
}

func (s *RouterSuite) TestSessionRequiresApprovedToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/auth/session"))
	s.Equal(http.StatusUnauthorized, rr.Code)

	req := testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/session"), s.token(models.StatusChallenged))
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusForbidden, rr.Code)
	s.Contains(rr.Body.String(), "step_up_required")

	req = testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodGet, "/auth/session"), s.token(models.StatusApproved))
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "a@example.com")
}

func (s *RouterSuite) TestAdminRoutesRequireToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/recent"))
	s.Equal(http.StatusUnauthorized, rr.Code)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/recent")
	req.Header.Set("X-Admin-Token", "admin")
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterSuite) TestLoginRoutesAreRateLimited() {
	introspect := func() int {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token/introspect", map[string]string{"token": "x"})
		return testutil.DoRequest(s.router, req).Code
	}
	s.Equal(http.StatusOK, introspect())
	s.Equal(http.StatusOK, introspect())
	s.Equal(http.StatusTooManyRequests, introspect())

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	s.Equal(http.StatusOK, rr.Code, "operational routes are not limited")
}
