package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"dcaf/pkg/platform/audit"
	"dcaf/pkg/platform/audit/store/memory"
	adminmw "dcaf/pkg/platform/middleware/admin"
	"dcaf/pkg/testutil"
)

const adminToken = "s3cret"

type AdminHandlerSuite struct {
	suite.Suite
	store  *memory.InMemoryStore
	router chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = memory.NewInMemoryStore()
	s.router = s.newRouter(s.store, logger)

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, e := range []audit.Event{
		{Subject: "a@example.com", Action: string(audit.EventLoginApproved), Decision: "APPROVED"},
		{Subject: "b@example.com", Action: string(audit.EventLoginDenied), Decision: "DENIED"},
		{Subject: "a@example.com", Action: string(audit.EventChallengeReused), ErrorCode: "challenge_reused"},
	} {
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		e.Category = audit.AuditEvent(e.Action).Category()
		s.Require().NoError(s.store.Append(ctx, e))
	}
}

func (s *AdminHandlerSuite) newRouter(reader AuditReader, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(adminToken, logger))
		New(reader, logger).Register(r)
	})
	return r
}

func (s *AdminHandlerSuite) get(path, token string) (*http.Response, AuditListResponse) {
	req := testutil.NewRequest(s.T(), http.MethodGet, path)
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}
	rr := testutil.DoRequest(s.router, req)
	var body AuditListResponse
	if rr.Code == http.StatusOK {
		s.Require().NoError(json.NewDecoder(rr.Body).Decode(&body))
	}
	return rr.Result(), body
}

func (s *AdminHandlerSuite) TestRecent() {
	resp, body := s.get("/admin/audit/recent?limit=2", adminToken)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(2, body.Total)
	s.Equal(string(audit.EventLoginDenied), body.Events[0].Action)
	s.Equal(string(audit.CategorySecurity), body.Events[1].Category)
	s.Equal("challenge_reused", body.Events[1].ErrorCode)
}

func (s *AdminHandlerSuite) TestRecentDefaultLimit() {
	resp, body := s.get("/admin/audit/recent", adminToken)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(3, body.Total)
}

func (s *AdminHandlerSuite) TestRecentInvalidLimit() {
	resp, _ := s.get("/admin/audit/recent?limit=abc", adminToken)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.get("/admin/audit/recent?limit=0", adminToken)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *AdminHandlerSuite) TestBySubject() {
	resp, body := s.get("/admin/audit/subjects/a@example.com", adminToken)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(2, body.Total)
	for _, e := range body.Events {
		s.Equal("a@example.com", e.Subject)
	}
}

func (s *AdminHandlerSuite) TestRequiresToken() {
	resp, _ := s.get("/admin/audit/recent", "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.get("/admin/audit/recent", "wrong")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

type failingReader struct{}

func (failingReader) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func (failingReader) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func (s *AdminHandlerSuite) TestStoreFailureIsInternal() {
	s.router = s.newRouter(failingReader{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := testutil.NewRequest(s.T(), http.MethodGet, "/admin/audit/recent")
	req.Header.Set("X-Admin-Token", adminToken)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "connection reset")
}
