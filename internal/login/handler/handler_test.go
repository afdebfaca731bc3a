package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "dcaf/internal/jwt_token"
	"dcaf/internal/login/handler/mocks"
	"dcaf/internal/login/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/testutil"
)

type LoginHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	tokens  *mocks.MockTokenValidator
	handler *Handler
	router  chi.Router
}

func TestLoginHandlerSuite(t *testing.T) {
	suite.Run(t, new(LoginHandlerSuite))
}

func (s *LoginHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.tokens = mocks.NewMockTokenValidator(ctrl)
	s.handler = New(s.service, s.tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	s.handler.Register(s.router)
	s.handler.RegisterProtected(s.router)
}

func loginBody() map[string]any {
	return map[string]any{
		"email":            " ana@example.com ",
		"credentials":      "correct horse",
		"device_signature": "device-1",
		"context": map[string]any{
			"user_agent": "Mozilla/5.0",
			"locale":     "en-US",
		},
	}
}

func (s *LoginHandlerSuite) TestHandleSecureLogin() {
	s.Run("approved returns token", func() {
		decided := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
		expires := decided.Add(time.Hour)
		s.service.EXPECT().SecureLogin(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req models.LoginRequest) (*models.LoginResult, error) {
				s.Equal("ana@example.com", req.Email)
				s.Equal("device-1", req.DeviceSignature)
				s.Equal("203.0.113.7", req.Context.IPAddress, "filled from transport")
				s.Equal("Mozilla/5.0", req.Context.UserAgent)
				return &models.LoginResult{
					Status:    models.StatusApproved,
					Token:     "signed.jwt",
					ExpiresAt: &expires,
					Challenge: models.ChallengeSummary{ID: "c1", Type: models.ChallengeTypeBiometric},
					Risk:      models.RiskSummary{Score: 1},
					DecidedAt: decided,
				}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/secure-login", loginBody())
		req = testutil.WithClientMetadata(req, "203.0.113.7", "curl/8")
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SecureLoginResponse](s.T(), rr)
		s.Equal("APPROVED", resp.Status)
		s.Equal("signed.jwt", resp.Token)
		s.Require().NotNil(resp.ExpiresAt)
		s.True(expires.Equal(*resp.ExpiresAt))
		s.Equal("biometric", resp.Challenge.Type)
	})

	s.Run("denied omits token", func() {
		s.service.EXPECT().SecureLogin(gomock.Any(), gomock.Any()).Return(&models.LoginResult{
			Status: models.StatusDenied,
			Risk:   models.RiskSummary{Score: 0.3},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/secure-login", loginBody()))
		testutil.AssertStatusOK(s.T(), rr)
		body := string(testutil.ReadBody(s.T(), rr))
		s.NotContains(body, `"token"`)
		s.NotContains(body, `"expires_at"`)
	})

	s.Run("malformed email", func() {
		body := loginBody()
		body["email"] = "nope"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/secure-login", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("secure login failure hides detail", func() {
		s.service.EXPECT().SecureLogin(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("redis: i/o timeout"), dErrors.CodeSecureLoginFailed, "secure login failed"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/secure-login", loginBody()))
		s.NotContains(rr.Body.String(), "redis")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeSecureLoginFailed))
	})

	s.Run("challenge reuse maps to 409", func() {
		s.service.EXPECT().SecureLogin(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeChallengeReused, "challenge already consumed"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/secure-login", loginBody()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeChallengeReused))
	})
}

func (s *LoginHandlerSuite) TestHandleIntrospect() {
	s.Run("active token", func() {
		exp := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		s.tokens.EXPECT().ValidateToken("signed.jwt").Return(&jwttoken.LoginClaims{
			Email:              "ana@example.com",
			ContextDigest:      "abc",
			ChallengeSignature: "sig",
			Status:             "APPROVED",
			RegisteredClaims:   jwt.RegisteredClaims{ID: "jti-1", ExpiresAt: jwt.NewNumericDate(exp)},
		}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token/introspect", map[string]string{"token": " signed.jwt "}))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[IntrospectResponse](s.T(), rr)
		s.True(resp.Active)
		s.Equal("ana@example.com", resp.Email)
		s.Equal("jti-1", resp.JTI)
		s.Require().NotNil(resp.ExpiresAt)
		s.True(exp.Equal(*resp.ExpiresAt))
	})

	s.Run("invalid token is inactive", func() {
		s.tokens.EXPECT().ValidateToken("garbage").Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token/introspect", map[string]string{"token": "garbage"}))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"active":false}`, string(testutil.ReadBody(s.T(), rr)))
	})

	s.Run("missing token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token/introspect", map[string]string{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *LoginHandlerSuite) TestHandleSession() {
	s.Run("claims from context", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/auth/session")
		req = testutil.WithLoginClaims(req, "ana@example.com", "APPROVED", "j1")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SessionResponse](s.T(), rr)
		s.Equal("ana@example.com", resp.Email)
	})

	s.Run("no claims", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/auth/session"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
