package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dcaf/internal/identity/handler/mocks"
	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/testutil"
)

type IdentityHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *IdentityHandlerSuite) TestHandleAuthorize() {
	s.Run("success", func() {
		ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		s.service.EXPECT().AuthorizeIdentity(gomock.Any(), models.AuthorizeRequest{
			OwnerName:           "Phillip Corey Roark",
			OwnerProfileRef:     "phillipcorey",
			AgentSpecialization: "Strategic Intelligence",
		}).Return(&models.AuthenticationResult{
			UniqueID:            "dcaf-10-aaaaaaaa-bbbbbbbb-cccccccc-loyw3v28-abc123",
			ContentFingerprint:  "dcaf-10-aaaaaaaa-bbbbbbbb-cccccccc",
			ConfidenceScores:    models.ConfidenceSummary{Overall: 0.915, Domain: 0.9, Authenticity: 1},
			CompatibilityRating: 0.7675,
			Timestamp:           ts,
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/authorize", map[string]string{
			"owner_name":           " Phillip  Corey Roark ",
			"owner_profile_ref":    "phillipcorey",
			"agent_specialization": "Strategic Intelligence",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[AuthorizeResponse](s.T(), rr)
		s.Equal("dcaf-10-aaaaaaaa-bbbbbbbb-cccccccc", resp.ContentFingerprint)
		s.InDelta(0.915, resp.ConfidenceScores.Overall, 1e-9)
		s.True(ts.Equal(resp.Timestamp))
	})

	s.Run("missing field", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/authorize", map[string]string{
			"owner_name": "Phillip Corey Roark",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("profile unavailable maps to 502", func() {
		s.service.EXPECT().AuthorizeIdentity(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeProfileUnavailable, "profile source unavailable"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/authorize", map[string]string{
			"owner_name":           "Phillip Corey Roark",
			"owner_profile_ref":    "phillipcorey",
			"agent_specialization": "Strategic Intelligence",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadGateway, string(dErrors.CodeProfileUnavailable))
	})

	s.Run("incomplete confidence maps to 422", func() {
		s.service.EXPECT().AuthorizeIdentity(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeIncompleteConfidenceInput, "domain confidence is missing"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/identity/authorize", map[string]string{
			"owner_name":           "Phillip Corey Roark",
			"owner_profile_ref":    "phillipcorey",
			"agent_specialization": "Strategic Intelligence",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, string(dErrors.CodeIncompleteConfidenceInput))
	})
}
