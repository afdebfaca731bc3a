package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dcaf/internal/identity/adapters"
	"dcaf/internal/identity/metrics"
	"dcaf/internal/identity/mocks"
	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/platform/audit"
	"dcaf/pkg/platform/audit/publisher"
	"dcaf/pkg/platform/audit/store/memory"
	"dcaf/pkg/platform/sentinel"
	"dcaf/pkg/requestcontext"
)

var identifierPattern = regexp.MustCompile(`^dcaf-10-\w{8}-\w{8}-\w{8}-\w+-\w{6}$`)

type AuthorizeIdentitySuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	profiles *mocks.MockProfileSource
	insights *mocks.MockMatchInsightSource
	notifier *mocks.MockNotifier
	store    *memory.InMemoryStore
	service  *Service
	request  models.AuthorizeRequest
}

func TestAuthorizeIdentitySuite(t *testing.T) {
	suite.Run(t, new(AuthorizeIdentitySuite))
}

func (s *AuthorizeIdentitySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.profiles = mocks.NewMockProfileSource(s.ctrl)
	s.insights = mocks.NewMockMatchInsightSource(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.store = memory.NewInMemoryStore()

	s.service = New(s.profiles, s.insights,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithNotifier(s.notifier),
		WithAuditPublisher(publisher.NewPublisher(s.store)),
		WithFetchTimeout(50*time.Millisecond),
	)
	s.request = models.AuthorizeRequest{
		OwnerName:           "Phillip Corey Roark",
		OwnerProfileRef:     "phillipcorey",
		AgentSpecialization: "Strategic Intelligence",
	}
}

func (s *AuthorizeIdentitySuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AuthorizeIdentitySuite) expectSources() {
	fx := adapters.DefaultFixtures()
	s.profiles.EXPECT().Fetch(gomock.Any(), "phillipcorey").DoAndReturn(fx.Profiles().Fetch)
	s.insights.EXPECT().Fetch(gomock.Any(), "Phillip Corey Roark").DoAndReturn(fx.Insights().Fetch)
}

func (s *AuthorizeIdentitySuite) TestSuccess() {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), fixed), "req-7")

	s.expectSources()
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, n audit.Notification) error {
			s.Equal(audit.EventIdentityAuthorized, n.Kind)
			s.NotEmpty(n.Attributes["instance_id"])
			return nil
		})

	result, err := s.service.AuthorizeIdentity(ctx, s.request)
	s.Require().NoError(err)

	s.Regexp(identifierPattern, result.UniqueID)
	s.Contains(result.UniqueID, result.ContentFingerprint)
	s.Equal(fixed, result.Timestamp)
	s.InDelta(0.915, result.ConfidenceScores.Overall, 1e-9)
	s.GreaterOrEqual(result.CompatibilityRating, 0.0)
	s.LessOrEqual(result.CompatibilityRating, 1.0)

	events, err := s.store.ListBySubject(ctx, "phillipcorey")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventIdentityAuthorized), events[0].Action)
	s.Equal("req-7", events[0].RequestID)
}

func (s *AuthorizeIdentitySuite) TestNotifierFailureDoesNotFailAuthorization() {
	s.expectSources()
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	result, err := s.service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().NoError(err)
	s.NotEmpty(result.UniqueID)
}

func (s *AuthorizeIdentitySuite) TestValidation() {
	req := s.request
	req.AgentSpecialization = ""

	_, err := s.service.AuthorizeIdentity(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AuthorizeIdentitySuite) TestProfileSourceError() {
	s.profiles.EXPECT().Fetch(gomock.Any(), "phillipcorey").Return(nil, sentinel.ErrNotFound)
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(&models.MatchInsightRecord{}, nil).AnyTimes()

	_, err := s.service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProfileUnavailable))
	s.ErrorIs(err, sentinel.ErrNotFound)

	events, err := s.store.ListBySubject(context.Background(), "phillipcorey")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventIdentityAuthorizationFailed), events[0].Action)
	s.Equal(string(dErrors.CodeProfileUnavailable), events[0].ErrorCode)
	s.Equal("failed", events[0].Decision)
}

func (s *AuthorizeIdentitySuite) TestNilRecordIsUnavailable() {
	s.profiles.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(&models.ProfileRecord{}, nil).AnyTimes()
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := s.service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProfileUnavailable))
}

func (s *AuthorizeIdentitySuite) TestSlowSourceTimesOut() {
	s.profiles.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (*models.ProfileRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(&models.MatchInsightRecord{}, nil).AnyTimes()

	start := time.Now()
	_, err := s.service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProfileUnavailable))
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(time.Since(start), time.Second)
}

func (s *AuthorizeIdentitySuite) TestCallerCancellationAbandonsFetches() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{}, 2)

	s.profiles.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(fctx context.Context, _ string) (*models.ProfileRecord, error) {
			started <- struct{}{}
			<-fctx.Done()
			return nil, fctx.Err()
		})
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(fctx context.Context, _ string) (*models.MatchInsightRecord, error) {
			started <- struct{}{}
			<-fctx.Done()
			return nil, fctx.Err()
		})

	go func() {
		<-started
		<-started
		cancel()
	}()

	service := New(s.profiles, s.insights,
		WithNotifier(s.notifier),
		WithAuditPublisher(publisher.NewPublisher(s.store)),
		WithFetchTimeout(time.Minute),
	)
	_, err := service.AuthorizeIdentity(ctx, s.request)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeProfileUnavailable))
	s.ErrorIs(err, context.Canceled)

	events, err := s.store.ListBySubject(context.Background(), "phillipcorey")
	s.Require().NoError(err)
	for _, e := range events {
		s.NotEqual(string(audit.EventIdentityAuthorized), e.Action)
	}
}

func (s *AuthorizeIdentitySuite) TestFailingSourceCancelsSibling() {
	siblingErr := make(chan error, 1)
	s.profiles.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(fctx context.Context, _ string) (*models.ProfileRecord, error) {
			<-fctx.Done()
			siblingErr <- fctx.Err()
			return nil, fctx.Err()
		})
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

	service := New(s.profiles, s.insights, WithFetchTimeout(time.Minute))
	start := time.Now()
	_, err := service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Less(time.Since(start), 5*time.Second)

	select {
	case got := <-siblingErr:
		s.ErrorIs(got, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("profile fetch was left running")
	}
}

func (s *AuthorizeIdentitySuite) TestIncompleteConfidenceInput() {
	fx := adapters.DefaultFixtures()
	s.profiles.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(fx.Profiles().Fetch)
	s.insights.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(&models.MatchInsightRecord{FullName: "Phillip Corey Roark"}, nil)

	_, err := s.service.AuthorizeIdentity(context.Background(), s.request)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIncompleteConfidenceInput))
}

func TestAuthorizeIdentity_EndToEndWithFixtures(t *testing.T) {
	fx := adapters.DefaultFixtures()
	svc := New(fx.Profiles(), fx.Insights())

	result, err := svc.AuthorizeIdentity(context.Background(), models.AuthorizeRequest{
		OwnerName:           "Phillip Corey Roark",
		OwnerProfileRef:     "phillipcorey",
		AgentSpecialization: "Strategic Intelligence",
	})
	require.NoError(t, err)
	assert.Regexp(t, identifierPattern, result.UniqueID)
	for _, v := range []float64{result.ConfidenceScores.Overall, result.ConfidenceScores.Domain, result.ConfidenceScores.Authenticity} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	again, err := svc.AuthorizeIdentity(context.Background(), models.AuthorizeRequest{
		OwnerName:           "Phillip Corey Roark",
		OwnerProfileRef:     "phillipcorey",
		AgentSpecialization: "Strategic Intelligence",
	})
	require.NoError(t, err)
	assert.Equal(t, result.ContentFingerprint, again.ContentFingerprint)
	assert.NotEqual(t, result.UniqueID, again.UniqueID)
}
