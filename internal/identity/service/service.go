package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"dcaf/internal/identity/metrics"
	"dcaf/internal/identity/models"
	"dcaf/internal/identity/ports"
	"dcaf/internal/identity/scoring"
	"dcaf/pkg/attrs"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/fingerprint"
	"dcaf/pkg/platform/audit"
	"dcaf/pkg/requestcontext"
)

const defaultFetchTimeout = 5 * time.Second

// Service authorizes an owner identity for pairing with an agent. It
// aggregates profile data, scores confidence, and produces an identifier and
// an advisory compatibility rating.
type Service struct {
	profiles ports.ProfileSource
	insights ports.MatchInsightSource

	confidence *scoring.ConfidenceCalculator
	rater      *scoring.Rater
	ids        *scoring.IDGenerator

	logger         *slog.Logger
	metrics        *metrics.Metrics
	notifier       ports.Notifier
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer
	fetchTimeout   time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithFetchTimeout bounds each aggregation fetch. Non-positive values keep the default.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func WithRater(r *scoring.Rater) Option {
	return func(s *Service) {
		s.rater = r
	}
}

func WithIDGenerator(g *scoring.IDGenerator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

// New constructs a Service. The confidence calculator fills its advisory
// scores from the same rater used for the compatibility rating.
func New(profiles ports.ProfileSource, insights ports.MatchInsightSource, opts ...Option) *Service {
	s := &Service{
		profiles:     profiles,
		insights:     insights,
		rater:        scoring.NewRater(),
		ids:          scoring.NewIDGenerator(),
		tracer:       otel.Tracer("dcaf/identity"),
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.confidence = scoring.NewConfidenceCalculator(scoring.WithSubScores(s.rater))
	return s
}

// AuthorizeIdentity runs the identity pipeline for one request.
func (s *Service) AuthorizeIdentity(ctx context.Context, req models.AuthorizeRequest) (*models.AuthenticationResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "identity.AuthorizeIdentity",
		trace.WithAttributes(attribute.String("agent.specialization", req.AgentSpecialization)))
	defer span.End()
	defer func() { s.metrics.ObserveAuthorizeLatency(time.Since(start)) }()

	result, err := s.authorize(ctx, req)
	if err != nil {
		code := string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		s.metrics.IncrementOutcome("failed", code)
		s.logAudit(ctx, audit.EventIdentityAuthorizationFailed, req.OwnerProfileRef,
			"error_code", code,
			"reason", dErrors.Message(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("identity.fingerprint", result.ContentFingerprint))
	s.metrics.IncrementOutcome("authorized", "")
	s.metrics.ObserveCompatibility(result.CompatibilityRating)
	s.logAudit(ctx, audit.EventIdentityAuthorized, req.OwnerProfileRef,
		"instance_id", result.UniqueID,
		"content_fingerprint", result.ContentFingerprint,
	)
	s.notify(ctx, audit.Notification{
		Kind:       audit.EventIdentityAuthorized,
		Key:        result.ContentFingerprint,
		OccurredAt: result.Timestamp,
		Attributes: map[string]string{
			"instance_id":          result.UniqueID,
			"overall_confidence":   strconv.FormatFloat(result.ConfidenceScores.Overall, 'f', 4, 64),
			"compatibility_rating": strconv.FormatFloat(result.CompatibilityRating, 'f', 4, 64),
		},
	})
	return result, nil
}

func (s *Service) authorize(ctx context.Context, req models.AuthorizeRequest) (*models.AuthenticationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	profile, match, err := s.Aggregate(ctx, req.OwnerProfileRef, req.OwnerName)
	if err != nil {
		return nil, err
	}

	scores, err := s.confidence.Calculate(profile, match, req.AgentSpecialization)
	if err != nil {
		return nil, err
	}
	summary := scores.Summary()

	// Identifier generation and compatibility rating are independent.
	var (
		id     models.UniqueIdentifier
		rating float64
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var genErr error
		id, genErr = s.ids.Generate(profile, match, summary)
		return genErr
	})
	g.Go(func() error {
		rating = s.rater.Rate(profile, match)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.AuthenticationResult{
		UniqueID:            id.InstanceID,
		ContentFingerprint:  id.ContentFingerprint,
		ConfidenceScores:    summary,
		CompatibilityRating: rating,
		Timestamp:           requestcontext.Now(ctx),
	}, nil
}

func (s *Service) notify(ctx context.Context, n audit.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"kind", string(n.Kind),
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if s.logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit")
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	e := audit.Event{
		Subject:       subject,
		Action:        string(event),
		RequestID:     requestID,
		SubjectIDHash: fingerprint.Hash(subject),
		Timestamp:     requestcontext.Now(ctx),
	}
	if event == audit.EventIdentityAuthorized {
		e.Decision = "authorized"
	} else {
		e.Decision = "failed"
		e.ErrorCode = attrs.ExtractString(attributes, "error_code")
		e.Reason = attrs.ExtractString(attributes, "reason")
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}
