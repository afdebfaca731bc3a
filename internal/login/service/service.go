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

	"dcaf/internal/login/metrics"
	"dcaf/internal/login/models"
	"dcaf/internal/login/ports"
	"dcaf/internal/login/security"
	"dcaf/pkg/attrs"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/email"
	"dcaf/pkg/fingerprint"
	"dcaf/pkg/platform/audit"
	"dcaf/pkg/requestcontext"
)

const (
	defaultTokenTTL  = 15 * time.Minute
	defaultStepUpTTL = 5 * time.Minute
)

// Service decides human login attempts. It gathers email, contextual and
// challenge signals concurrently, scores them, and mints a token for
// APPROVED and CHALLENGED outcomes.
type Service struct {
	verifier ports.EmailVerifier
	analyzer ports.ContextualAnalyzer
	tokens   ports.TokenIssuer

	challenges *security.ChallengeIssuer
	risk       *security.RiskEngine

	logger         *slog.Logger
	metrics        *metrics.Metrics
	notifier       ports.Notifier
	auditPublisher ports.AuditPublisher
	tracer         trace.Tracer
	tokenTTL       time.Duration
	stepUpTTL      time.Duration
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

func WithChallengeIssuer(issuer *security.ChallengeIssuer) Option {
	return func(s *Service) {
		s.challenges = issuer
	}
}

func WithRiskEngine(engine *security.RiskEngine) Option {
	return func(s *Service) {
		s.risk = engine
	}
}

// WithTokenTTL sets the lifetime of APPROVED tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// WithStepUpTTL sets the lifetime of CHALLENGED tokens.
func WithStepUpTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stepUpTTL = d
		}
	}
}

func New(verifier ports.EmailVerifier, analyzer ports.ContextualAnalyzer, ledger ports.ChallengeLedger, tokens ports.TokenIssuer, opts ...Option) *Service {
	s := &Service{
		verifier:   verifier,
		analyzer:   analyzer,
		tokens:     tokens,
		challenges: security.NewChallengeIssuer(),
		tracer:     otel.Tracer("dcaf/login"),
		tokenTTL:   defaultTokenTTL,
		stepUpTTL:  defaultStepUpTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.risk == nil {
		s.risk = security.NewRiskEngine(ledger)
	}
	return s
}

// SecureLogin decides one login attempt. Upstream faults surface as
// CodeSecureLoginFailed and never as a DENIED decision.
func (s *Service) SecureLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "login.SecureLogin")
	defer span.End()
	defer func() { s.metrics.ObserveLoginLatency(time.Since(start)) }()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	req.Email = email.Normalize(req.Email)

	result, err := s.login(ctx, req)
	if err != nil {
		code := dErrors.CodeOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.metrics.IncrementFailure(string(code))
		s.recordFailure(ctx, req.Email, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("login.status", string(result.Status)),
		attribute.Float64("login.risk_score", result.Risk.Score),
	)
	s.metrics.IncrementDecision(string(result.Status), result.Risk.Score)
	if result.Risk.AnomalyDetected {
		s.metrics.IncrementAnomaly()
	}
	s.logAudit(ctx, decisionEvent(result.Status), req.Email,
		"decision", string(result.Status),
		"challenge_id", result.Challenge.ID,
		"risk_score", strconv.FormatFloat(result.Risk.Score, 'f', 4, 64),
	)
	s.notify(ctx, audit.Notification{
		Kind:       decisionEvent(result.Status),
		Key:        fingerprint.Hash(req.Email),
		OccurredAt: result.DecidedAt,
		Attributes: map[string]string{
			"status":           string(result.Status),
			"risk_score":       strconv.FormatFloat(result.Risk.Score, 'f', 4, 64),
			"anomaly_detected": strconv.FormatBool(result.Risk.AnomalyDetected),
			"challenge_id":     result.Challenge.ID,
		},
	})
	return result, nil
}

type signals struct {
	verification *models.EmailVerification
	contextual   *models.ContextualAnalysis
	challenge    *models.BiometricChallenge
}

func (s *Service) login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	sig, err := s.gather(ctx, req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSecureLoginFailed, "secure login failed")
	}

	assessment, err := s.risk.Assess(ctx, sig.verification, sig.contextual, sig.challenge)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeChallengeReused) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSecureLoginFailed, "secure login failed")
	}

	now := requestcontext.Now(ctx)
	decision := models.NewDecision()
	if err := decision.Transition(security.DecideStatus(assessment.RiskScore), now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSecureLoginFailed, "secure login failed")
	}

	result := &models.LoginResult{
		Status:    decision.Status(),
		Challenge: models.ChallengeSummary{ID: sig.challenge.ID, Type: sig.challenge.Type},
		Risk: models.RiskSummary{
			Score:           assessment.RiskScore,
			AnomalyDetected: assessment.AnomalyDetected,
		},
		DecidedAt: decision.DecidedAt(),
	}
	if !decision.Status().IssuesToken() {
		return result, nil
	}

	// A caller that went away must not receive a freshly minted token.
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSecureLoginFailed, "secure login cancelled")
	}
	ttl := s.tokenTTL
	if decision.Status() == models.StatusChallenged {
		ttl = s.stepUpTTL
	}
	token, expiresAt, err := s.tokens.GenerateLoginToken(ports.LoginTokenRequest{
		Email:              req.Email,
		ContextDigest:      req.Context.Digest(),
		ChallengeSignature: sig.challenge.Signature,
		Status:             decision.Status(),
		IssuedAt:           now,
		TTL:                ttl,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSecureLoginFailed, "secure login failed")
	}
	result.Token = token
	result.ExpiresAt = &expiresAt
	return result, nil
}

// gather runs the three independent signal producers. The first failure
// cancels the others.
func (s *Service) gather(ctx context.Context, req models.LoginRequest) (*signals, error) {
	var sig signals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.verifier.Verify(gctx, req.Email, req.Credentials)
		if err == nil && v == nil {
			err = dErrors.New(dErrors.CodeInternal, "email verifier returned no result")
		}
		sig.verification = v
		return err
	})
	g.Go(func() error {
		a, err := s.analyzer.Analyze(gctx, req.Email, req.DeviceSignature, req.Context)
		if err == nil && a == nil {
			err = dErrors.New(dErrors.CodeInternal, "contextual analyzer returned no result")
		}
		sig.contextual = a
		return err
	})
	g.Go(func() error {
		c, err := s.challenges.Issue(req.Email, req.DeviceSignature)
		sig.challenge = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &sig, nil
}

// recordFailure writes the forensic record for a failed attempt.
func (s *Service) recordFailure(ctx context.Context, address string, err error) {
	code := string(dErrors.CodeOf(err))
	event := audit.EventSecureLoginFailed
	if dErrors.HasCode(err, dErrors.CodeChallengeReused) {
		event = audit.EventChallengeReused
		s.metrics.IncrementChallengeReuse()
	}

	if s.logger != nil {
		s.logger.ErrorContext(ctx, "secure login failed",
			"log_type", "forensic",
			"email", address,
			"error_code", code,
			"message", err.Error(),
			"timestamp", requestcontext.Now(ctx),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.logAudit(ctx, event, address,
		"decision", "failed",
		"error_code", code,
		"reason", dErrors.Message(err),
	)
	s.notify(ctx, audit.Notification{
		Kind:       event,
		Key:        fingerprint.Hash(address),
		OccurredAt: requestcontext.Now(ctx),
		Attributes: map[string]string{"error_code": code},
	})
}

func decisionEvent(status models.Status) audit.AuditEvent {
	switch status {
	case models.StatusApproved:
		return audit.EventLoginApproved
	case models.StatusChallenged:
		return audit.EventLoginChallenged
	default:
		return audit.EventLoginDenied
	}
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

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, address string, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		args := append(attributes, "event", string(event), "log_type", "audit", "subject", email.Mask(address))
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	e := audit.Event{
		Subject:       address,
		Email:         address,
		Action:        string(event),
		Decision:      attrs.ExtractString(attributes, "decision"),
		ErrorCode:     attrs.ExtractString(attributes, "error_code"),
		Reason:        attrs.ExtractString(attributes, "reason"),
		RequestID:     requestID,
		SubjectIDHash: fingerprint.Hash(address),
		Timestamp:     requestcontext.Now(ctx),
	}
	if err := s.auditPublisher.Emit(ctx, e); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "event", string(event), "error", err)
	}
}
