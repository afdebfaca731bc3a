package security

import (
	"context"
	"errors"
	"time"

	"dcaf/internal/login/models"
	"dcaf/internal/login/ports"
	dErrors "dcaf/pkg/domain-errors"
	"dcaf/pkg/platform/sentinel"
)

// Risk weights. They sum to 1.0.
const (
	WeightEmailVerification = 0.3
	WeightContextual        = 0.4
	WeightChallenge         = 0.3
)

// RiskScore is the pure weighted composite of the three login signals.
// Inputs are clamped to [0,1].
func RiskScore(emailConfidence, contextualScore float64, hasChallengeSignature bool) float64 {
	score := clamp01(emailConfidence)*WeightEmailVerification + clamp01(contextualScore)*WeightContextual
	if hasChallengeSignature {
		score += WeightChallenge
	}
	return clamp01(score)
}

// RiskEngine turns verification, contextual and challenge signals into a
// RiskAssessment, consuming the challenge so it cannot back a second one.
type RiskEngine struct {
	ledger    ports.ChallengeLedger
	now       func() time.Time
	retention time.Duration
}

// DefaultLedgerRetention is how long a consumed challenge stays in the ledger
// past its expiry. It absorbs clock skew between instances sharing a ledger.
const DefaultLedgerRetention = 10 * time.Minute

type RiskOption func(*RiskEngine)

func WithRiskClock(now func() time.Time) RiskOption {
	return func(e *RiskEngine) { e.now = now }
}

// WithLedgerRetention sets how long past expiry a consumed challenge is
// remembered. Non-positive values keep the default.
func WithLedgerRetention(d time.Duration) RiskOption {
	return func(e *RiskEngine) {
		if d > 0 {
			e.retention = d
		}
	}
}

func NewRiskEngine(ledger ports.ChallengeLedger, opts ...RiskOption) *RiskEngine {
	e := &RiskEngine{ledger: ledger, now: time.Now, retention: DefaultLedgerRetention}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assess scores one login attempt. A challenge is valid for one assessment
// before its expiry: presenting it again, or after it expired, fails with
// CodeChallengeReused.
func (e *RiskEngine) Assess(ctx context.Context, email *models.EmailVerification, contextual *models.ContextualAnalysis, challenge *models.BiometricChallenge) (*models.RiskAssessment, error) {
	if email == nil || contextual == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "risk assessment requires verification and contextual signals")
	}

	hasSignature := false
	if challenge != nil {
		now := e.now()
		if err := e.consume(ctx, challenge, now); err != nil {
			return nil, err
		}
		hasSignature = challenge.Signature != ""
	}

	return &models.RiskAssessment{
		EmailVerificationConfidence: clamp01(email.Confidence),
		ContextualConsistencyScore:  clamp01(contextual.ConsistencyScore),
		HasChallengeSignature:       hasSignature,
		RiskScore:                   RiskScore(email.Confidence, contextual.ConsistencyScore, hasSignature),
		AnomalyDetected:             contextual.HasAnomalies,
	}, nil
}

func (e *RiskEngine) consume(ctx context.Context, challenge *models.BiometricChallenge, now time.Time) error {
	switch {
	case challenge.ID == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "challenge id is required")
	case challenge.ExpiresAt.IsZero():
		return dErrors.New(dErrors.CodeInvariantViolation, "challenge expiry is required")
	case challenge.Expired(now):
		return dErrors.New(dErrors.CodeChallengeReused, "challenge expired")
	}
	// The record outlives the challenge, so by the time the ledger forgets
	// the id the expiry check above rejects it.
	if err := e.ledger.Consume(ctx, challenge.ID, challenge.ExpiresAt.Sub(now)+e.retention); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodeChallengeReused, "challenge already consumed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record challenge consumption")
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
