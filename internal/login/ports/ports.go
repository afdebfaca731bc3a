// Package ports defines the collaborators the login pipeline depends on.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"dcaf/internal/login/models"
	"dcaf/pkg/platform/audit"
)

// EmailVerifier checks that credentials belong to the email owner.
type EmailVerifier interface {
	Verify(ctx context.Context, email, credentials string) (*models.EmailVerification, error)
}

// ContextualAnalyzer scores how consistent a login attempt is with the
// device and environment it claims.
type ContextualAnalyzer interface {
	Analyze(ctx context.Context, email, deviceSignature string, data models.ContextualData) (*models.ContextualAnalysis, error)
}

// ChallengeLedger records consumed challenges. Consume returns
// sentinel.ErrAlreadyUsed when id was consumed before; ttl bounds how long the
// record is kept.
type ChallengeLedger interface {
	Consume(ctx context.Context, id string, ttl time.Duration) error
}

// TokenIssuer mints bearer tokens for approved and challenged logins.
type TokenIssuer interface {
	GenerateLoginToken(claims LoginTokenRequest) (string, time.Time, error)
}

// LoginTokenRequest is what a login token binds.
type LoginTokenRequest struct {
	Email              string
	ContextDigest      string
	ChallengeSignature string
	Status             models.Status
	IssuedAt           time.Time
	TTL                time.Duration
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier delivers outbound events with at-most-once semantics.
type Notifier interface {
	Notify(ctx context.Context, event audit.Notification) error
}
