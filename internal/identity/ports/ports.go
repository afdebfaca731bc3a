// Package ports defines the collaborators the identity pipeline depends on.
// Adapters in internal/identity/adapters implement them; tests use the
// generated mocks.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"

	"dcaf/internal/identity/models"
	"dcaf/pkg/platform/audit"
)

// ProfileSource looks up a professional profile by reference.
// Returns sentinel.ErrNotFound (optionally wrapped) when no profile exists.
type ProfileSource interface {
	Fetch(ctx context.Context, ref string) (*models.ProfileRecord, error)
}

// MatchInsightSource looks up match insights by the owner's full name.
type MatchInsightSource interface {
	Fetch(ctx context.Context, name string) (*models.MatchInsightRecord, error)
}

// Notifier delivers outbound events with at-most-once semantics. Callers
// log failures and never fail their own operation on them.
type Notifier interface {
	Notify(ctx context.Context, event audit.Notification) error
}

// AuditPublisher records compliance and security events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
