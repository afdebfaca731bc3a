package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers identity authorizations and issued credentials.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	// Examples: failed logins, reused challenges, denied attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// Subject identifies the entity acted on: owner profile ref or login email.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	Email     string
	RequestID string
	// ErrorCode is set on failure records so forensics can group them
	// without reading messages.
	ErrorCode string
	// SubjectIDHash is a fingerprint of the subject for correlation without
	// storing the raw value downstream.
	SubjectIDHash string
}

type AuditEvent string

const (
	// Identity authorization events
	EventIdentityAuthorized          AuditEvent = "identity_authorized"
	EventIdentityAuthorizationFailed AuditEvent = "identity_authorization_failed"

	// Login events
	EventChallengeIssued   AuditEvent = "challenge_issued"
	EventChallengeReused   AuditEvent = "challenge_reused"
	EventLoginApproved     AuditEvent = "login_approved"
	EventLoginChallenged   AuditEvent = "login_challenged"
	EventLoginDenied       AuditEvent = "login_denied"
	EventSecureLoginFailed AuditEvent = "secure_login_failed"
	EventTokenIssued       AuditEvent = "token_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityAuthorized: CategoryCompliance,
	EventTokenIssued:        CategoryCompliance,

	EventIdentityAuthorizationFailed: CategorySecurity,
	EventChallengeReused:             CategorySecurity,
	EventLoginDenied:                 CategorySecurity,
	EventLoginChallenged:             CategorySecurity,
	EventSecureLoginFailed:           CategorySecurity,

	EventChallengeIssued: CategoryOperations,
	EventLoginApproved:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Notification is an outbound, fire-and-forget message about a pipeline
// outcome. Delivery is at-most-once.
type Notification struct {
	Kind       AuditEvent
	Key        string
	OccurredAt time.Time
	Attributes map[string]string
}
