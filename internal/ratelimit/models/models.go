package models

import (
	"math"
	"time"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassAuth covers login attempts: /auth/secure-login.
	ClassAuth EndpointClass = "auth"
	// ClassSensitive covers expensive scoring calls: /identity/authorize.
	ClassSensitive EndpointClass = "sensitive"
)

// Policy is a sliding-window budget. A non-positive Limit is unlimited.
type Policy struct {
	Limit  int
	Window time.Duration
}

func (p Policy) Unlimited() bool { return p.Limit <= 0 || p.Window <= 0 }

// RateLimitResult reports one admission check.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// NewResult derives Remaining and RetryAfter from the window count.
func NewResult(allowed bool, limit, count int, resetAt, now time.Time) *RateLimitResult {
	r := &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		r.RetryAfter = max(int(math.Ceil(resetAt.Sub(now).Seconds())), 1)
	}
	return r
}

// BucketKey scopes a client key to an endpoint class.
func BucketKey(class EndpointClass, client string) string {
	return "ratelimit:" + string(class) + ":" + client
}
