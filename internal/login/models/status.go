package models

import (
	"time"

	dErrors "dcaf/pkg/domain-errors"
)

// Status is the authentication decision state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusChallenged Status = "CHALLENGED"
	StatusDenied     Status = "DENIED"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusChallenged, StatusDenied:
		return true
	}
	return false
}

// IssuesToken reports whether a bearer token accompanies the status.
func (s Status) IssuesToken() bool {
	return s == StatusApproved || s == StatusChallenged
}

// Decision tracks one login attempt from PENDING to a terminal status.
type Decision struct {
	status    Status
	decidedAt time.Time
}

func NewDecision() *Decision {
	return &Decision{status: StatusPending}
}

func (d *Decision) Status() Status       { return d.status }
func (d *Decision) DecidedAt() time.Time { return d.decidedAt }

// Transition moves a pending decision to a terminal status exactly once.
func (d *Decision) Transition(to Status, at time.Time) error {
	if d.status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "decision already "+string(d.status))
	}
	if !to.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid target status "+string(to))
	}
	d.status = to
	d.decidedAt = at
	return nil
}
