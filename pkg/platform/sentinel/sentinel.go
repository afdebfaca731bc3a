package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, ledgers and source
// adapters return these (optionally wrapped) so services can translate them
// into domain errors.
//
//   - ErrNotFound: record does not exist at the source or in a store
//   - ErrExpired: challenge or token has passed its expiry
//   - ErrAlreadyUsed: single-use resource (challenge) already consumed
//   - ErrUnavailable: external source or circuit temporarily unavailable
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
