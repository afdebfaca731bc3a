// Package challenge records consumed biometric challenges so each one backs at
// most one risk assessment.
package challenge

import (
	"context"
	"sync"
	"time"

	"dcaf/pkg/platform/sentinel"
)

// InMemoryLedger is a process-local ledger. Entries are dropped lazily once
// their ttl has passed.
type InMemoryLedger struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	now      func() time.Time
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		consumed: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Consume marks id as used. A second call within ttl returns
// sentinel.ErrAlreadyUsed.
func (l *InMemoryLedger) Consume(ctx context.Context, id string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.consumed[id]; ok && now.Before(until) {
		return sentinel.ErrAlreadyUsed
	}
	l.consumed[id] = now.Add(ttl)
	l.sweep(now)
	return nil
}

// sweep removes expired entries; caller holds mu.
func (l *InMemoryLedger) sweep(now time.Time) {
	for id, until := range l.consumed {
		if !now.Before(until) {
			delete(l.consumed, id)
		}
	}
}

// Len reports tracked entries, including expired ones not yet swept.
func (l *InMemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.consumed)
}
