package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dcaf/internal/identity/models"
	"dcaf/internal/identity/ports"
	"dcaf/pkg/platform/circuit"
	"dcaf/pkg/platform/sentinel"
)

// guard runs fetch behind breaker. An open breaker fails fast with
// sentinel.ErrUnavailable. Not-found answers count as healthy responses.
func guard[T any](ctx context.Context, breaker *circuit.Breaker, logger *slog.Logger, fetch func(context.Context) (*T, error)) (*T, error) {
	if !breaker.Allow() {
		return nil, fmt.Errorf("%s circuit open: %w", breaker.Name(), sentinel.ErrUnavailable)
	}

	rec, err := fetch(ctx)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		if _, change := breaker.RecordFailure(); change.Opened && logger != nil {
			logger.WarnContext(ctx, "circuit opened", "source", breaker.Name(), "error", err)
		}
		return nil, err
	}
	if _, change := breaker.RecordSuccess(); change.Closed && logger != nil {
		logger.InfoContext(ctx, "circuit closed", "source", breaker.Name())
	}
	return rec, err
}

// BreakerProfileSource guards a ProfileSource with a circuit breaker.
type BreakerProfileSource struct {
	next    ports.ProfileSource
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerProfileSource(next ports.ProfileSource, breaker *circuit.Breaker, logger *slog.Logger) *BreakerProfileSource {
	return &BreakerProfileSource{next: next, breaker: breaker, logger: logger}
}

func (b *BreakerProfileSource) Fetch(ctx context.Context, ref string) (*models.ProfileRecord, error) {
	return guard(ctx, b.breaker, b.logger, func(ctx context.Context) (*models.ProfileRecord, error) {
		return b.next.Fetch(ctx, ref)
	})
}

// BreakerInsightSource guards a MatchInsightSource with a circuit breaker.
type BreakerInsightSource struct {
	next    ports.MatchInsightSource
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerInsightSource(next ports.MatchInsightSource, breaker *circuit.Breaker, logger *slog.Logger) *BreakerInsightSource {
	return &BreakerInsightSource{next: next, breaker: breaker, logger: logger}
}

func (b *BreakerInsightSource) Fetch(ctx context.Context, name string) (*models.MatchInsightRecord, error) {
	return guard(ctx, b.breaker, b.logger, func(ctx context.Context) (*models.MatchInsightRecord, error) {
		return b.next.Fetch(ctx, name)
	})
}
