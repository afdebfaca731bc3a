package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"dcaf/internal/identity/models"
	dErrors "dcaf/pkg/domain-errors"
)

const (
	sourceProfile      = "profile"
	sourceMatchInsight = "match_insight"
)

// Aggregate fetches the owner's profile and match insight records in
// parallel. Each fetch gets its own timeout; the first failure cancels the
// other. There is no partial result.
func (s *Service) Aggregate(ctx context.Context, profileRef, ownerName string) (*models.ProfileRecord, *models.MatchInsightRecord, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		profile *models.ProfileRecord
		match   *models.MatchInsightRecord
	)

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
		defer cancel()

		start := time.Now()
		rec, err := s.profiles.Fetch(fctx, profileRef)
		s.metrics.ObserveFetchLatency(sourceProfile, time.Since(start))

		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeProfileUnavailable, "profile source unavailable")
		}
		if rec == nil {
			return dErrors.New(dErrors.CodeProfileUnavailable, "profile source returned no record")
		}
		profile = rec
		return nil
	})

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
		defer cancel()

		start := time.Now()
		rec, err := s.insights.Fetch(fctx, ownerName)
		s.metrics.ObserveFetchLatency(sourceMatchInsight, time.Since(start))

		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeProfileUnavailable, "match insight source unavailable")
		}
		if rec == nil {
			return dErrors.New(dErrors.CodeProfileUnavailable, "match insight source returned no record")
		}
		match = rec
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, match, nil
}
