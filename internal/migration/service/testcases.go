package service

import (
	"context"

	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// runTestCases resolves the run's test cases once and reuses them for every later step.
func (s *MigrationService) runTestCases(ctx context.Context, run *migrationRun) ([]model.TestCase, error) {
	if run.casesResolved {
		return run.cases, nil
	}
	run.transition(ctx, model.StateCheckingCache)
	cases, hit, err := s.resolveTestCases(ctx, run.req.ExternalRef, run.req.Testset, func() {
		run.transition(ctx, model.StateFetchingFromAPI)
	})
	if err != nil {
		return nil, err
	}
	run.cases = cases
	run.casesResolved = true
	run.report.CacheHit = hit
	run.report.TestCaseTotal = len(cases)
	run.report.FetchFailed = model.FailedIndices(cases)
	return cases, nil
}

// resolveTestCases reads the cache first and falls back to the API on a miss or an
// incomplete entry, storing what the API returned. onFetch runs before the API call.
func (s *MigrationService) resolveTestCases(ctx context.Context, ref, testset string, onFetch func()) ([]model.TestCase, bool, error) {
	cached, hit := s.cache.Fetch(ctx, ref)
	if hit && cached.Complete() {
		logger.Info(ctx, "test cases served from cache", zap.String("ref", ref), zap.Int("count", len(cached.Cases)))
		return cached.Cases, true, nil
	}
	if hit {
		logger.Warn(ctx, "cached test cases incomplete, refetching",
			zap.String("ref", ref),
			zap.Int("expected", cached.Expected),
			zap.Int("found", len(cached.Cases)),
		)
	}

	if onFetch != nil {
		onFetch()
	}
	cases, err := s.polygon.FetchAllTestCases(ctx, ref, testset)
	if err != nil {
		return nil, false, polygonError(err, "fetch test cases")
	}
	if failed := model.FailedIndices(cases); len(failed) > 0 {
		logger.Warn(ctx, pkgerrors.TestCasePartialData.Message(),
			zap.String("ref", ref),
			zap.Int("code", int(pkgerrors.TestCasePartialData)),
			zap.Ints("indices", failed),
		)
	}
	s.cache.Store(ctx, ref, cases)
	return cases, false, nil
}
