package service

import (
	"context"
	"strings"

	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// Preview reads a problem from Polygon without writing to the database or storage.
// Test cases follow the cache-then-API policy, so a preview warms the cache.
func (s *MigrationService) Preview(ctx context.Context, ref, testset string) (*model.PreviewReport, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, pkgerrors.BadRequest("problem reference is required")
	}
	if strings.TrimSpace(testset) == "" {
		testset = s.cfg.Testset
	}

	info, err := s.polygon.ProblemInfo(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get problem info")
	}
	checker, err := s.polygon.CheckerName(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get checker name")
	}
	mainSolution, err := s.polygon.MainSolution(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get main solution")
	}
	cases, hit, err := s.resolveTestCases(ctx, ref, testset, nil)
	if err != nil {
		return nil, err
	}

	report := &model.PreviewReport{
		ExternalRef:  ref,
		Info:         info,
		Checker:      checker,
		CheckerType:  model.CheckerType(checker),
		MainSolution: mainSolution,
		CacheHit:     hit,
		TestCount:    len(cases),
		SampleCount:  model.CountSamples(cases),
		FetchFailed:  model.FailedIndices(cases),
	}
	logger.Info(ctx, "problem previewed",
		zap.String("ref", ref),
		zap.Int("tests", report.TestCount),
		zap.Bool("cache_hit", hit),
	)
	return report, nil
}
