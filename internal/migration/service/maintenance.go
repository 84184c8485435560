package service

import (
	"context"
	"errors"
	"strings"

	"polymigrate/internal/migration/repository"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// PurgeStorage deletes every stored object of a migrated problem.
func (s *MigrationService) PurgeStorage(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, pkgerrors.BadRequest("problem reference is required")
	}
	if s.storage == nil || strings.TrimSpace(s.cfg.Container) == "" {
		return 0, pkgerrors.New(pkgerrors.StorageNotConfigured)
	}

	problemID, err := s.problems.GetIDByPolygonID(ctx, nil, ref)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return 0, pkgerrors.Newf(pkgerrors.ProblemNotFound, "problem %s not found", ref)
		}
		return 0, databaseError(err, "look up problem %s", ref)
	}
	if err := s.storage.EmptyProblem(ctx, s.cfg.Container, problemID); err != nil {
		return 0, storageError(err, "empty problem %d", problemID)
	}
	logger.Info(ctx, "problem storage purged", zap.String("ref", ref), zap.Int64("problem_id", problemID))
	return problemID, nil
}

// InvalidateCache drops the cached test cases of a problem.
func (s *MigrationService) InvalidateCache(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return pkgerrors.BadRequest("problem reference is required")
	}
	s.cache.Invalidate(ctx, ref)
	logger.Info(ctx, "test case cache invalidated", zap.String("ref", ref))
	return nil
}
