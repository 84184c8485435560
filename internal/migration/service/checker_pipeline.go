package service

import (
	"context"
	"os"
	"strings"

	"polymigrate/internal/common/storage"
	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// migrateChecker uploads exactly one checker object for a custom checker:
// the compiled binary, or the source when compilation is unavailable.
// Standard checkers upload nothing and return a nil artifact.
func (s *MigrationService) migrateChecker(ctx context.Context, ref string, target model.StorageTarget) (*model.CheckerArtifact, error) {
	desc, err := s.polygon.GetCustomCheckerInfo(ctx, ref)
	if err != nil {
		return nil, polygonError(err, "get checker info")
	}
	if desc == nil {
		return nil, nil
	}

	source, err := s.polygon.FetchCheckerSource(ctx, ref, desc.Name)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, pkgerrors.CheckerSourceNotFound, "checker %s source not found: %v", desc.Name, err)
	}
	if strings.TrimSpace(source) == "" {
		return nil, pkgerrors.Newf(pkgerrors.CheckerSourceNotFound, "checker %s source is empty", desc.Name)
	}

	artifact, data := s.buildCheckerArtifact(ctx, source, target.ProblemKey)
	if err := s.storage.UploadFile(ctx, target.Container, artifact.Path, data); err != nil {
		return nil, storageError(err, "upload checker %s", artifact.Path)
	}
	logger.Info(ctx, "checker uploaded",
		zap.String("checker", desc.Name),
		zap.String("kind", string(artifact.Kind)),
		zap.String("path", artifact.Path),
		zap.Int("bytes", len(data)),
	)
	return artifact, nil
}

// buildCheckerArtifact compiles source in a scoped work dir. Any compile failure
// yields the source fallback artifact.
func (s *MigrationService) buildCheckerArtifact(ctx context.Context, source string, problemKey int64) (*model.CheckerArtifact, []byte) {
	if data, name, ok := s.compileChecker(ctx, source); ok {
		return &model.CheckerArtifact{
			Kind:       model.CheckerCompiledBinary,
			Path:       storage.ProblemObjectKey(problemKey, name),
			SourceText: source,
		}, data
	}
	logger.Warn(ctx, pkgerrors.CheckerCompileUnavailable.Message(),
		zap.Int("code", int(pkgerrors.CheckerCompileUnavailable)),
		zap.String("fallback", storage.CheckerSourceName),
	)
	return &model.CheckerArtifact{
		Kind:       model.CheckerSourceFallback,
		Path:       storage.ProblemObjectKey(problemKey, storage.CheckerSourceName),
		SourceText: source,
	}, []byte(source)
}

func (s *MigrationService) compileChecker(ctx context.Context, source string) ([]byte, string, bool) {
	if s.compiler == nil {
		return nil, "", false
	}
	workDir, cleanup, err := s.compiler.WorkDir()
	if err != nil {
		logger.Warn(ctx, "checker work dir unavailable", zap.Error(err))
		return nil, "", false
	}
	defer cleanup()

	binPath, ok := s.compiler.Compile(ctx, source, workDir)
	if !ok {
		return nil, "", false
	}
	data, err := os.ReadFile(binPath)
	if err != nil {
		logger.Warn(ctx, "read compiled checker failed", zap.String("path", binPath), zap.Error(err))
		return nil, "", false
	}
	return data, s.compiler.BinaryName(), true
}
