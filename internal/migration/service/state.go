package service

import (
	"context"

	"polymigrate/internal/migration/model"
	"polymigrate/pkg/utils/contextkey"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// migrationRun is the mutable state of one Migrate call.
type migrationRun struct {
	req    model.MigrationRequest
	report *model.MigrationReport
	target model.StorageTarget

	// storageTouched is set once any storage write for target has started.
	storageTouched bool

	cases         []model.TestCase
	casesResolved bool
}

func (s *MigrationService) startRun(ctx context.Context, req model.MigrationRequest) (context.Context, *migrationRun) {
	runID := s.newRunID()
	ctx = context.WithValue(ctx, contextkey.RunID, runID)
	run := &migrationRun{
		req: req,
		report: &model.MigrationReport{
			RunID:       runID,
			ExternalRef: req.ExternalRef,
			State:       model.StateIdle,
			StartedAt:   s.clock.Now(),
		},
	}
	logger.Info(ctx, "migration started",
		zap.String("ref", req.ExternalRef),
		zap.Bool("migrate_problem", req.MigrateProblem),
		zap.Bool("migrate_to_storage", req.MigrateToStorage),
		zap.Bool("migrate_test_cases", req.MigrateTestCases),
		zap.String("testset", req.Testset),
	)
	return ctx, run
}

func (r *migrationRun) transition(ctx context.Context, to model.MigrationState) {
	from := r.report.State
	if from == to {
		return
	}
	r.report.State = to
	logger.Info(ctx, "migration state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}
