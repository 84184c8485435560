package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"polymigrate/internal/common/db"
	"polymigrate/internal/common/storage"
	"polymigrate/internal/migration/checker"
	"polymigrate/internal/migration/model"
	"polymigrate/internal/migration/repository"
	"polymigrate/internal/polygon"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const compensationTimeout = 2 * time.Minute

// PolygonClient is the subset of the Polygon API the migration uses.
type PolygonClient interface {
	ProblemInfo(ctx context.Context, ref string) (model.ProblemInfo, error)
	Tests(ctx context.Context, ref, testset string) ([]polygon.Test, error)
	FetchAllTestCases(ctx context.Context, ref, testset string) ([]model.TestCase, error)
	DownloadPackageAndExtractStatement(ctx context.Context, ref string) (string, error)
	CheckerName(ctx context.Context, ref string) (string, error)
	GetCustomCheckerInfo(ctx context.Context, ref string) (*model.CheckerDescriptor, error)
	FetchCheckerSource(ctx context.Context, ref, name string) (string, error)
	MainSolution(ctx context.Context, ref string) (string, error)
	UpdateWorkingCopy(ctx context.Context, ref string) error
}

// CheckerCompiler turns checker source into a binary when a toolchain is present.
type CheckerCompiler interface {
	Compile(ctx context.Context, sourceText, workDir string) (string, bool)
	WorkDir() (string, func(), error)
	BinaryName() string
}

// Config holds the migration settings.
type Config struct {
	// Container is the storage bucket, container or root folder name.
	Container string
	// Testset is used when a request names none.
	Testset string
	// PruneSurplusRows deletes sample and test rows beyond the migrated range.
	PruneSurplusRows bool
}

// Dependencies groups the collaborators of a MigrationService.
// Storage may be nil when no backend is configured.
type Dependencies struct {
	DB       db.Database
	Problems repository.ProblemRepository
	Cache    repository.TestCaseCache
	Storage  storage.TestCaseStorage
	Polygon  PolygonClient
	Parser   polygon.StatementParser
	Compiler CheckerCompiler
	Clock    clockwork.Clock
}

// MigrationService moves Polygon problems into the database and test-case storage.
type MigrationService struct {
	db       db.Database
	problems repository.ProblemRepository
	cache    repository.TestCaseCache
	storage  storage.TestCaseStorage
	polygon  PolygonClient
	parser   polygon.StatementParser
	compiler CheckerCompiler
	clock    clockwork.Clock
	cfg      Config
	newRunID func() string
}

// NewMigrationService creates a new MigrationService.
func NewMigrationService(deps Dependencies, cfg Config) *MigrationService {
	if deps.Parser == nil {
		deps.Parser = polygon.NewHTMLStatementParser()
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &MigrationService{
		db:       deps.DB,
		problems: deps.Problems,
		cache:    deps.Cache,
		storage:  deps.Storage,
		polygon:  deps.Polygon,
		parser:   deps.Parser,
		compiler: deps.Compiler,
		clock:    deps.Clock,
		cfg:      cfg,
		newRunID: uuid.NewString,
	}
}

// Migrate runs one migration request inside a single database transaction.
// On failure the transaction is rolled back, storage written by this run is
// emptied and the test-case cache is invalidated. The report is returned in
// both cases.
func (s *MigrationService) Migrate(ctx context.Context, req model.MigrationRequest) (*model.MigrationReport, error) {
	req, err := s.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, run := s.startRun(ctx, req)
	if err := s.checkStoragePrecondition(req); err != nil {
		return s.abort(ctx, run, err)
	}

	if req.RefreshWorkingCopy {
		if err := s.polygon.UpdateWorkingCopy(ctx, req.ExternalRef); err != nil {
			return s.abort(ctx, run, polygonError(err, "update working copy"))
		}
	}

	err = s.db.Transaction(ctx, func(tx db.Transaction) error {
		return s.migrateInTx(ctx, tx, run)
	})
	if err != nil {
		return s.abort(ctx, run, transactionError(err))
	}

	run.transition(ctx, model.StateCommitted)
	run.report.FinishedAt = s.clock.Now()
	logger.Info(ctx, "migration committed",
		zap.String("ref", req.ExternalRef),
		zap.Int64("problem_id", run.report.ProblemID),
		zap.Int("uploaded", run.report.Uploaded),
		zap.Int("skipped", len(run.report.Skipped)),
		zap.Duration("duration", run.report.FinishedAt.Sub(run.report.StartedAt)),
	)
	return run.report, nil
}

func (s *MigrationService) normalizeRequest(req model.MigrationRequest) (model.MigrationRequest, error) {
	req.ExternalRef = strings.TrimSpace(req.ExternalRef)
	if req.ExternalRef == "" {
		return req, pkgerrors.ValidationError("external_ref", "required").WithMessage("external_ref is required")
	}
	if !req.MigrateProblem && !req.MigrateToStorage && !req.MigrateTestCases {
		return req, pkgerrors.BadRequest("nothing to migrate: enable migrate_problem, migrate_to_storage or migrate_test_cases")
	}
	if req.MigrateProblem {
		if !model.ValidDifficulty(req.Difficulty) {
			return req, pkgerrors.ValidationError("difficulty", "must be easy, medium or hard").
				WithMessage("difficulty must be easy, medium or hard")
		}
		req.Difficulty = strings.ToLower(strings.TrimSpace(req.Difficulty))
	}
	if strings.TrimSpace(req.Testset) == "" {
		req.Testset = s.cfg.Testset
	}
	return req, nil
}

func (s *MigrationService) checkStoragePrecondition(req model.MigrationRequest) error {
	if !req.MigrateToStorage {
		return nil
	}
	if s.storage == nil {
		return pkgerrors.PreconditionError("storage migration requested but no storage backend is configured")
	}
	if strings.TrimSpace(s.cfg.Container) == "" {
		return pkgerrors.PreconditionError("storage migration requested but no storage container is configured")
	}
	return nil
}

// migrateInTx upserts the problem first so one request can create the row and
// then migrate its storage.
func (s *MigrationService) migrateInTx(ctx context.Context, tx db.Transaction, run *migrationRun) error {
	req := run.req
	var problemID int64

	if req.MigrateProblem {
		id, err := s.upsertProblem(ctx, tx, run)
		if err != nil {
			return err
		}
		problemID = id
	}

	if req.MigrateToStorage || req.MigrateTestCases {
		if problemID == 0 {
			id, err := s.problems.GetIDByPolygonID(ctx, tx, req.ExternalRef)
			if errors.Is(err, repository.ErrProblemNotFound) {
				return pkgerrors.PreconditionError("problem %s has not been migrated yet; migrate the problem first", req.ExternalRef)
			}
			if err != nil {
				return databaseError(err, "look up problem %s", req.ExternalRef)
			}
			problemID = id
		}
		run.report.ProblemID = problemID
	}

	if req.MigrateToStorage {
		run.target = model.StorageTarget{Container: s.cfg.Container, ProblemKey: problemID}
		if err := s.migrateStorage(ctx, run); err != nil {
			return err
		}
	}

	if req.MigrateTestCases {
		if err := s.writeTestRows(ctx, tx, run); err != nil {
			return err
		}
	}
	return nil
}

func (s *MigrationService) upsertProblem(ctx context.Context, tx db.Transaction, run *migrationRun) (int64, error) {
	run.transition(ctx, model.StateFetchingMetadata)
	rec, err := s.buildProblemRecord(ctx, run.req)
	if err != nil {
		return 0, err
	}
	id, err := s.problems.UpsertProblem(ctx, tx, rec)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ProblemUpdateFailed).
			WithMessagef("upsert problem %s failed: %v", run.req.ExternalRef, err)
	}

	tags := normalizeTags(run.req.Tags, run.req.NewTag)
	if err := s.problems.ReplaceTags(ctx, tx, id, tags); err != nil {
		return 0, databaseError(err, "replace tags of problem %d", id)
	}

	run.report.ProblemID = id
	run.report.ProblemUpserted = true
	run.report.Tags = tags
	logger.Info(ctx, "problem upserted",
		zap.Int64("problem_id", id),
		zap.String("slug", rec.Slug),
		zap.String("checker_type", rec.CheckerType),
		zap.Strings("tags", tags),
	)
	return id, nil
}

func (s *MigrationService) migrateStorage(ctx context.Context, run *migrationRun) error {
	ref := run.req.ExternalRef
	target := run.target

	s.cache.Invalidate(ctx, ref)
	cases, err := s.runTestCases(ctx, run)
	if err != nil {
		return err
	}

	run.transition(ctx, model.StateUploadingTestCases)
	run.storageTouched = true
	if err := s.storage.EmptyProblem(ctx, target.Container, target.ProblemKey); err != nil {
		return storageError(err, "empty problem %d", target.ProblemKey)
	}

	for i, tc := range cases {
		if !tc.Uploadable() {
			run.report.Skipped = append(run.report.Skipped, tc.Index)
			logger.Warn(ctx, "skipping test case with empty data",
				zap.Int("index", tc.Index),
				zap.Bool("fetch_failed", tc.FetchFailed),
				zap.Bool("empty_input", tc.Input == ""),
				zap.Bool("empty_output", tc.Output == ""),
			)
			continue
		}
		testNumber := i + 1
		if err := s.storage.UploadTestCase(ctx, target.Container, target.ProblemKey, testNumber, []byte(tc.Input), []byte(tc.Output)); err != nil {
			return storageError(err, "upload test %d of problem %d", testNumber, target.ProblemKey)
		}
		run.report.Uploaded++
	}
	logger.Info(ctx, "test cases uploaded",
		zap.Int64("problem_key", target.ProblemKey),
		zap.Int("uploaded", run.report.Uploaded),
		zap.Ints("skipped", run.report.Skipped),
	)

	run.transition(ctx, model.StateUploadingChecker)
	artifact, err := s.migrateChecker(ctx, ref, target)
	if err != nil {
		return err
	}
	run.report.Checker = artifact
	return nil
}

func (s *MigrationService) writeTestRows(ctx context.Context, tx db.Transaction, run *migrationRun) error {
	cases, err := s.runTestCases(ctx, run)
	if err != nil {
		return err
	}
	problemID := run.report.ProblemID

	samples, err := s.problems.UpsertSampleRows(ctx, tx, problemID, buildSampleRows(cases), s.cfg.PruneSurplusRows)
	if err != nil {
		return databaseError(err, "write sample rows of problem %d", problemID)
	}
	tests, err := s.problems.UpsertTestRows(ctx, tx, problemID, buildTestRows(cases), s.cfg.PruneSurplusRows)
	if err != nil {
		return databaseError(err, "write test rows of problem %d", problemID)
	}

	run.report.SampleRows = samples.Written
	run.report.TestRows = tests.Written
	run.report.StaleRows = samples.Stale + tests.Stale
	if run.report.StaleRows > 0 {
		logger.Warn(ctx, "rows beyond the migrated range were kept",
			zap.Int64("problem_id", problemID),
			zap.Int("stale_samples", samples.Stale),
			zap.Int("stale_tests", tests.Stale),
		)
	}
	if pruned := samples.Pruned + tests.Pruned; pruned > 0 {
		logger.Info(ctx, "surplus rows pruned", zap.Int64("problem_id", problemID), zap.Int("rows", pruned))
	}
	return nil
}

// abort finishes a failed run: storage written by the run is emptied and the
// cache entry dropped. Compensation failures are logged; err is returned as is.
func (s *MigrationService) abort(ctx context.Context, run *migrationRun, err error) (*model.MigrationReport, error) {
	run.transition(ctx, model.StateRolledBack)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if run.storageTouched && s.storage != nil {
		target := run.target
		if cerr := s.storage.EmptyProblem(cleanupCtx, target.Container, target.ProblemKey); cerr != nil {
			logger.Error(ctx, "compensating storage cleanup failed",
				zap.Int64("problem_key", target.ProblemKey),
				zap.Error(cerr),
			)
		} else {
			logger.Info(ctx, "compensating storage cleanup done", zap.Int64("problem_key", target.ProblemKey))
		}
	}
	s.cache.Invalidate(cleanupCtx, run.req.ExternalRef)

	run.report.Error = err.Error()
	run.report.FinishedAt = s.clock.Now()
	logger.Error(ctx, "migration rolled back",
		zap.String("ref", run.req.ExternalRef),
		zap.Int("code", int(pkgerrors.GetCode(err))),
		zap.Error(err),
	)
	return run.report, err
}

var (
	_ PolygonClient   = (*polygon.Client)(nil)
	_ CheckerCompiler = (*checker.Compiler)(nil)
)
