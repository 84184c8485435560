package service_test

import (
	"context"
	"testing"

	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewWarmsCache(t *testing.T) {
	h := newHarness(t, true)
	h.polygon.info = model.ProblemInfo{InputFile: "stdin", OutputFile: "stdout", TimeLimit: 1500, MemoryLimit: 128}
	h.polygon.checker = "std::lcmp.cpp"
	h.polygon.mainSol = "main.cpp"
	h.polygon.cases = []model.TestCase{
		{Index: 1, Input: "1", Output: "1", IsSample: true},
		{Index: 2, FetchFailed: true},
	}

	report, err := h.svc.Preview(context.Background(), "31", "")
	require.NoError(t, err)
	assert.Equal(t, "31", report.ExternalRef)
	assert.Equal(t, 1500, report.Info.TimeLimit)
	assert.Equal(t, "lcmp", report.CheckerType)
	assert.Equal(t, "main.cpp", report.MainSolution)
	assert.False(t, report.CacheHit)
	assert.Equal(t, 2, report.TestCount)
	assert.Equal(t, 1, report.SampleCount)
	assert.Equal(t, []int{2}, report.FetchFailed)

	again, err := h.svc.Preview(context.Background(), "31", "")
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, 1, h.polygon.fetchCalls)

	// nothing is written outside the cache
	assert.Equal(t, 0, h.db.commits+h.db.rollbacks)
}

func TestPurgeStorage(t *testing.T) {
	h := newHarness(t, true)
	h.problems.ids["555"] = 42
	h.polygon.cases = []model.TestCase{{Index: 1, Input: "1", Output: "1"}}
	_, err := h.svc.Migrate(context.Background(), storageRequest("555"))
	require.NoError(t, err)
	require.NotEmpty(t, h.problemDirEntries(t, 42))

	id, err := h.svc.PurgeStorage(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Empty(t, h.problemDirEntries(t, 42))

	_, err = h.svc.PurgeStorage(context.Background(), "404")
	assert.Equal(t, pkgerrors.ProblemNotFound, pkgerrors.GetCode(err))
}

func TestPurgeStorageWithoutBackend(t *testing.T) {
	h := newHarness(t, false)
	h.problems.ids["555"] = 42
	_, err := h.svc.PurgeStorage(context.Background(), "555")
	assert.Equal(t, pkgerrors.StorageNotConfigured, pkgerrors.GetCode(err))
	assert.Equal(t, 503, pkgerrors.GetCode(err).HTTPStatus())
}

func TestInvalidateCache(t *testing.T) {
	h := newHarness(t, true)
	h.cache.Store(context.Background(), "12", []model.TestCase{{Index: 1, Input: "a", Output: "b"}})
	h.cache.Store(context.Background(), "123", []model.TestCase{{Index: 1, Input: "a", Output: "b"}})

	require.NoError(t, h.svc.InvalidateCache(context.Background(), "12"))
	assert.False(t, h.redis.Exists("polygon_migration_test_cases_12_count"))
	assert.True(t, h.redis.Exists("polygon_migration_test_cases_123_count"))

	assert.Equal(t, pkgerrors.InvalidParams, pkgerrors.GetCode(h.svc.InvalidateCache(context.Background(), " ")))
}
