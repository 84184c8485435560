package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"polymigrate/internal/common/cache"
	"polymigrate/internal/migration/model"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	DefaultTestCaseTTL = 30 * time.Minute

	testCaseKeyPrefix   = "polygon_migration_test_cases_"
	invalidateScanBatch = 100
)

var cacheErrorCode = zap.Int("code", int(pkgerrors.CacheError))

// CachedTestCases is what a cache read produced. Expected is the stored count;
// Cases may be shorter when entries were missing or unreadable.
type CachedTestCases struct {
	Cases    []model.TestCase
	Expected int
}

// Complete reports whether every indexed entry was read back.
func (c CachedTestCases) Complete() bool {
	return len(c.Cases) == c.Expected
}

// TestCaseCache keeps fetched test data in Redis between runs.
// Every operation is best-effort: failures are logged and never returned.
type TestCaseCache interface {
	Store(ctx context.Context, ref string, cases []model.TestCase)
	Fetch(ctx context.Context, ref string) (CachedTestCases, bool)
	Invalidate(ctx context.Context, ref string)
}

type RedisTestCaseCache struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewTestCaseCache(cacheClient cache.Cache) *RedisTestCaseCache {
	return NewTestCaseCacheWithTTL(cacheClient, DefaultTestCaseTTL)
}

func NewTestCaseCacheWithTTL(cacheClient cache.Cache, ttl time.Duration) *RedisTestCaseCache {
	if ttl <= 0 {
		ttl = DefaultTestCaseTTL
	}
	return &RedisTestCaseCache{cache: cacheClient, ttl: ttl}
}

// cachedTestCase is the stored JSON record. Test data is kept as []byte so it is
// base64 encoded and survives bytes that are not valid UTF-8.
type cachedTestCase struct {
	Index       int    `json:"index"`
	Input       []byte `json:"input"`
	Output      []byte `json:"output"`
	Description string `json:"description"`
	IsSample    bool   `json:"is_sample"`
	IsManual    bool   `json:"is_manual"`
	FetchFailed bool   `json:"fetch_failed"`
}

func newCachedTestCase(tc model.TestCase) cachedTestCase {
	return cachedTestCase{
		Index:       tc.Index,
		Input:       []byte(tc.Input),
		Output:      []byte(tc.Output),
		Description: tc.Description,
		IsSample:    tc.IsSample,
		IsManual:    tc.IsManual,
		FetchFailed: tc.FetchFailed,
	}
}

func (rec cachedTestCase) testCase() model.TestCase {
	return model.TestCase{
		Index:       rec.Index,
		Input:       string(rec.Input),
		Output:      string(rec.Output),
		Description: rec.Description,
		IsSample:    rec.IsSample,
		IsManual:    rec.IsManual,
		FetchFailed: rec.FetchFailed,
	}
}

// Store writes every entry and the count in one MULTI/EXEC so readers never see
// a count without its entries.
func (c *RedisTestCaseCache) Store(ctx context.Context, ref string, cases []model.TestCase) {
	if c.cache == nil {
		return
	}
	payloads := make([]string, len(cases))
	for i, tc := range cases {
		data, err := json.Marshal(newCachedTestCase(tc))
		if err != nil {
			logger.Warn(ctx, "encode cached test case failed", zap.String("ref", ref), zap.Int("index", tc.Index), zap.Error(err))
			return
		}
		payloads[i] = string(data)
	}

	err := c.cache.TxPipeline(ctx, func(pipe cache.Pipeliner) error {
		for i, payload := range payloads {
			if err := pipe.Set(testCaseKey(ref, i+1), payload, c.ttl); err != nil {
				return err
			}
		}
		return pipe.Set(countKey(ref), strconv.Itoa(len(cases)), c.ttl)
	})
	if err != nil {
		logger.Warn(ctx, "store test cases in cache failed", cacheErrorCode, zap.String("ref", ref), zap.Error(err))
		return
	}
	logger.Info(ctx, "test cases cached", zap.String("ref", ref), zap.Int("count", len(cases)), zap.Duration("ttl", c.ttl))
}

// Fetch returns the cached cases in stored order. hit is false when no count is stored
// or Redis is unavailable.
func (c *RedisTestCaseCache) Fetch(ctx context.Context, ref string) (CachedTestCases, bool) {
	if c.cache == nil {
		return CachedTestCases{}, false
	}
	raw, err := c.cache.Get(ctx, countKey(ref))
	if err != nil {
		logger.Warn(ctx, "read test case count from cache failed", cacheErrorCode, zap.String("ref", ref), zap.Error(err))
		return CachedTestCases{}, false
	}
	if raw == "" {
		return CachedTestCases{}, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		logger.Warn(ctx, "invalid cached test case count", zap.String("ref", ref), zap.String("value", raw))
		return CachedTestCases{}, false
	}

	result := CachedTestCases{Expected: count, Cases: make([]model.TestCase, 0, count)}
	if count == 0 {
		return result, true
	}
	keys := make([]string, count)
	for i := range keys {
		keys[i] = testCaseKey(ref, i+1)
	}
	values, err := c.cache.MGet(ctx, keys...)
	if err != nil {
		logger.Warn(ctx, "read cached test cases failed", cacheErrorCode, zap.String("ref", ref), zap.Error(err))
		return CachedTestCases{}, false
	}
	for i, v := range values {
		if !v.Found {
			logger.Warn(ctx, "cached test case missing", zap.String("ref", ref), zap.Int("position", i+1))
			continue
		}
		var rec cachedTestCase
		if err := json.Unmarshal([]byte(v.Data), &rec); err != nil {
			logger.Warn(ctx, "decode cached test case failed", zap.String("ref", ref), zap.Int("position", i+1), zap.Error(err))
			continue
		}
		result.Cases = append(result.Cases, rec.testCase())
	}
	return result, true
}

// Invalidate removes every key of ref.
func (c *RedisTestCaseCache) Invalidate(ctx context.Context, ref string) {
	if c.cache == nil {
		return
	}
	deleted, err := cache.DeleteByPattern(ctx, c.cache, invalidatePattern(ref), invalidateScanBatch)
	if err != nil {
		logger.Warn(ctx, "invalidate test case cache failed", cacheErrorCode, zap.String("ref", ref), zap.Int("deleted", deleted), zap.Error(err))
		return
	}
	logger.Debug(ctx, "test case cache invalidated", zap.String("ref", ref), zap.Int("deleted", deleted))
}

func countKey(ref string) string {
	return testCaseKeyPrefix + ref + "_count"
}

func testCaseKey(ref string, position int) string {
	return fmt.Sprintf("%s%s_test_%d", testCaseKeyPrefix, ref, position)
}

// invalidatePattern keeps the separator after ref so "12" never matches "123".
func invalidatePattern(ref string) string {
	return testCaseKeyPrefix + escapeGlob(ref) + "_*"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var _ TestCaseCache = (*RedisTestCaseCache)(nil)
