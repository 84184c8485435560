package svc

import (
	"context"
	"fmt"

	"polymigrate/internal/common/cache"
	"polymigrate/internal/common/db"
	"polymigrate/internal/common/storage"
	"polymigrate/internal/config"
	"polymigrate/internal/migration/checker"
	"polymigrate/internal/migration/repository"
	"polymigrate/internal/migration/service"
	"polymigrate/internal/polygon"
	pkgerrors "polymigrate/pkg/errors"
	"polymigrate/pkg/utils/logger"

	"go.uber.org/zap"
)

// ServiceContext owns the long-lived clients shared by the HTTP server and the CLI.
type ServiceContext struct {
	Config    *config.AppConfig
	DB        *db.MySQL
	Cache     *cache.RedisCache
	Storage   storage.TestCaseStorage
	Polygon   *polygon.Client
	Migration *service.MigrationService
}

// NewServiceContext connects every dependency named in cfg. The storage backend
// is optional; without it storage migrations fail their precondition.
func NewServiceContext(ctx context.Context, cfg *config.AppConfig) (*ServiceContext, error) {
	sc := &ServiceContext{Config: cfg}

	mysqlDB, err := db.NewMySQLWithConfig(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database failed: %w", err)
	}
	sc.DB = mysqlDB

	redisCache, err := connectRedis(ctx, &cfg.Redis)
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("init redis failed: %w", err)
	}
	sc.Cache = redisCache

	if cfg.Storage.Enabled() {
		backend, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			sc.Close()
			return nil, fmt.Errorf("init %s storage failed: %w", cfg.Storage.Type, err)
		}
		sc.Storage = backend
		logger.Info(ctx, "storage backend ready", zap.String("type", cfg.Storage.Type), zap.String("container", cfg.Storage.Container))
	} else {
		logger.Warn(ctx, "no storage backend configured; storage migrations are disabled")
	}

	client, err := polygon.NewClient(cfg.Polygon)
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("init polygon client failed: %w", err)
	}
	sc.Polygon = client

	compiler, err := checker.NewCompiler(cfg.Checker)
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("init checker compiler failed: %w", err)
	}

	sc.Migration = service.NewMigrationService(service.Dependencies{
		DB:       mysqlDB,
		Problems: repository.NewProblemRepository(mysqlDB),
		Cache:    repository.NewTestCaseCacheWithTTL(redisCache, cfg.Migration.CacheTTL),
		Storage:  sc.Storage,
		Polygon:  client,
		Parser:   polygon.NewHTMLStatementParser(),
		Compiler: compiler,
	}, service.Config{
		Container:        cfg.Storage.Container,
		Testset:          cfg.Polygon.Testset,
		PruneSurplusRows: cfg.Migration.PruneSurplusRows,
	})
	return sc, nil
}

// connectRedis never fails on an unreachable server: the test-case cache then
// degrades to logged misses and Redis is retried on every operation.
func connectRedis(ctx context.Context, cfg *cache.RedisConfig) (*cache.RedisCache, error) {
	redisCache, err := cache.NewRedisCacheWithConfig(cfg)
	if err == nil {
		return redisCache, nil
	}
	client, cerr := cache.NewRedisClient(cfg)
	if cerr != nil {
		return nil, cerr
	}
	logger.Warn(ctx, "redis unavailable, test-case cache degrades to misses",
		zap.Int("code", int(pkgerrors.CacheError)),
		zap.String("addr", cfg.Address()),
		zap.Error(err),
	)
	return cache.NewRedisCacheWithClient(client)
}

// Close releases the database and Redis connections.
func (sc *ServiceContext) Close() {
	if sc.Cache != nil {
		_ = sc.Cache.Close()
	}
	if sc.DB != nil {
		_ = sc.DB.Close()
	}
}
