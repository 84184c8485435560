package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"polymigrate/internal/common/cache"
	"polymigrate/internal/common/db"
	"polymigrate/internal/common/storage"
	"polymigrate/internal/migration/checker"
	"polymigrate/internal/migration/repository"
	"polymigrate/internal/polygon"
	"polymigrate/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "configs/migration_service.yaml"
	DefaultEnvFile    = ".env"

	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 15 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// MigrationConfig holds orchestrator settings.
type MigrationConfig struct {
	// PruneSurplusRows deletes sample and test rows beyond the migrated range
	// instead of keeping and reporting them.
	PruneSurplusRows bool          `yaml:"pruneSurplusRows"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
}

// AppConfig holds the whole polymigrate configuration.
type AppConfig struct {
	Server    ServerConfig      `yaml:"server"`
	Logger    logger.Config     `yaml:"logger"`
	Database  db.MySQLConfig    `yaml:"database"`
	Redis     cache.RedisConfig `yaml:"redis"`
	Polygon   polygon.Config    `yaml:"polygon"`
	Storage   storage.Config    `yaml:"storage"`
	Checker   checker.Config    `yaml:"checker"`
	Migration MigrationConfig   `yaml:"migration"`
}

// Load reads envFile (a missing file is fine), then the YAML at path with
// ${VAR} references expanded from the environment.
func Load(path, envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file failed: %w", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	applyServerDefaults(&cfg.Server)
	cache.ApplyRedisDefaults(&cfg.Redis)
	polygon.ApplyDefaults(&cfg.Polygon)
	applyMigrationDefaults(&cfg.Migration)
	return &cfg, nil
}

func validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Address() == "" {
		return fmt.Errorf("redis addr is required")
	}
	if cfg.Polygon.APIKey == "" || cfg.Polygon.APISecret == "" {
		return fmt.Errorf("polygon apiKey and apiSecret are required")
	}
	if cfg.Storage.Enabled() && strings.TrimSpace(cfg.Storage.Container) == "" {
		return fmt.Errorf("storage container is required when storage type is set")
	}
	return nil
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = defaultHTTPAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
}

func applyMigrationDefaults(cfg *MigrationConfig) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = repository.DefaultTestCaseTTL
	}
}
