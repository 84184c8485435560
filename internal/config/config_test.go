package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"polymigrate/internal/config"
	"polymigrate/internal/testutil"
)

const minimalYAML = `
database:
  dsn: "user:${TEST_DB_PASSWORD}@tcp(127.0.0.1:3306)/oj"
redis:
  addr: "127.0.0.1:6379"
polygon:
  apiKey: key
  apiSecret: "${TEST_POLYGON_SECRET}"
storage:
  type: local
  container: problems
  local:
    basePath: /var/lib/polymigrate
migration:
  pruneSurplusRows: true
`

func TestParseAppliesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	t.Setenv("TEST_POLYGON_SECRET", "polysecret")

	cfg, err := config.Parse([]byte(minimalYAML))
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, cfg.Database.DSN, "user:s3cret@tcp(127.0.0.1:3306)/oj")
	testutil.AssertEqual(t, cfg.Polygon.APISecret, "polysecret")
	testutil.AssertEqual(t, cfg.Polygon.APIURL, "https://polygon.codeforces.com/api/")
	testutil.AssertEqual(t, cfg.Polygon.Timeout, 60*time.Second)
	testutil.AssertEqual(t, cfg.Polygon.Testset, "tests")
	testutil.AssertEqual(t, cfg.Redis.DialTimeout, 5*time.Second)
	testutil.AssertEqual(t, cfg.Server.Addr, "0.0.0.0:8090")
	testutil.AssertEqual(t, cfg.Migration.CacheTTL, 30*time.Minute)
	testutil.AssertTrue(t, cfg.Migration.PruneSurplusRows)
	testutil.AssertEqual(t, cfg.Storage.Local.BasePath, "/var/lib/polymigrate")
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing dsn", yaml: "redis: {addr: x}\npolygon: {apiKey: k, apiSecret: s}\n"},
		{name: "missing redis", yaml: "database: {dsn: x}\npolygon: {apiKey: k, apiSecret: s}\n"},
		{name: "missing polygon secret", yaml: "database: {dsn: x}\nredis: {addr: x}\npolygon: {apiKey: k}\n"},
		{name: "storage without container", yaml: "database: {dsn: x}\nredis: {addr: x}\npolygon: {apiKey: k, apiSecret: s}\nstorage: {type: s3}\n"},
		{name: "bad yaml", yaml: "database: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			testutil.AssertError(t, err)
		})
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	cfgPath := filepath.Join(dir, "config.yaml")
	testutil.AssertNoError(t, os.WriteFile(envPath, []byte("TEST_DB_PASSWORD=fromenv\nTEST_POLYGON_SECRET=fromenv\n"), 0o600))
	testutil.AssertNoError(t, os.WriteFile(cfgPath, []byte(minimalYAML), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("TEST_DB_PASSWORD")
		_ = os.Unsetenv("TEST_POLYGON_SECRET")
	})

	cfg, err := config.Load(cfgPath, envPath)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.Polygon.APISecret, "fromenv")
}

func TestLoadToleratesMissingEnvFile(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "x")
	t.Setenv("TEST_POLYGON_SECRET", "y")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	testutil.AssertNoError(t, os.WriteFile(cfgPath, []byte(minimalYAML), 0o600))

	_, err := config.Load(cfgPath, filepath.Join(t.TempDir(), "missing.env"))
	testutil.AssertNoError(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	testutil.AssertError(t, err)
}

func TestShippedConfigParses(t *testing.T) {
	for k, v := range map[string]string{
		"MYSQL_USER": "oj", "MYSQL_PASSWORD": "pw", "MYSQL_HOST": "db", "MYSQL_DATABASE": "oj",
		"REDIS_HOST": "redis", "POLYGON_API_KEY": "key", "POLYGON_API_SECRET": "secret",
	} {
		t.Setenv(k, v)
	}
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "migration_service.yaml"), "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.Redis.Address(), "redis:6379")
	testutil.AssertEqual(t, cfg.Storage.Type, "local")
	testutil.AssertEqual(t, cfg.Checker.Timeout, 30*time.Second)
	testutil.AssertEqual(t, cfg.Server.WriteTimeout, 15*time.Minute)
}
