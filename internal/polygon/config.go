package polygon

import "time"

const (
	DefaultAPIURL        = "https://polygon.codeforces.com/api/"
	DefaultPackageType   = "standard"
	DefaultStatementFile = "problem.html"
	DefaultTestset       = "tests"

	defaultTimeout         = 60 * time.Second
	defaultRequestsPerSec  = 5.0
	defaultBurst           = 5
	defaultMaxPackageBytes = 512 << 20
)

// Config holds Polygon credentials and client tuning.
type Config struct {
	APIURL    string `yaml:"apiURL"`
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`

	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requestsPerSec"`
	Burst          int           `yaml:"burst"`

	PackageType     string `yaml:"packageType"`
	StatementFile   string `yaml:"statementFile"`
	Testset         string `yaml:"testset"`
	MaxPackageBytes int64  `yaml:"maxPackageBytes"`
	// WorkDir is where package archives are unpacked; empty means the system temp dir.
	WorkDir string `yaml:"workDir"`
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = defaultRequestsPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.PackageType == "" {
		cfg.PackageType = DefaultPackageType
	}
	if cfg.StatementFile == "" {
		cfg.StatementFile = DefaultStatementFile
	}
	if cfg.Testset == "" {
		cfg.Testset = DefaultTestset
	}
	if cfg.MaxPackageBytes <= 0 {
		cfg.MaxPackageBytes = defaultMaxPackageBytes
	}
}
