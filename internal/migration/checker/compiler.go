package checker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"polymigrate/internal/common/storage"
	"polymigrate/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const (
	DefaultCompiler = "g++"
	DefaultFlags    = "-std=gnu++17 -O2"
	DefaultTimeout  = 30 * time.Second

	sourceFileName  = "custom_checker.cpp"
	maxStderrLogLen = 2048
)

// Config controls checker compilation.
type Config struct {
	Compiler string        `yaml:"compiler"`
	Flags    string        `yaml:"flags"`
	Timeout  time.Duration `yaml:"timeout"`
	// WorkDir is the parent of per-run scratch directories; empty means the OS temp dir.
	WorkDir string `yaml:"workDir"`
}

func applyDefaults(cfg *Config) {
	if cfg.Compiler == "" {
		cfg.Compiler = DefaultCompiler
	}
	if cfg.Flags == "" {
		cfg.Flags = DefaultFlags
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

// Compiler builds checker binaries. Any failure means the checker is shipped as source.
type Compiler struct {
	cfg   Config
	flags []string
	goos  string
}

func NewCompiler(cfg Config) (*Compiler, error) {
	applyDefaults(&cfg)
	flags, err := shlex.Split(cfg.Flags)
	if err != nil {
		return nil, fmt.Errorf("parse compiler flags failed: %w", err)
	}
	return &Compiler{cfg: cfg, flags: flags, goos: runtime.GOOS}, nil
}

// BinaryName is the output file name for the host OS.
func (c *Compiler) BinaryName() string {
	return storage.CheckerBinaryFor(c.goos)
}

// WorkDir returns a fresh scratch directory for one compilation and its cleanup
// func. A configured directory is the parent of the per-run directories.
func (c *Compiler) WorkDir() (string, func(), error) {
	parent := c.cfg.WorkDir
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", nil, fmt.Errorf("create checker work dir failed: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "checker-*")
	if err != nil {
		return "", nil, fmt.Errorf("create checker temp dir failed: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

// Compile writes sourceText into workDir and compiles it. ok is false whenever no
// usable binary was produced; the reason is logged.
func (c *Compiler) Compile(ctx context.Context, sourceText, workDir string) (string, bool) {
	compilerPath, err := exec.LookPath(c.cfg.Compiler)
	if err != nil {
		logger.Warn(ctx, "checker compiler not found", zap.String("compiler", c.cfg.Compiler), zap.Error(err))
		return "", false
	}

	srcPath := filepath.Join(workDir, sourceFileName)
	if err := os.WriteFile(srcPath, []byte(sourceText), 0o644); err != nil {
		logger.Warn(ctx, "write checker source failed", zap.String("path", srcPath), zap.Error(err))
		return "", false
	}
	binPath := filepath.Join(workDir, c.BinaryName())
	_ = os.Remove(binPath)

	args := make([]string, 0, len(c.flags)+3)
	args = append(args, c.flags...)
	args = append(args, "-o", binPath, srcPath)

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, compilerPath, args...)
	cmd.Dir = workDir
	cmd.WaitDelay = time.Second
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("compilation timed out after %s", c.cfg.Timeout)
		}
		logger.Warn(ctx, "checker compilation failed",
			zap.String("compiler", compilerPath),
			zap.Error(err),
			zap.String("stderr", tail(stderr.String(), maxStderrLogLen)),
		)
		return "", false
	}

	info, err := os.Stat(binPath)
	if err != nil || !info.Mode().IsRegular() {
		logger.Warn(ctx, "checker compiler produced no binary", zap.String("path", binPath), zap.Error(err))
		return "", false
	}
	if err := os.Chmod(binPath, 0o750); err != nil {
		logger.Warn(ctx, "chmod checker binary failed", zap.String("path", binPath), zap.Error(err))
		return "", false
	}
	logger.Info(ctx, "checker compiled",
		zap.String("binary", binPath),
		zap.Int64("bytes", info.Size()),
		zap.Duration("duration", time.Since(start)),
	)
	return binPath, true
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
