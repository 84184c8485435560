package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// LocalStorage keeps objects as plain files under basePath/{container}/.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local basePath is required")
	}
	abs, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("resolve local basePath failed: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

func (s *LocalStorage) UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error {
	if err := validateTestNumber(testNumber); err != nil {
		return err
	}
	if err := s.UploadFile(ctx, container, TestInputKey(problemKey, testNumber), input); err != nil {
		return err
	}
	return s.UploadFile(ctx, container, TestOutputKey(problemKey, testNumber), output)
}

func (s *LocalStorage) EmptyProblem(ctx context.Context, container string, problemKey int64) error {
	root, err := s.containerDir(container)
	if err != nil {
		return err
	}
	dir := filepath.Join(root, TestCaseRoot, strconv.FormatInt(problemKey, 10))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("local remove %s failed: %w", dir, err)
	}
	return nil
}

func (s *LocalStorage) UploadFile(ctx context.Context, container, objectPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root, err := s.containerDir(container)
	if err != nil {
		return err
	}
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	target := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("local create dir failed: %w", err)
	}

	// Write to a sibling temp file then rename, so readers never see a partial object.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("local create temp file failed: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("local write %s failed: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("local close %s failed: %w", key, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("local chmod %s failed: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("local rename %s failed: %w", key, err)
	}
	return nil
}

func (s *LocalStorage) containerDir(container string) (string, error) {
	if container == "" || container == "." || container == ".." || filepath.Base(container) != container {
		return "", fmt.Errorf("invalid container name %q", container)
	}
	return filepath.Join(s.basePath, container), nil
}

var _ TestCaseStorage = (*LocalStorage)(nil)
