package polygon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"polymigrate/pkg/utils/logger"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const packageStateReady = "READY"

var zipMagic = []byte("PK")

// SelectPackage returns the highest-revision package of the given type.
// When a package reports a state it must be READY.
func SelectPackage(packages []Package, packageType string) (Package, bool) {
	var (
		best  Package
		found bool
	)
	for _, p := range packages {
		if p.Type != packageType {
			continue
		}
		if p.State != "" && p.State != packageStateReady {
			continue
		}
		if !found || p.Revision > best.Revision {
			best = p
			found = true
		}
	}
	return best, found
}

// DownloadPackageAndExtractStatement downloads the newest package, unpacks it in a
// scratch directory and returns the statement HTML. The directory is always removed.
func (c *Client) DownloadPackageAndExtractStatement(ctx context.Context, ref string) (string, error) {
	packages, err := c.Packages(ctx, ref)
	if err != nil {
		return "", err
	}
	pkg, ok := SelectPackage(packages, c.cfg.PackageType)
	if !ok {
		return "", fmt.Errorf("%w: no ready %s package for problem %s", ErrInvalidPackage, c.cfg.PackageType, ref)
	}
	logger.Info(ctx, "downloading polygon package",
		zap.String("ref", ref),
		zap.Int64("package_id", pkg.ID),
		zap.Int("revision", pkg.Revision),
	)

	params := url.Values{
		"problemId": {ref},
		"packageId": {strconv.FormatInt(pkg.ID, 10)},
		"type":      {c.cfg.PackageType},
	}
	data, err := c.callBinary(ctx, "problem.package", params)
	if err != nil {
		return "", err
	}
	if err := checkArchive("problem.package", data); err != nil {
		return "", err
	}

	workspace, err := os.MkdirTemp(c.cfg.WorkDir, "polygon-package-*")
	if err != nil {
		return "", fmt.Errorf("create package workspace failed: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn(ctx, "remove package workspace failed", zap.String("dir", workspace), zap.Error(err))
		}
	}()

	if err := extractArchive(data, workspace, c.cfg.MaxPackageBytes); err != nil {
		return "", err
	}
	statementPath, err := findFile(workspace, c.cfg.StatementFile)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(statementPath)
	if err != nil {
		return "", fmt.Errorf("read statement failed: %w", err)
	}
	logger.Info(ctx, "statement extracted", zap.String("ref", ref), zap.Int("bytes", len(content)))
	return string(content), nil
}

// checkArchive rejects bodies that are not zip archives, surfacing a FAILED envelope as RemoteAPIError.
func checkArchive(method string, data []byte) error {
	if bytes.HasPrefix(data, zipMagic) {
		return nil
	}
	var env envelope
	if json.Unmarshal(data, &env) == nil && env.Status == statusFailed {
		return &RemoteAPIError{Method: method, Comment: env.Comment}
	}
	return fmt.Errorf("%w: downloaded data is not a zip archive", ErrInvalidPackage)
}

// extractArchive unpacks a zip archive into dstDir, rejecting entries that escape it.
func extractArchive(data []byte, dstDir string, maxBytes int64) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	root := filepath.Clean(dstDir)
	var written int64
	for _, f := range zr.File {
		if f.Name == "" {
			continue
		}
		cleanName := filepath.Clean(filepath.FromSlash(f.Name))
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("%w: invalid entry path %q", ErrInvalidPackage, f.Name)
		}
		target := filepath.Join(root, cleanName)
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("%w: entry %q escapes the workspace", ErrInvalidPackage, f.Name)
		}

		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir failed: %w", err)
			}
		case mode.IsRegular():
			n, err := extractFile(f, target, maxBytes-written)
			if err != nil {
				return err
			}
			written += n
		default:
			// symlinks and devices are skipped
		}
	}
	return nil
}

func extractFile(f *zip.File, target string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir failed: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: open entry %q: %v", ErrInvalidPackage, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file failed: %w", err)
	}
	n, err := io.CopyN(out, rc, budget+1)
	closeErr := out.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: extract %q: %v", ErrInvalidPackage, f.Name, err)
	}
	if n > budget {
		return n, fmt.Errorf("%w: archive expands beyond size limit", ErrInvalidPackage)
	}
	if closeErr != nil {
		return n, fmt.Errorf("write file failed: %w", closeErr)
	}
	return n, nil
}

// findFile returns the first regular file named name below root, in lexical walk order.
func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk package failed: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrStatementNotFound, name)
	}
	return found, nil
}
