package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// R2Config configures a Cloudflare R2 bucket through its S3-compatible endpoint.
// Endpoint may point at any other S3-compatible service instead.
type R2Config struct {
	AccountID       string `yaml:"accountID"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	DisableSSL      bool   `yaml:"disableSSL"`
}

func (c R2Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID == "" {
		return ""
	}
	return c.AccountID + ".r2.cloudflarestorage.com"
}

// MinioAPI is the subset of *minio.Client used by R2Storage.
type MinioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// R2Storage implements TestCaseStorage using minio-go against R2.
type R2Storage struct {
	client MinioAPI
}

func NewR2Storage(cfg R2Config) (*R2Storage, error) {
	endpoint := cfg.endpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("r2 accountID or endpoint is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("r2 accessKeyID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("r2 secretAccessKey is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !cfg.DisableSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create r2 client failed: %w", err)
	}
	return NewR2StorageWithClient(client), nil
}

// NewR2StorageWithClient wraps an existing client.
func NewR2StorageWithClient(client MinioAPI) *R2Storage {
	return &R2Storage{client: client}
}

func (s *R2Storage) UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error {
	if err := validateTestNumber(testNumber); err != nil {
		return err
	}
	if err := s.put(ctx, container, TestInputKey(problemKey, testNumber), input); err != nil {
		return err
	}
	return s.put(ctx, container, TestOutputKey(problemKey, testNumber), output)
}

func (s *R2Storage) UploadFile(ctx context.Context, container, objectPath string, data []byte) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	return s.put(ctx, container, key, data)
}

func (s *R2Storage) EmptyProblem(ctx context.Context, container string, problemKey int64) error {
	if container == "" {
		return fmt.Errorf("bucket is required")
	}
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	objCh := s.client.ListObjects(listCtx, container, minio.ListObjectsOptions{
		Prefix:    ProblemPrefix(problemKey),
		Recursive: true,
	})

	var keys []string
	for obj := range objCh {
		if obj.Err != nil {
			return fmt.Errorf("r2 list objects failed: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return s.removeObjects(ctx, container, keys)
}

func (s *R2Storage) put(ctx context.Context, bucket, key string, data []byte) error {
	if bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("r2 put object %s failed: %w", key, err)
	}
	return nil
}

func (s *R2Storage) removeObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objCh <- minio.ObjectInfo{Key: key}
	}
	close(objCh)

	var firstErr error
	failed := 0
	for res := range s.client.RemoveObjects(ctx, bucket, objCh, minio.RemoveObjectsOptions{}) {
		if res.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("r2 remove object %s failed: %w", res.ObjectName, res.Err)
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d deletes failed: %w", failed, len(keys), firstErr)
	}
	return nil
}

var _ TestCaseStorage = (*R2Storage)(nil)
