package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// deleteObjectsLimit is the S3 cap on keys per DeleteObjects request.
const deleteObjectsLimit = 1000

// S3Config configures the AWS S3 backend. Empty keys fall back to the
// SDK default credential chain (env, shared config, instance role).
type S3Config struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// S3API is the subset of *s3.Client used by S3Storage.
type S3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Storage stores objects in an S3 bucket named by the container.
type S3Storage struct {
	client S3API
}

func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("s3 accessKeyID and secretAccessKey must be set together")
		}
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config failed: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StorageWithClient(client), nil
}

// NewS3StorageWithClient wraps an existing client.
func NewS3StorageWithClient(client S3API) *S3Storage {
	return &S3Storage{client: client}
}

func (s *S3Storage) UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error {
	if err := validateTestNumber(testNumber); err != nil {
		return err
	}
	if err := s.put(ctx, container, TestInputKey(problemKey, testNumber), input); err != nil {
		return err
	}
	return s.put(ctx, container, TestOutputKey(problemKey, testNumber), output)
}

func (s *S3Storage) UploadFile(ctx context.Context, container, objectPath string, data []byte) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	return s.put(ctx, container, key, data)
}

func (s *S3Storage) EmptyProblem(ctx context.Context, container string, problemKey int64) error {
	if container == "" {
		return fmt.Errorf("bucket is required")
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(container),
		Prefix: aws.String(ProblemPrefix(problemKey)),
	})

	batch := make([]types.ObjectIdentifier, 0, deleteObjectsLimit)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3 list objects failed: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			batch = append(batch, types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteObjectsLimit {
				if err := s.deleteBatch(ctx, container, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	return s.deleteBatch(ctx, container, batch)
}

func (s *S3Storage) put(ctx context.Context, bucket, key string, data []byte) error {
	if bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s failed: %w", key, err)
	}
	return nil
}

func (s *S3Storage) deleteBatch(ctx context.Context, bucket string, batch []types.ObjectIdentifier) error {
	if len(batch) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, len(batch))
	copy(objects, batch)
	out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("s3 delete objects failed: %w", err)
	}
	if out != nil && len(out.Errors) > 0 {
		first := out.Errors[0]
		return fmt.Errorf("s3 delete objects failed for %d keys, first %s: %s",
			len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
	}
	return nil
}

var _ TestCaseStorage = (*S3Storage)(nil)
