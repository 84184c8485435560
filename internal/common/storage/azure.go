package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureConfig configures the blob backend. ConnectionString wins when set;
// otherwise AccountURL is used with a client secret or username/password credential.
type AzureConfig struct {
	ConnectionString string `yaml:"connectionString"`
	AccountURL       string `yaml:"accountURL"`
	TenantID         string `yaml:"tenantID"`
	ClientID         string `yaml:"clientID"`
	ClientSecret     string `yaml:"clientSecret"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
}

// AzureBlobAPI is the blob operations AzureStorage depends on.
type AzureBlobAPI interface {
	UploadBuffer(ctx context.Context, container, blob string, data []byte) error
	ListBlobNames(ctx context.Context, container, prefix string) ([]string, error)
	DeleteBlob(ctx context.Context, container, blob string) error
}

// AzureStorage stores objects as block blobs in the named container.
type AzureStorage struct {
	client AzureBlobAPI
}

func NewAzureStorage(cfg AzureConfig) (*AzureStorage, error) {
	client, err := newAzblobClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewAzureStorageWithClient(&azblobAdapter{client: client}), nil
}

// NewAzureStorageWithClient wraps an existing blob client.
func NewAzureStorageWithClient(client AzureBlobAPI) *AzureStorage {
	return &AzureStorage{client: client}
}

func newAzblobClient(cfg AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("create azure client from connection string failed: %w", err)
		}
		return client, nil
	}
	if cfg.AccountURL == "" {
		return nil, fmt.Errorf("azure accountURL or connectionString is required")
	}
	if cfg.TenantID == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("azure tenantID and clientID are required")
	}

	var (
		cred azcore.TokenCredential
		err  error
	)
	switch {
	case cfg.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	case cfg.Username != "" && cfg.Password != "":
		// Fails for accounts with multi-factor authentication enabled.
		cred, err = azidentity.NewUsernamePasswordCredential(cfg.TenantID, cfg.ClientID, cfg.Username, cfg.Password, nil)
	default:
		return nil, fmt.Errorf("azure clientSecret or username/password is required")
	}
	if err != nil {
		return nil, fmt.Errorf("create azure credential failed: %w", err)
	}

	client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client failed: %w", err)
	}
	return client, nil
}

func (s *AzureStorage) UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error {
	if err := validateTestNumber(testNumber); err != nil {
		return err
	}
	if err := s.upload(ctx, container, TestInputKey(problemKey, testNumber), input); err != nil {
		return err
	}
	return s.upload(ctx, container, TestOutputKey(problemKey, testNumber), output)
}

func (s *AzureStorage) UploadFile(ctx context.Context, container, objectPath string, data []byte) error {
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	return s.upload(ctx, container, key, data)
}

func (s *AzureStorage) EmptyProblem(ctx context.Context, container string, problemKey int64) error {
	if container == "" {
		return fmt.Errorf("container is required")
	}
	names, err := s.client.ListBlobNames(ctx, container, ProblemPrefix(problemKey))
	if err != nil {
		return fmt.Errorf("azure list blobs failed: %w", err)
	}
	for _, name := range names {
		if err := s.client.DeleteBlob(ctx, container, name); err != nil {
			return fmt.Errorf("azure delete blob %s failed: %w", name, err)
		}
	}
	return nil
}

func (s *AzureStorage) upload(ctx context.Context, container, key string, data []byte) error {
	if container == "" {
		return fmt.Errorf("container is required")
	}
	if err := s.client.UploadBuffer(ctx, container, key, data); err != nil {
		return fmt.Errorf("azure upload blob %s failed: %w", key, err)
	}
	return nil
}

// azblobAdapter narrows *azblob.Client to AzureBlobAPI.
type azblobAdapter struct {
	client *azblob.Client
}

// UploadBuffer replaces an existing block blob of the same name.
func (a *azblobAdapter) UploadBuffer(ctx context.Context, container, blob string, data []byte) error {
	_, err := a.client.UploadBuffer(ctx, container, blob, data, nil)
	return err
}

func (a *azblobAdapter) ListBlobNames(ctx context.Context, container, prefix string) ([]string, error) {
	pager := a.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	var names []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item != nil && item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

func (a *azblobAdapter) DeleteBlob(ctx context.Context, container, blob string) error {
	_, err := a.client.DeleteBlob(ctx, container, blob, nil)
	if err != nil && bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil
	}
	return azureError(err)
}

// azureError prefixes service errors with their code and status, keeping the chain.
func azureError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%s (status %d): %w", respErr.ErrorCode, respErr.StatusCode, err)
	}
	return err
}

var _ TestCaseStorage = (*AzureStorage)(nil)
