package storage

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveFolderMimeType = "application/vnd.google-apps.folder"

// GDriveConfig configures the Google Drive backend with a service account.
// Service accounts own no usable "My Drive", so a shared root folder is required.
type GDriveConfig struct {
	CredentialsFile string `yaml:"credentialsFile"`
	RootFolderID    string `yaml:"rootFolderID"`
}

// DriveAPI is the folder-tree operations GDriveStorage depends on.
type DriveAPI interface {
	// FindChild returns the id of a non-trashed child with the given name.
	FindChild(ctx context.Context, parentID, name string, folder bool) (string, bool, error)
	CreateFolder(ctx context.Context, parentID, name string) (string, error)
	CreateFile(ctx context.Context, parentID, name string, data []byte) error
	UpdateFile(ctx context.Context, fileID string, data []byte) error
	// Trash moves a file or folder, with its contents, to the trash.
	Trash(ctx context.Context, fileID string) error
}

// GDriveStorage maps object paths onto a folder hierarchy:
// root/{container}/test_cases/{problemKey}/{name}.
type GDriveStorage struct {
	api    DriveAPI
	rootID string
}

func NewGDriveStorage(ctx context.Context, cfg GDriveConfig) (*GDriveStorage, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("gdrive credentialsFile is required")
	}
	if cfg.RootFolderID == "" {
		return nil, fmt.Errorf("gdrive rootFolderID is required for service accounts")
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service failed: %w", err)
	}
	return NewGDriveStorageWithAPI(&driveAdapter{svc: svc}, cfg.RootFolderID), nil
}

// NewGDriveStorageWithAPI wraps an existing drive client.
func NewGDriveStorageWithAPI(api DriveAPI, rootFolderID string) *GDriveStorage {
	return &GDriveStorage{api: api, rootID: rootFolderID}
}

func (s *GDriveStorage) UploadTestCase(ctx context.Context, container string, problemKey int64, testNumber int, input, output []byte) error {
	if err := validateTestNumber(testNumber); err != nil {
		return err
	}
	if err := s.UploadFile(ctx, container, TestInputKey(problemKey, testNumber), input); err != nil {
		return err
	}
	return s.UploadFile(ctx, container, TestOutputKey(problemKey, testNumber), output)
}

func (s *GDriveStorage) UploadFile(ctx context.Context, container, objectPath string, data []byte) error {
	if container == "" {
		return fmt.Errorf("container is required")
	}
	key, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	parts := strings.Split(key, "/")
	parentID, err := s.ensureFolders(ctx, append([]string{container}, parts[:len(parts)-1]...))
	if err != nil {
		return err
	}

	name := parts[len(parts)-1]
	fileID, found, err := s.api.FindChild(ctx, parentID, name, false)
	if err != nil {
		return fmt.Errorf("gdrive find %s failed: %w", key, err)
	}
	if found {
		if err := s.api.UpdateFile(ctx, fileID, data); err != nil {
			return fmt.Errorf("gdrive update %s failed: %w", key, err)
		}
		return nil
	}
	if err := s.api.CreateFile(ctx, parentID, name, data); err != nil {
		return fmt.Errorf("gdrive create %s failed: %w", key, err)
	}
	return nil
}

// EmptyProblem trashes the problem folder without creating any missing parent.
func (s *GDriveStorage) EmptyProblem(ctx context.Context, container string, problemKey int64) error {
	if container == "" {
		return fmt.Errorf("container is required")
	}
	parentID := s.rootID
	for _, name := range []string{container, TestCaseRoot, strconv.FormatInt(problemKey, 10)} {
		id, found, err := s.api.FindChild(ctx, parentID, name, true)
		if err != nil {
			return fmt.Errorf("gdrive find folder %s failed: %w", name, err)
		}
		if !found {
			return nil
		}
		parentID = id
	}
	if err := s.api.Trash(ctx, parentID); err != nil {
		return fmt.Errorf("gdrive trash problem folder failed: %w", err)
	}
	return nil
}

// ensureFolders walks the path from the root, creating only missing folders.
func (s *GDriveStorage) ensureFolders(ctx context.Context, names []string) (string, error) {
	parentID := s.rootID
	for _, name := range names {
		id, found, err := s.api.FindChild(ctx, parentID, name, true)
		if err != nil {
			return "", fmt.Errorf("gdrive find folder %s failed: %w", name, err)
		}
		if !found {
			id, err = s.api.CreateFolder(ctx, parentID, name)
			if err != nil {
				return "", fmt.Errorf("gdrive create folder %s failed: %w", name, err)
			}
		}
		parentID = id
	}
	return parentID, nil
}

// driveAdapter implements DriveAPI over the Drive v3 REST client.
type driveAdapter struct {
	svc *drive.Service
}

func (d *driveAdapter) FindChild(ctx context.Context, parentID, name string, folder bool) (string, bool, error) {
	mimeClause := "mimeType != '" + driveFolderMimeType + "'"
	if folder {
		mimeClause = "mimeType = '" + driveFolderMimeType + "'"
	}
	q := fmt.Sprintf("name = '%s' and '%s' in parents and %s and trashed = false",
		escapeDriveQuery(name), escapeDriveQuery(parentID), mimeClause)

	list, err := d.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, err
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

func (d *driveAdapter) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	f, err := d.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: driveFolderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return f.Id, nil
}

func (d *driveAdapter) CreateFile(ctx context.Context, parentID, name string, data []byte) error {
	_, err := d.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(bytes.NewReader(data)).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	return err
}

func (d *driveAdapter) UpdateFile(ctx context.Context, fileID string, data []byte) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

func (d *driveAdapter) Trash(ctx context.Context, fileID string) error {
	_, err := d.svc.Files.Update(fileID, &drive.File{Trashed: true}).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return err
}

// escapeDriveQuery escapes a literal for the Drive query language.
func escapeDriveQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

var _ TestCaseStorage = (*GDriveStorage)(nil)
