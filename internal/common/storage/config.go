package storage

import (
	"context"
	"fmt"
	"strings"
)

const (
	TypeLocal  = "local"
	TypeS3     = "s3"
	TypeR2     = "r2"
	TypeGDrive = "gdrive"
	TypeAzure  = "azure"
)

// Config selects and configures exactly one backend.
type Config struct {
	Type      string `yaml:"type"`
	Container string `yaml:"container"`

	Local  LocalConfig  `yaml:"local"`
	S3     S3Config     `yaml:"s3"`
	R2     R2Config     `yaml:"r2"`
	GDrive GDriveConfig `yaml:"gdrive"`
	Azure  AzureConfig  `yaml:"azure"`
}

// LocalConfig stores objects below BasePath/{container}.
type LocalConfig struct {
	BasePath string `yaml:"basePath"`
}

// Enabled reports whether a backend type is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Type) != ""
}

// New builds the backend named by cfg.Type. It is called once at startup;
// nothing else in the program inspects the concrete backend type.
func New(ctx context.Context, cfg Config) (TestCaseStorage, error) {
	var (
		backend TestCaseStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeLocal:
		backend, err = wrap(NewLocalStorage(cfg.Local))
	case TypeS3:
		backend, err = wrap(NewS3Storage(ctx, cfg.S3))
	case TypeR2:
		backend, err = wrap(NewR2Storage(cfg.R2))
	case TypeGDrive:
		backend, err = wrap(NewGDriveStorage(ctx, cfg.GDrive))
	case TypeAzure:
		backend, err = wrap(NewAzureStorage(cfg.Azure))
	case "":
		return nil, fmt.Errorf("storage type is required")
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// wrap keeps a failed constructor from leaking a typed nil interface.
func wrap[T TestCaseStorage](backend T, err error) (TestCaseStorage, error) {
	if err != nil {
		return nil, err
	}
	return backend, nil
}
