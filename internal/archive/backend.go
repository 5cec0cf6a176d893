package archive

import (
	"context"
	"io"
)

// Backend stores published artifacts. Publish must make the artifact visible
// in one step so that readers never observe a partial archive.
type Backend interface {
	// Publish moves the finished archive at srcPath to name, replacing any
	// previous artifact.
	Publish(ctx context.Context, name, srcPath string) error
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// TempDir is where archives are assembled before Publish.
	TempDir() string
}

type BackendType string

const (
	BackendTypeLocal BackendType = "local"
	BackendTypeS3    BackendType = "s3"
)

type BackendConfig struct {
	Type        BackendType `mapstructure:"backend"`
	LocalPath   string      `mapstructure:"local_path"`
	S3Endpoint  string      `mapstructure:"s3_endpoint"`
	S3Bucket    string      `mapstructure:"s3_bucket"`
	S3AccessKey string      `mapstructure:"s3_access_key"`
	S3SecretKey string      `mapstructure:"s3_secret_key"`
	S3Region    string      `mapstructure:"s3_region"`
	S3UseSSL    bool        `mapstructure:"s3_use_ssl"`
}

func NewBackend(config *BackendConfig) (Backend, error) {
	switch config.Type {
	case BackendTypeS3:
		return NewS3Backend(config)
	default:
		return NewLocalBackend(config)
	}
}
