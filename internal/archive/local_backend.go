package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prappser/gallery_server/internal/apperr"
)

type LocalBackend struct {
	basePath string
}

func NewLocalBackend(config *BackendConfig) (*LocalBackend, error) {
	basePath := config.LocalPath
	if basePath == "" {
		basePath = "./files"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	return &LocalBackend{basePath: basePath}, nil
}

func (b *LocalBackend) Publish(ctx context.Context, name, srcPath string) error {
	return os.Rename(srcPath, filepath.Join(b.basePath, name))
}

func (b *LocalBackend) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	file, err := os.Open(filepath.Join(b.basePath, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, apperr.NotFound("ZIP file does not exist, please create it first")
		}
		return nil, 0, apperr.IO(err, "failed to open ZIP file")
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, apperr.IO(err, "failed to stat ZIP file")
	}

	return file, info.Size(), nil
}

// TempDir is the artifact directory itself, so Publish is a same-filesystem
// rename.
func (b *LocalBackend) TempDir() string {
	return b.basePath
}
