package archive

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prappser/gallery_server/internal/apperr"
)

// S3Backend keeps artifacts in an object store bucket. A single PutObject is
// atomic to readers, which satisfies the Publish contract.
type S3Backend struct {
	client *minio.Client
	bucket string
}

func NewS3Backend(config *BackendConfig) (*S3Backend, error) {
	client, err := minio.New(config.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.S3AccessKey, config.S3SecretKey, ""),
		Secure: config.S3UseSSL,
		Region: config.S3Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, config.S3Bucket)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := client.MakeBucket(ctx, config.S3Bucket, minio.MakeBucketOptions{Region: config.S3Region}); err != nil {
			return nil, err
		}
	}

	return &S3Backend{
		client: client,
		bucket: config.S3Bucket,
	}, nil
}

func (b *S3Backend) Publish(ctx context.Context, name, srcPath string) error {
	defer os.Remove(srcPath)

	_, err := b.client.FPutObject(ctx, b.bucket, name, srcPath, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	return err
}

func (b *S3Backend) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, apperr.IO(err, "failed to open ZIP file")
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, apperr.NotFound("ZIP file does not exist, please create it first")
		}
		return nil, 0, apperr.IO(err, "failed to stat ZIP file")
	}

	return obj, info.Size, nil
}

func (b *S3Backend) TempDir() string {
	return os.TempDir()
}
