package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/joaovfcarvalho/robo-bordero/internal/gcp"
)

// CSVExporter publishes a local store file where downstream consumers can
// read it and returns its URI. A missing local file is reported with an error
// wrapping os.ErrNotExist.
type CSVExporter interface {
	Export(ctx context.Context, localPath string) (string, error)
}

// GCSExporter copies store files to gs://<bucket>/<prefix>/<file name>,
// replacing the previous snapshot.
type GCSExporter struct {
	bucket     *storage.BucketHandle
	bucketName string
	prefix     string
}

func NewGCSExporter(client *storage.Client, bucketName, prefix string) *GCSExporter {
	if prefix == "" {
		prefix = "csv"
	}
	return &GCSExporter{bucket: client.Bucket(bucketName), bucketName: bucketName, prefix: prefix}
}

func (e *GCSExporter) Export(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for export: %w", localPath, err)
	}
	defer f.Close()

	objectName := path.Join(e.prefix, filepath.Base(localPath))
	if err := gcp.OverwriteGCSObject(ctx, e.bucket, objectName, "text/csv", f); err != nil {
		return "", err
	}
	return gcsURI(e.bucketName, objectName), nil
}

func gcsURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
