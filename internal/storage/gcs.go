// Package storage uploads generated report files to Google Cloud Storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

const uploadTimeout = 2 * time.Minute

// UploadFile uploads a local file to a GCS bucket under the given object
// name. Application Default Credentials must be configured.
func UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("storage: open file %q: %w", filePath, err)
	}
	defer f.Close()
	return upload(ctx, bucketName, objectName, f)
}

// UploadBytes uploads an in-memory payload to a GCS bucket.
func UploadBytes(ctx context.Context, bucketName, objectName string, data []byte) error {
	return upload(ctx, bucketName, objectName, bytes.NewReader(data))
}

func upload(ctx context.Context, bucketName, objectName string, r io.Reader) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("storage: create client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write object %s/%s: %w", bucketName, objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: finalize object %s/%s: %w", bucketName, objectName, err)
	}
	return nil
}
