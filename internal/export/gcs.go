// Package export ships pipeline output artifacts to optional external
// targets: a GCS bucket for the CSV files and a BigQuery table for the final
// merged frame.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
)

// UploadArtifacts uploads local files to gs://bucket/merges/<runID>/<name>.
// Application Default Credentials are assumed.
func UploadArtifacts(ctx context.Context, bucket, runID string, paths ...string) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	bkt := client.Bucket(bucket)
	for _, p := range paths {
		object := path.Join("merges", runID, filepath.Base(p))
		if err := uploadFile(ctx, bkt, object, p); err != nil {
			return err
		}
	}
	return nil
}

func uploadFile(ctx context.Context, bkt *storage.BucketHandle, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bkt.Object(object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %q to %q: %w", filePath, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", object, err)
	}
	return nil
}
