package archive

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCS writes snapshots to a Google Cloud Storage bucket. Authentication uses
// Application Default Credentials.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS initializes the client and verifies the bucket is reachable, so a
// misconfigured bucket fails at startup rather than mid-run.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to get GCS bucket %q attributes: %w", bucket, err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put implements Store.
func (g *GCS) Put(ctx context.Context, objectName string, data []byte) (string, error) {
	if g.prefix != "" {
		objectName = g.prefix + "/" + objectName
	}
	wc := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to write GCS object %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS object %s: %w", objectName, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, objectName), nil
}

// Close implements Store.
func (g *GCS) Close() error {
	return g.client.Close()
}
