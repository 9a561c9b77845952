// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish uploads written CSV files to Google Cloud Storage.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/pdiddy/pubmed-harvester/pkg/types"
)

const csvContentType = "text/csv; charset=utf-8"

// Bucket opens writers for objects in one bucket.
type Bucket interface {
	NewWriter(ctx context.Context, object, contentType string) io.WriteCloser
}

// Publisher copies local files into a bucket under a fixed prefix.
type Publisher struct {
	bucket Bucket
	name   string
	prefix string
	closer io.Closer
}

// New creates a Publisher over an existing Bucket.
func New(bucket Bucket, bucketName, prefix string) *Publisher {
	return &Publisher{bucket: bucket, name: bucketName, prefix: prefix}
}

// NewGCS connects to Cloud Storage with application default credentials.
func NewGCS(ctx context.Context, cfg types.GCSConfig) (*Publisher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	p := New(gcsBucket{client.Bucket(cfg.Bucket)}, cfg.Bucket, cfg.Prefix)
	p.closer = client
	return p, nil
}

// Close releases the storage client, if any.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// ObjectName returns the object a local path is published to.
func (p *Publisher) ObjectName(path string) string {
	return p.prefix + filepath.Base(path)
}

// Publish uploads the file at path and returns its gs:// URI. A failed
// copy cancels the writer's context so no partial object is committed.
func (p *Publisher) Publish(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	object := p.ObjectName(path)
	w := p.bucket.NewWriter(ctx, object, csvContentType)
	if _, err := io.Copy(w, f); err != nil {
		cancel()
		return "", fmt.Errorf("writing object data: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing object writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", p.name, object), nil
}

type gcsBucket struct {
	h *storage.BucketHandle
}

func (b gcsBucket) NewWriter(ctx context.Context, object, contentType string) io.WriteCloser {
	w := b.h.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	return w
}
