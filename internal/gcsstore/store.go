// Package gcsstore reads and writes statement files and debug artifacts in
// Google Cloud Storage.
package gcsstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
)

// StorageService is the storage surface used by ingestion and the CLI.
type StorageService interface {
	// UploadFile uploads a local file to bucket under objectName.
	UploadFile(ctx context.Context, bucket, objectName, filePath string) error

	// Fetch downloads the object bytes for a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// WriteObject stores data under objectName, replacing any existing object.
	WriteObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// Store implements StorageService with one shared client.
// It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
type Store struct {
	client        *storage.Client
	uploadTimeout time.Duration
}

// NewStore creates a storage client.
func NewStore(ctx context.Context) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: create storage client: %w", err)
	}
	return &Store{client: client, uploadTimeout: 2 * time.Minute}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// UploadFile implements StorageService.
func (s *Store) UploadFile(ctx context.Context, bucket, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	if err := s.write(ctx, bucket, objectName, f, ""); err != nil {
		return fmt.Errorf("UploadFile: %w", err)
	}
	return nil
}

// WriteObject implements StorageService.
func (s *Store) WriteObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	if err := s.write(ctx, bucket, objectName, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("WriteObject: %w", err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, bucket, objectName string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer for %s: %w", URI(bucket, objectName), err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", URI(bucket, objectName), err)
	}
	return nil
}

// Fetch implements StorageService.
func (s *Store) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

var _ StorageService = (*Store)(nil)
