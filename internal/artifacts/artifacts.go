// Package artifacts stores raw model responses that could not be parsed so
// they can be inspected offline.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/statement-extractor/internal/config"
	"github.com/dvloznov/statement-extractor/internal/gcsstore"
)

// Sink persists a named artifact. Writing an existing name replaces it.
type Sink interface {
	Write(ctx context.Context, name, content string) error
}

// FileSink writes artifacts as files under Dir.
type FileSink struct {
	Dir string
}

// Write implements Sink.
func (s FileSink) Write(ctx context.Context, name, content string) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("FileSink: create dir %q: %w", dir, err)
	}
	p := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fmt.Errorf("FileSink: write %q: %w", p, err)
	}
	return nil
}

// ObjectWriter is the part of gcsstore.StorageService a GCSSink needs.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// GCSSink writes artifacts to gs://Bucket/Prefix/<name>.
type GCSSink struct {
	Storage ObjectWriter
	Bucket  string
	Prefix  string
}

// Write implements Sink.
func (s GCSSink) Write(ctx context.Context, name, content string) error {
	object := gcsstore.ObjectName(s.Prefix, name)
	if err := s.Storage.WriteObject(ctx, s.Bucket, object, []byte(content), "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("GCSSink: %w", err)
	}
	return nil
}

// Nop discards artifacts.
type Nop struct{}

// Write implements Sink.
func (Nop) Write(context.Context, string, string) error { return nil }

// FromConfig picks a GCS sink when a bucket is configured and storage is
// available, and a file sink otherwise.
func FromConfig(cfg config.PipelineConfig, storage ObjectWriter) Sink {
	if cfg.ArtifactBucket != "" && storage != nil {
		return GCSSink{Storage: storage, Bucket: cfg.ArtifactBucket, Prefix: cfg.ArtifactPrefix}
	}
	return FileSink{Dir: cfg.ArtifactDir}
}

var (
	_ Sink = FileSink{}
	_ Sink = GCSSink{}
	_ Sink = Nop{}
)
