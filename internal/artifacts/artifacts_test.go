package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/statement-extractor/internal/config"
)

// MockObjectWriter is a mock implementation of ObjectWriter for testing.
type MockObjectWriter struct {
	WriteObjectFunc func(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

func (m *MockObjectWriter) WriteObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	if m.WriteObjectFunc != nil {
		return m.WriteObjectFunc(ctx, bucket, objectName, data, contentType)
	}
	return nil
}

func TestFileSink_WriteOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	sink := FileSink{Dir: dir}
	ctx := context.Background()

	if err := sink.Write(ctx, "debug_stage2_response.txt", "first"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := sink.Write(ctx, "debug_stage2_response.txt", "second"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "debug_stage2_response.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}
}

func TestFileSink_NameCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	sink := FileSink{Dir: dir}

	if err := sink.Write(context.Background(), "../escape.txt", "x"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err != nil {
		t.Errorf("expected artifact inside dir: %v", err)
	}
}

func TestGCSSink_Write(t *testing.T) {
	var gotBucket, gotObject, gotData string
	storage := &MockObjectWriter{
		WriteObjectFunc: func(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
			gotBucket, gotObject, gotData = bucket, objectName, string(data)
			return nil
		},
	}
	sink := GCSSink{Storage: storage, Bucket: "artifacts", Prefix: "debug/"}

	if err := sink.Write(context.Background(), "debug_stage2_abc.txt", "raw"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if gotBucket != "artifacts" || gotObject != "debug/debug_stage2_abc.txt" || gotData != "raw" {
		t.Errorf("WriteObject got (%q, %q, %q)", gotBucket, gotObject, gotData)
	}
}

func TestGCSSink_WriteError(t *testing.T) {
	boom := errors.New("permission denied")
	sink := GCSSink{
		Storage: &MockObjectWriter{
			WriteObjectFunc: func(context.Context, string, string, []byte, string) error { return boom },
		},
		Bucket: "b",
	}
	if err := sink.Write(context.Background(), "x", "y"); !errors.Is(err, boom) {
		t.Errorf("Write() error = %v, want %v", err, boom)
	}
}

func TestFromConfig(t *testing.T) {
	storage := &MockObjectWriter{}

	tests := []struct {
		name    string
		cfg     config.PipelineConfig
		storage ObjectWriter
		wantGCS bool
	}{
		{name: "bucket and storage", cfg: config.PipelineConfig{ArtifactBucket: "b"}, storage: storage, wantGCS: true},
		{name: "bucket without storage", cfg: config.PipelineConfig{ArtifactBucket: "b", ArtifactDir: "d"}},
		{name: "no bucket", cfg: config.PipelineConfig{ArtifactDir: "d"}, storage: storage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := FromConfig(tt.cfg, tt.storage)
			_, isGCS := sink.(GCSSink)
			if isGCS != tt.wantGCS {
				t.Errorf("FromConfig() = %T, wantGCS %v", sink, tt.wantGCS)
			}
		})
	}
}
