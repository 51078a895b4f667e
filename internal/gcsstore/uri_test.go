package gcsstore

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "nested object", uri: "gs://statements/2024/07/barclays.pdf", wantBucket: "statements", wantObject: "2024/07/barclays.pdf"},
		{name: "top level object", uri: "gs://statements/file.txt", wantBucket: "statements", wantObject: "file.txt"},
		{name: "wrong scheme", uri: "s3://statements/file.txt", wantErr: true},
		{name: "bucket only", uri: "gs://statements", wantErr: true},
		{name: "empty object", uri: "gs://statements/", wantErr: true},
		{name: "local path", uri: "/tmp/file.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilenameFromURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/file.pdf": "file.pdf",
		"gs://bucket/file.pdf":        "file.pdf",
		"gs://bucket":                 "bucket",
	}
	for uri, want := range tests {
		if got := FilenameFromURI(uri); got != want {
			t.Errorf("FilenameFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestURIAndObjectName(t *testing.T) {
	if got := URI("b", "/debug/x.txt"); got != "gs://b/debug/x.txt" {
		t.Errorf("URI() = %q", got)
	}
	if got := ObjectName("/debug/", "x.txt"); got != "debug/x.txt" {
		t.Errorf("ObjectName() = %q", got)
	}
	if got := ObjectName("", "x.txt"); got != "x.txt" {
		t.Errorf("ObjectName(empty prefix) = %q", got)
	}
	if !IsURI("gs://b/o") || IsURI("statement.pdf") {
		t.Error("IsURI() misclassified input")
	}
}
