package pdftext

import (
	"testing"

	"github.com/dvloznov/statement-extractor/internal/chunker"
)

func TestJoinPages(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "Statement header\n01 Jul Coffee 3.25"},
		{Number: 3, Text: "02 Jul Rent 900.00"},
	}

	got := JoinPages(pages)
	want := "--- PAGE 1 ---\nStatement header\n01 Jul Coffee 3.25\n--- PAGE 3 ---\n02 Jul Rent 900.00"
	if got != want {
		t.Errorf("JoinPages() = %q, want %q", got, want)
	}

	chunks, ok := chunker.SplitPages(got, 1000)
	if !ok || len(chunks) != 2 {
		t.Errorf("SplitPages() on joined text = %v, %v; want 2 pages", chunks, ok)
	}
}

func TestJoinPages_Empty(t *testing.T) {
	if got := JoinPages(nil); got != "" {
		t.Errorf("JoinPages(nil) = %q, want empty", got)
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{name: "pdf header", data: []byte("%PDF-1.7\n%âãÏÓ"), want: true},
		{name: "leading newline", data: []byte("\n%PDF-1.4"), want: true},
		{name: "plain text", data: []byte("ACCOUNT_TYPE = SAVINGS"), want: false},
		{name: "empty", data: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPDF(tt.data); got != tt.want {
				t.Errorf("IsPDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromBytes_NotAPDF(t *testing.T) {
	if _, err := FromBytes([]byte("this is not a pdf")); err == nil {
		t.Error("FromBytes() error = nil, want error for non-PDF input")
	}
}

func TestFromFile_Missing(t *testing.T) {
	if _, err := FromFile("/nonexistent/statement.pdf"); err == nil {
		t.Error("FromFile() error = nil, want error for missing file")
	}
}
