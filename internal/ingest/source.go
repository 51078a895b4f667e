package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/gcsstore"
	"github.com/dvloznov/statement-extractor/internal/pdftext"
)

// ErrNoText is returned when a document yields no text at all.
var ErrNoText = errors.New("no text extracted from document")

// Fetcher downloads gs:// objects. *gcsstore.Store satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ReadSource returns the bytes at source, a local path or a gs:// URI.
// fetcher may be nil when only local files are read.
func ReadSource(ctx context.Context, fetcher Fetcher, source string) ([]byte, error) {
	if gcsstore.IsURI(source) {
		if fetcher == nil {
			return nil, fmt.Errorf("ReadSource: %s: no object storage configured", source)
		}
		return fetcher.Fetch(ctx, source)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("ReadSource: %w", err)
	}
	return data, nil
}

// DocumentText turns document bytes into statement text. PDFs go through
// pdftext with page markers; anything else is taken as UTF-8 text.
func DocumentText(content []byte) (text string, pages int, err error) {
	if pdftext.IsPDF(content) {
		pp, err := pdftext.PagesFromBytes(content)
		if err != nil {
			return "", 0, fmt.Errorf("DocumentText: %w", err)
		}
		text, pages = pdftext.JoinPages(pp), len(pp)
	} else {
		text = string(content)
	}

	if strings.TrimSpace(text) == "" {
		return "", pages, ErrNoText
	}
	return text, pages, nil
}

// LoadText reads source and extracts its text in one step.
func LoadText(ctx context.Context, fetcher Fetcher, source string) (string, error) {
	content, err := ReadSource(ctx, fetcher, source)
	if err != nil {
		return "", err
	}
	text, _, err := DocumentText(content)
	return text, err
}
