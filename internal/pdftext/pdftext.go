// Package pdftext extracts plain text from statement PDFs, one page at a
// time, and marks page boundaries with "--- PAGE n ---" lines.
package pdftext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/chunker"
	"github.com/ledongthuc/pdf"
)

// Page is the text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// IsPDF reports whether data starts with the PDF file signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-"))
}

// FromFile extracts the marked-up text of the PDF at path.
func FromFile(path string) (string, error) {
	pages, err := PagesFromFile(path)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

// FromBytes extracts the marked-up text of an in-memory PDF.
func FromBytes(data []byte) (string, error) {
	pages, err := PagesFromBytes(data)
	if err != nil {
		return "", err
	}
	return JoinPages(pages), nil
}

// PagesFromFile returns the text of each page of the PDF at path.
func PagesFromFile(path string) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PagesFromFile: PDF library crashed: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("PagesFromFile: open %q: %w", path, err)
	}
	defer f.Close()

	return readPages(r)
}

// PagesFromBytes returns the text of each page of an in-memory PDF.
func PagesFromBytes(data []byte) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PagesFromBytes: PDF library crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("PagesFromBytes: %w", err)
	}
	return readPages(r)
}

func readPages(r *pdf.Reader) ([]Page, error) {
	n := r.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text := pageRows(p)
		if text == "" {
			text = pagePlainText(p)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}

// pageRows rebuilds the page line by line, which keeps statement columns on
// one line.
func pageRows(p pdf.Page) string {
	rows, err := p.GetTextByRow()
	if err != nil {
		return ""
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, w := range row.Content {
			words = append(words, w.S)
		}
		if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func pagePlainText(p pdf.Page) string {
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err := p.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// JoinPages renders pages as one document, each page preceded by its
// "--- PAGE n ---" marker.
func JoinPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n%s %d ---\n", chunker.PageMarker, p.Number)
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
