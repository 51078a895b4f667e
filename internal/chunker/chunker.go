// Package chunker splits statement text into bounded pieces for the
// transformer stages.
//
// Sizes are measured in characters (runes). No function ever cuts inside a
// line: a single line longer than the limit is emitted whole as its own
// chunk.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// PageMarker starts every page header written by PDF text extraction,
// e.g. "--- PAGE 3 ---".
const PageMarker = "--- PAGE"

const (
	paragraphSep = "\n\n"
	lineSep      = "\n"
)

// Split divides text into chunks of at most maxSize characters.
//
// When the text contains page markers and every page fits, one chunk per
// page is returned. Otherwise paragraphs are packed greedily, and a paragraph
// that is too large on its own is packed line by line.
// A maxSize of zero or less means unbounded.
func Split(text string, maxSize int) []string {
	if pages, ok := SplitPages(text, maxSize); ok {
		return pages
	}
	return SplitParagraphs(text, maxSize)
}

// SplitPages splits text at page markers. The second result is false when
// the text has no markers or when any page exceeds maxSize.
// Text before the first marker becomes its own chunk if it is not blank.
func SplitPages(text string, maxSize int) ([]string, bool) {
	if !strings.Contains(text, PageMarker) {
		return nil, false
	}

	parts := strings.Split(text, PageMarker)
	pages := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = PageMarker + part
		}
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if exceeds(part, maxSize) {
			return nil, false
		}
		pages = append(pages, part)
	}
	return pages, true
}

// SplitParagraphs packs blank-line separated paragraphs greedily into chunks
// joined by "\n\n". Paragraphs larger than maxSize are split into lines,
// which are packed with "\n" and continue the current chunk afterwards.
func SplitParagraphs(text string, maxSize int) []string {
	var (
		chunks  []string
		current string
	)

	flush := func() {
		if s := strings.TrimSpace(current); s != "" {
			chunks = append(chunks, s)
		}
		current = ""
	}

	for _, para := range strings.Split(text, paragraphSep) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		candidate := para
		if current != "" {
			candidate = current + paragraphSep + para
		}
		if !exceeds(candidate, maxSize) {
			current = candidate
			continue
		}

		flush()
		if !exceeds(para, maxSize) {
			current = para
			continue
		}

		for _, line := range strings.Split(para, lineSep) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			candidate := line
			if current != "" {
				candidate = current + lineSep + line
			}
			if !exceeds(candidate, maxSize) {
				current = candidate
				continue
			}
			flush()
			current = line
		}
	}
	flush()

	if chunks == nil {
		return []string{}
	}
	return chunks
}

// Records splits text on delimiter and re-prefixes each record with it.
// Non-blank text before the first delimiter is kept as a leading record.
func Records(text, delimiter string) []string {
	if delimiter == "" {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return []string{}
	}

	parts := strings.Split(text, delimiter)
	records := make([]string, 0, len(parts))
	for i, part := range parts {
		if i == 0 {
			if s := strings.TrimSpace(part); s != "" {
				records = append(records, s)
			}
			continue
		}
		records = append(records, strings.TrimSpace(delimiter+part))
	}
	return records
}

// GroupRecords packs the records of text into groups of at most perGroup
// records, joined by "\n\n". A perGroup of zero or less puts every record
// in one group.
func GroupRecords(text, delimiter string, perGroup int) []string {
	records := Records(text, delimiter)
	if len(records) == 0 {
		return []string{}
	}
	if perGroup <= 0 {
		perGroup = len(records)
	}

	groups := make([]string, 0, (len(records)+perGroup-1)/perGroup)
	for start := 0; start < len(records); start += perGroup {
		end := start + perGroup
		if end > len(records) {
			end = len(records)
		}
		groups = append(groups, strings.Join(records[start:end], paragraphSep))
	}
	return groups
}

// Size returns the length of s in characters.
func Size(s string) int {
	return utf8.RuneCountInString(s)
}

func exceeds(s string, maxSize int) bool {
	return maxSize > 0 && Size(s) > maxSize
}
