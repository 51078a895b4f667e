package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	jsonFenceRe = regexp.MustCompile("(?is)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*(.*?)```")
	arrayRe     = regexp.MustCompile(`(?s)\[.*\]`)
)

// RecoverJSONArray parses a JSON array out of a model response. It tries, in
// order: the whole response, the first ```json fence, the first fence of any
// kind, and the span from the first '[' to the last ']'. The first candidate
// that decodes to an array wins. Numbers are kept as json.Number.
func RecoverJSONArray(raw string) ([]any, error) {
	candidates := []string{raw}
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := anyFenceRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := arrayRe.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, c := range candidates {
		arr, err := decodeArray(c)
		if err == nil {
			return arr, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("RecoverJSONArray: %w", lastErr)
}

func decodeArray(s string) ([]any, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("JSON value is %T, not an array", v)
	}
	return arr, nil
}
