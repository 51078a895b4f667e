package pipeline

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRecoverJSONArray(t *testing.T) {
	const arr = `[{"amount": -10.5, "description": "Netflix"}, {"amount": 2000, "description": "Salary"}]`

	want, err := RecoverJSONArray(arr)
	if err != nil {
		t.Fatalf("RecoverJSONArray(raw) error = %v", err)
	}
	if len(want) != 2 {
		t.Fatalf("RecoverJSONArray(raw) returned %d elements, want 2", len(want))
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "json fence", raw: "```json\n" + arr + "\n```"},
		{name: "uppercase json fence", raw: "```JSON\n" + arr + "\n```"},
		{name: "json fence with prose", raw: "Here are the transactions:\n```json\n" + arr + "\n```\nLet me know if you need more."},
		{name: "untagged fence", raw: "```\n" + arr + "\n```"},
		{name: "other tag fence", raw: "```javascript\n" + arr + "\n```"},
		{name: "bare array in prose", raw: "Sure! " + arr + " Hope this helps."},
		{name: "surrounding whitespace", raw: "\n\n  " + arr + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RecoverJSONArray(tt.raw)
			if err != nil {
				t.Fatalf("RecoverJSONArray() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("RecoverJSONArray() = %v, want %v", got, want)
			}
		})
	}
}

func TestRecoverJSONArray_KeepsNumbersExact(t *testing.T) {
	got, err := RecoverJSONArray(`[{"amount": 0.1}, {"amount": 12345678901234567890.01}]`)
	if err != nil {
		t.Fatalf("RecoverJSONArray() error = %v", err)
	}
	first := got[0].(map[string]any)["amount"]
	if n, ok := first.(json.Number); !ok || n.String() != "0.1" {
		t.Errorf("amount = %#v, want json.Number(0.1)", first)
	}
	second := got[1].(map[string]any)["amount"].(json.Number)
	if second.String() != "12345678901234567890.01" {
		t.Errorf("amount = %s, want exact digits", second)
	}
}

func TestRecoverJSONArray_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "prose only", raw: "I could not find any transactions in this text."},
		{name: "object", raw: `{"amount": 1}`},
		{name: "truncated array", raw: `[{"amount": 1}, {"amount":`},
		{name: "fenced object", raw: "```json\n{\"amount\": 1}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := RecoverJSONArray(tt.raw); err == nil {
				t.Errorf("RecoverJSONArray() = %v, want error", got)
			}
		})
	}
}

func TestRecoverJSONArray_EmptyArray(t *testing.T) {
	got, err := RecoverJSONArray("```json\n[]\n```")
	if err != nil {
		t.Fatalf("RecoverJSONArray() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecoverJSONArray() = %v, want empty", got)
	}
}
