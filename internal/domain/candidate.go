package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FromCandidate decodes a mapping into a Transaction, enforcing presence of
// every field, a numeric amount and the type/source enums. It does not apply
// the business rules in Validate.
func FromCandidate(c CandidateTransaction) (Transaction, error) {
	for _, key := range CandidateFields {
		if _, ok := c[key]; !ok {
			return Transaction{}, fmt.Errorf("missing required field %q", key)
		}
	}

	amount, err := getDecimalField(c, FieldAmount)
	if err != nil {
		return Transaction{}, err
	}
	desc, err := getStringField(c, FieldDescription)
	if err != nil {
		return Transaction{}, err
	}
	category, err := getOptionalStringField(c, FieldCategory)
	if err != nil {
		return Transaction{}, err
	}
	txType, err := getStringField(c, FieldTransactionType)
	if err != nil {
		return Transaction{}, err
	}
	source, err := getStringField(c, FieldSource)
	if err != nil {
		return Transaction{}, err
	}
	timestamp, err := getStringField(c, FieldTimestamp)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		Amount:          amount,
		Description:     strings.TrimSpace(desc),
		TransactionType: TransactionType(strings.TrimSpace(txType)),
		Source:          Source(strings.TrimSpace(source)),
		Timestamp:       strings.TrimSpace(timestamp),
	}
	if category != nil {
		tx.Category = *category
	}

	if !tx.TransactionType.Valid() {
		return Transaction{}, fmt.Errorf("field %q has value %q, want income or expense", FieldTransactionType, txType)
	}
	if !tx.Source.Valid() {
		return Transaction{}, fmt.Errorf("field %q has value %q, want credit, debit or savings", FieldSource, source)
	}

	return tx, nil
}

func getStringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case string:
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getOptionalStringField(m map[string]any, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		return &s, nil
	default:
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
}

func getDecimalField(m map[string]any, key string) (decimal.Decimal, error) {
	v, ok := m[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing required field %q", key)
	}
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case decimal.Decimal:
		return val, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
