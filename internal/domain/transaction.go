package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money relative to the account holder.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Source is the canonical account source recorded on a transaction.
type Source string

const (
	SourceCredit  Source = "credit"
	SourceDebit   Source = "debit"
	SourceSavings Source = "savings"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceCredit, SourceDebit, SourceSavings:
		return true
	}
	return false
}

// Field names shared by the extraction prompt, the record schema and
// candidate mappings.
const (
	FieldAmount          = "amount"
	FieldDescription     = "description"
	FieldCategory        = "category"
	FieldTransactionType = "transaction_type"
	FieldSource          = "source"
	FieldTimestamp       = "timestamp"
)

// CandidateFields lists every key a candidate mapping carries.
var CandidateFields = []string{
	FieldAmount,
	FieldDescription,
	FieldCategory,
	FieldTransactionType,
	FieldSource,
	FieldTimestamp,
}

// CandidateTransaction is the loosely typed mapping handed to downstream
// consumers. Amounts are json.Number so they stay exact.
type CandidateTransaction map[string]any

// Transaction is a structurally valid transaction produced by extraction.
// Business rules (non-zero amount, sign consistency) are checked separately
// by Validate.
type Transaction struct {
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category,omitempty"`
	TransactionType TransactionType `json:"transaction_type"`
	Source          Source          `json:"source"`
	Timestamp       string          `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/06",
	"01/02/2006",
}

// ParsedTimestamp interprets Timestamp using the layouts the extraction
// prompt and statement dates commonly produce.
func (t Transaction) ParsedTimestamp() (time.Time, error) {
	s := strings.TrimSpace(t.Timestamp)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParsedTimestamp: unrecognised timestamp %q", t.Timestamp)
}

// Candidate converts t back into the mapping shape. An empty category is
// reported as nil.
func (t Transaction) Candidate() CandidateTransaction {
	var category any
	if t.Category != "" {
		category = t.Category
	}
	return CandidateTransaction{
		FieldAmount:          json.Number(t.Amount.String()),
		FieldDescription:     t.Description,
		FieldCategory:        category,
		FieldTransactionType: string(t.TransactionType),
		FieldSource:          string(t.Source),
		FieldTimestamp:       t.Timestamp,
	}
}

// Candidates converts a slice of transactions.
func Candidates(txs []Transaction) []CandidateTransaction {
	out := make([]CandidateTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.Candidate())
	}
	return out
}
