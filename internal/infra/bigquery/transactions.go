package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	DocumentID string `bigquery:"document_id"` // REQUIRED
	RunID      string `bigquery:"run_id"`      // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Timestamp       string     `bigquery:"raw_timestamp"`    // REQUIRED, as extracted

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	Description     string              `bigquery:"description"`      // REQUIRED
	Category        bigquery.NullString `bigquery:"category"`         // NULLABLE
	TransactionType string              `bigquery:"transaction_type"` // REQUIRED income|expense
	Source          string              `bigquery:"source"`           // REQUIRED credit|debit|savings

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow maps a validated transaction to a row. The timestamp
// must parse, since transaction_date is required.
func NewTransactionRow(tx domain.Transaction, documentID, runID string, now time.Time) (*TransactionRow, error) {
	ts, err := tx.ParsedTimestamp()
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRow: %w", err)
	}

	row := &TransactionRow{
		TransactionID:   uuid.NewString(),
		DocumentID:      documentID,
		RunID:           runID,
		TransactionDate: civil.DateOf(ts),
		Timestamp:       tx.Timestamp,
		Amount:          tx.Amount.Rat(),
		Description:     tx.Description,
		TransactionType: string(tx.TransactionType),
		Source:          string(tx.Source),
		CreatedTS:       now,
	}
	if tx.Category != "" {
		row.Category = bigquery.NullString{StringVal: tx.Category, Valid: true}
	}
	return row, nil
}

// Transaction converts the row back into the domain type.
func (r *TransactionRow) Transaction() domain.Transaction {
	tx := domain.Transaction{
		Amount:          ratToDecimal(r.Amount),
		Description:     r.Description,
		TransactionType: domain.TransactionType(r.TransactionType),
		Source:          domain.Source(r.Source),
		Timestamp:       r.Timestamp,
	}
	if r.Category.Valid {
		tx.Category = r.Category.StringVal
	}
	return tx
}

// NUMERIC columns carry at most 9 fractional digits.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		return decimal.Zero
	}
	return d
}
