package bigquery

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/logger"
)

// PersistResult counts what happened to a run's candidates.
type PersistResult struct {
	Inserted int
	Skipped  int
}

// TransactionInserter is the write side PersistCandidates needs.
type TransactionInserter interface {
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error
}

// PersistCandidates applies the business rules to each candidate and inserts
// the ones that pass. Rejected candidates are logged and counted; they never
// fail the batch.
func PersistCandidates(ctx context.Context, inserter TransactionInserter, candidates []domain.CandidateTransaction, documentID, runID string, now time.Time) (PersistResult, error) {
	log := logger.FromContext(ctx)

	var result PersistResult
	rows := make([]*TransactionRow, 0, len(candidates))
	for i, c := range candidates {
		tx, err := domain.ValidateCandidate(c)
		if err == nil {
			var row *TransactionRow
			row, err = NewTransactionRow(tx, documentID, runID, now)
			if err == nil {
				rows = append(rows, row)
				continue
			}
		}
		result.Skipped++
		log.Warn().
			Err(err).
			Int("candidate", i).
			Str("document_id", documentID).
			Msg("skipping transaction that failed validation")
	}

	if err := inserter.InsertTransactions(ctx, rows); err != nil {
		return result, fmt.Errorf("PersistCandidates: %w", err)
	}
	result.Inserted = len(rows)
	return result, nil
}
