package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
)

// TransactionRepository reads and writes extracted transactions.
type TransactionRepository interface {
	TransactionInserter
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error)
}

// RunRepository tracks extraction runs and their archived stage outputs.
type RunRepository interface {
	StartExtractionRun(ctx context.Context, documentID, sourceURI, provider string) (string, error)
	MarkExtractionRunFailed(ctx context.Context, runID string, runErr error)
	MarkExtractionRunSucceeded(ctx context.Context, runID string, result PersistResult) error
	InsertStageOutput(ctx context.Context, row *StageOutputRow) error
}

// Repository implements both repositories against one dataset. It holds a
// shared BigQuery client to avoid creating a connection per operation.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

var (
	_ TransactionRepository = (*Repository)(nil)
	_ RunRepository         = (*Repository)(nil)
)

// NewRepository creates a Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *Repository) InsertTransactions(ctx context.Context, rows []*TransactionRow) error {
	return InsertTransactionsWithClient(ctx, r.client, r.dataset, rows)
}

func (r *Repository) QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, r.client, r.dataset, startDate, endDate)
}

func (r *Repository) StartExtractionRun(ctx context.Context, documentID, sourceURI, provider string) (string, error) {
	return StartExtractionRunWithClient(ctx, r.client, r.dataset, documentID, sourceURI, provider)
}

func (r *Repository) MarkExtractionRunFailed(ctx context.Context, runID string, runErr error) {
	MarkExtractionRunFailedWithClient(ctx, r.client, r.dataset, runID, runErr)
}

func (r *Repository) MarkExtractionRunSucceeded(ctx context.Context, runID string, result PersistResult) error {
	return MarkExtractionRunSucceededWithClient(ctx, r.client, r.dataset, runID, result)
}

func (r *Repository) InsertStageOutput(ctx context.Context, row *StageOutputRow) error {
	return InsertStageOutputWithClient(ctx, r.client, r.dataset, row)
}

// Migrate applies pending embedded migrations and returns the ones it ran.
func (r *Repository) Migrate(ctx context.Context, appliedBy string) ([]Migration, error) {
	return MigrateWithClient(ctx, r.client, r.dataset, appliedBy)
}

// PendingMigrations lists embedded migrations not yet applied to the dataset.
func (r *Repository) PendingMigrations(ctx context.Context) ([]Migration, error) {
	all, err := EmbeddedMigrations(r.client.Project(), r.dataset)
	if err != nil {
		return nil, err
	}
	applied, err := AppliedMigrationsWithClient(ctx, r.client, r.dataset)
	if err != nil {
		return nil, err
	}
	return PendingMigrations(all, applied), nil
}
