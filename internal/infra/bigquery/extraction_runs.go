package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Extraction run statuses.
const (
	RunStatusRunning = "RUNNING"
	RunStatusSuccess = "SUCCESS"
	RunStatusFailed  = "FAILED"
)

type ExtractionRunRow struct {
	RunID      string `bigquery:"run_id"`      // REQUIRED
	DocumentID string `bigquery:"document_id"` // REQUIRED
	SourceURI  string `bigquery:"source_uri"`  // NULLABLE, file path or gs:// URI
	Provider   string `bigquery:"provider"`    // NULLABLE

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string `bigquery:"status"`        // REQUIRED
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	Inserted bigquery.NullInt64 `bigquery:"inserted_count"` // NULLABLE
	Skipped  bigquery.NullInt64 `bigquery:"skipped_count"`  // NULLABLE
}
