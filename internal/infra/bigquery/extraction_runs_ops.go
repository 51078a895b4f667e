package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/google/uuid"
)

const (
	extractionRunsTable = "extraction_runs"
	maxErrorMessageLen  = 2000
)

// runDML executes a parameterised DML statement and waits for it.
func runDML(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	q := client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// StartExtractionRunWithClient inserts a RUNNING row into
// <dataset>.extraction_runs and returns the generated run_id.
func StartExtractionRunWithClient(ctx context.Context, client *bigquery.Client, dataset, documentID, sourceURI, provider string) (string, error) {
	runID := uuid.NewString()

	err := runDML(ctx, client, fmt.Sprintf(`
		INSERT %s (
			run_id,
			document_id,
			source_uri,
			provider,
			started_ts,
			status
		)
		VALUES (
			@run_id,
			@document_id,
			@source_uri,
			@provider,
			@started_ts,
			@status
		)
	`, tableRef(client, dataset, extractionRunsTable)), []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "document_id", Value: documentID},
		{Name: "source_uri", Value: sourceURI},
		{Name: "provider", Value: provider},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: RunStatusRunning},
	})
	if err != nil {
		return "", fmt.Errorf("StartExtractionRun: %w", err)
	}
	return runID, nil
}

// MarkExtractionRunFailedWithClient sets status=FAILED, finished_ts and
// error_message. Failures are logged, not returned, since callers are
// already handling an error.
func MarkExtractionRunFailedWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		if len(errMsg) > maxErrorMessageLen {
			errMsg = errMsg[:maxErrorMessageLen]
		}
	}

	err := runDML(ctx, client, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, tableRef(client, dataset, extractionRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkExtractionRunFailed: update failed")
	}
}

// MarkExtractionRunSucceededWithClient sets status=SUCCESS, finished_ts and
// the persisted counts, and clears error_message.
func MarkExtractionRunSucceededWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, result PersistResult) error {
	err := runDML(ctx, client, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    inserted_count = @inserted,
		    skipped_count = @skipped
		WHERE run_id = @run_id
	`, tableRef(client, dataset, extractionRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "inserted", Value: int64(result.Inserted)},
		{Name: "skipped", Value: int64(result.Skipped)},
		{Name: "run_id", Value: runID},
	})
	if err != nil {
		return fmt.Errorf("MarkExtractionRunSucceeded: %w", err)
	}
	return nil
}
