package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

const stageOutputsTable = "stage_outputs"

// StageOutputRow archives the text one pipeline stage produced for a run.
type StageOutputRow struct {
	OutputID   string    `bigquery:"output_id"`   // REQUIRED
	RunID      string    `bigquery:"run_id"`      // REQUIRED
	DocumentID string    `bigquery:"document_id"` // REQUIRED
	Stage      string    `bigquery:"stage"`       // REQUIRED clean|structure|extract
	Content    string    `bigquery:"content"`     // REQUIRED
	Notes      string    `bigquery:"notes"`       // NULLABLE
	CreatedTS  time.Time `bigquery:"created_ts"`  // REQUIRED
}

// NewStageOutputRow fills in the generated fields.
func NewStageOutputRow(runID, documentID, stage, content string) *StageOutputRow {
	return &StageOutputRow{
		OutputID:   uuid.NewString(),
		RunID:      runID,
		DocumentID: documentID,
		Stage:      stage,
		Content:    content,
		CreatedTS:  time.Now(),
	}
}

// InsertStageOutputWithClient inserts one row using DML, which avoids the
// streaming buffer so the row is immediately queryable.
func InsertStageOutputWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *StageOutputRow) error {
	err := runDML(ctx, client, fmt.Sprintf(`
		INSERT INTO %s (
			output_id, run_id, document_id,
			stage, content, notes, created_ts
		)
		VALUES (
			@output_id, @run_id, @document_id,
			@stage, @content, @notes, @created_ts
		)
	`, tableRef(client, dataset, stageOutputsTable)), []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "run_id", Value: row.RunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "stage", Value: row.Stage},
		{Name: "content", Value: row.Content},
		{Name: "notes", Value: row.Notes},
		{Name: "created_ts", Value: row.CreatedTS},
	})
	if err != nil {
		return fmt.Errorf("InsertStageOutput: %w", err)
	}
	return nil
}
