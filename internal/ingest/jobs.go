package ingest

import (
	"context"
	"errors"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/google/uuid"
)

// NewJobHandler returns a jobs.JobHandler that extracts a job's statement
// and stores the candidates on the job. Inline text wins over Source.
func NewJobHandler(fetcher Fetcher, extractor Extractor) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ExtractStatementJob) error {
		text := job.Text
		if text == "" {
			if job.Source == "" {
				return errors.New("job has neither text nor source")
			}
			loaded, err := LoadText(ctx, fetcher, job.Source)
			if err != nil {
				return err
			}
			text = loaded
		}
		if job.DocumentID == "" {
			job.DocumentID = uuid.NewString()
		}

		run, err := extractor.RunDocument(ctx, job.DocumentID, text, job.Provider)
		if err != nil {
			return err
		}
		job.Transactions = domain.Candidates(run.Transactions)
		return nil
	}
}
