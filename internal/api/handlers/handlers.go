// Package handlers implements the HTTP endpoints of the extraction API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/statement-extractor/internal/api/middleware"
	"github.com/dvloznov/statement-extractor/internal/gcsstore"
	infraBQ "github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/dvloznov/statement-extractor/internal/ingest"
	"github.com/dvloznov/statement-extractor/internal/jobs"
	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxUploadBytes bounds statement uploads.
const DefaultMaxUploadBytes = 32 << 20

const dateFormat = "2006-01-02"

// ObjectWriter stores uploaded files. *gcsstore.Store satisfies it.
type ObjectWriter interface {
	WriteObject(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// StatementsHandler accepts statements for asynchronous extraction.
type StatementsHandler struct {
	publisher jobs.Publisher
	storage   ObjectWriter
	bucket    string
	log       zerolog.Logger

	// MaxUploadBytes limits request bodies; zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// NewStatementsHandler creates a statements handler. When storage and
// bucket are set, uploaded files are also archived to object storage.
func NewStatementsHandler(publisher jobs.Publisher, storage ObjectWriter, bucket string, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{publisher: publisher, storage: storage, bucket: bucket, log: log}
}

type submitRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Provider string `json:"provider"`
}

// Submit handles POST /api/statements. It accepts a multipart upload in the
// "file" field, or a JSON body with inline text or a gs:// source.
func (h *StatementsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := requestLogger(r, h.log)

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	job := &jobs.ExtractStatementJob{DocumentID: uuid.NewString()}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if status, msg := h.fromUpload(r, job); status != 0 {
			middleware.WriteError(w, status, msg)
			return
		}
	} else {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if tooLarge(err) {
				middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		switch {
		case strings.TrimSpace(req.Text) != "":
			job.Text = req.Text
		case req.Source != "":
			if _, _, err := gcsstore.ParseURI(req.Source); err != nil {
				middleware.WriteError(w, http.StatusBadRequest, "source must be a gs:// URI")
				return
			}
			job.Source = req.Source
		default:
			middleware.WriteError(w, http.StatusBadRequest, "text or source is required")
			return
		}
		job.Provider = req.Provider
	}

	if err := h.publisher.PublishExtractStatement(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue extraction job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("document_id", job.DocumentID).Msg("Extraction job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": job.DocumentID,
		"status":      string(job.Status),
	})
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// fromUpload fills job from a multipart upload. A non-zero status reports
// a client error.
func (h *StatementsHandler) fromUpload(r *http.Request, job *jobs.ExtractStatementJob) (int, string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			return http.StatusRequestEntityTooLarge, "Upload too large"
		}
		return http.StatusBadRequest, "file is required"
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return http.StatusRequestEntityTooLarge, "Upload too large"
	}

	text, _, err := ingest.DocumentText(content)
	if err != nil {
		return http.StatusUnprocessableEntity, fmt.Sprintf("Could not read statement: %v", err)
	}
	job.Text = text
	job.Provider = r.FormValue("provider")

	if h.storage != nil && h.bucket != "" {
		filename := filepath.Base(header.Filename)
		object := gcsstore.ObjectName("uploads/"+time.Now().Format("2006/01/02"), job.DocumentID+"-"+filename)
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(content)
		}
		if err := h.storage.WriteObject(r.Context(), h.bucket, object, content, contentType); err != nil {
			reqLog := requestLogger(r, h.log)
			reqLog.Warn().Err(err).Str("object", object).Msg("Failed to archive upload")
		} else {
			job.Source = gcsstore.URI(h.bucket, object)
		}
	}
	return 0, ""
}

// JobsHandler reports job status and results.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		reqLog := requestLogger(r, h.log)
		reqLog.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		reqLog := requestLogger(r, h.log)
		reqLog.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	// Results are only returned by GetJob; the list stays small.
	summaries := make([]jobSummary, 0, len(jobsList))
	for _, j := range jobsList {
		summaries = append(summaries, summarize(j))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  summaries,
		"count": len(summaries),
	})
}

type jobSummary struct {
	JobID            string         `json:"job_id"`
	DocumentID       string         `json:"document_id,omitempty"`
	Status           jobs.JobStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	Error            string         `json:"error,omitempty"`
	TransactionCount int            `json:"transaction_count"`
}

func summarize(j *jobs.ExtractStatementJob) jobSummary {
	return jobSummary{
		JobID:            j.JobID,
		DocumentID:       j.DocumentID,
		Status:           j.Status,
		CreatedAt:        j.CreatedAt,
		Error:            j.Error,
		TransactionCount: len(j.Transactions),
	}
}

// TransactionReader reads persisted transactions.
type TransactionReader interface {
	QueryTransactionsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*infraBQ.TransactionRow, error)
}

// TransactionsHandler serves persisted transactions.
type TransactionsHandler struct {
	repo TransactionReader
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo TransactionReader, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, log: log}
}

type transactionView struct {
	TransactionID   string  `json:"transaction_id"`
	DocumentID      string  `json:"document_id"`
	Date            string  `json:"date"`
	Amount          string  `json:"amount"`
	Description     string  `json:"description"`
	Category        *string `json:"category"`
	TransactionType string  `json:"transaction_type"`
	Source          string  `json:"source"`
}

// ListTransactions handles GET /api/transactions?start_date=&end_date=.
// The range defaults to the last year.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	now := time.Now()

	startDate, err := parseDate(query.Get("start_date"), now.AddDate(-1, 0, 0))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
		return
	}
	endDate, err := parseDate(query.Get("end_date"), now)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
		return
	}
	if endDate.Before(startDate) {
		middleware.WriteError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	rows, err := h.repo.QueryTransactionsByDateRange(r.Context(), startDate, endDate)
	if err != nil {
		reqLog := requestLogger(r, h.log)
		reqLog.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	views := make([]transactionView, 0, len(rows))
	for _, row := range rows {
		tx := row.Transaction()
		v := transactionView{
			TransactionID:   row.TransactionID,
			DocumentID:      row.DocumentID,
			Date:            row.TransactionDate.String(),
			Amount:          tx.Amount.String(),
			Description:     tx.Description,
			TransactionType: row.TransactionType,
			Source:          row.Source,
		}
		if tx.Category != "" {
			category := tx.Category
			v.Category = &category
		}
		views = append(views, v)
	}
	middleware.WriteJSON(w, http.StatusOK, views)
}

// requestLogger prefers the request-scoped logger set by middleware.Logger.
func requestLogger(r *http.Request, fallback zerolog.Logger) zerolog.Logger {
	if _, ok := r.Context().Value(logger.LoggerKey).(zerolog.Logger); ok {
		return logger.FromContext(r.Context())
	}
	return fallback
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	return time.Parse(dateFormat, s)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Routes registers every endpoint on a new mux. transactions may be nil
// when no warehouse is configured.
func Routes(statements *StatementsHandler, jobsHandler *JobsHandler, transactions *TransactionsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/statements", statements.Submit)
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
	if transactions != nil {
		mux.HandleFunc("GET /api/transactions", transactions.ListTransactions)
	}
	mux.HandleFunc("GET /health", Health)
	return mux
}
