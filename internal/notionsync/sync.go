// Package notionsync exports persisted transactions into a Notion database.
package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-extractor/internal/logger"
	"github.com/jomei/notionapi"
)

// BatchSize is the number of transactions logged as one batch.
const BatchSize = 100

// Options controls an export.
type Options struct {
	// DryRun logs what would change without calling Notion's write APIs.
	DryRun bool
	// Prune archives pages dated within the range whose transaction no
	// longer exists in the warehouse.
	Prune bool
}

// SyncResult counts what an export did.
type SyncResult struct {
	Created int
	Skipped int
	Deleted int
	Failed  int
}

// SyncTransactions creates a Notion page for every transaction in
// [startDate, endDate] that is not already in the database. Pages are
// matched on the Transaction ID property, so repeated runs are idempotent.
// Individual page failures are logged and counted, not returned.
func SyncTransactions(ctx context.Context, repo TransactionReader, notionClient NotionService, notionDBID string, startDate, endDate time.Time, opts Options) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var result SyncResult

	log.Info().
		Time("start_date", startDate).
		Time("end_date", endDate).
		Bool("dry_run", opts.DryRun).
		Bool("prune", opts.Prune).
		Msg("Starting transaction sync to Notion")

	transactions, err := repo.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: query transactions: %w", err)
	}
	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved transactions from BigQuery")

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return result, fmt.Errorf("SyncTransactions: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := transactionID(page); id != "" {
			existing[id] = true
		}
	}

	if opts.Prune {
		valid := make(map[string]bool, len(transactions))
		for _, tx := range transactions {
			valid[tx.TransactionID] = true
		}
		for _, page := range pages {
			id := transactionID(page)
			date, ok := pageDate(page)
			if id == "" || valid[id] || !ok || !inRange(date, startDate, endDate) {
				continue
			}
			if opts.DryRun {
				log.Info().Str("transaction_id", id).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would delete stale Notion page")
				result.Deleted++
				continue
			}
			if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
				log.Warn().Err(err).Str("page_id", string(page.ID)).Msg("Failed to delete stale Notion page")
				result.Failed++
				continue
			}
			result.Deleted++
		}
	}

	for i := 0; i < len(transactions); i += BatchSize {
		end := min(i+BatchSize, len(transactions))
		log.Debug().Int("batch_start", i).Int("batch_end", end).Msg("Processing batch")

		for _, tx := range transactions[i:end] {
			if existing[tx.TransactionID] {
				result.Skipped++
				continue
			}
			if opts.DryRun {
				log.Info().Str("transaction_id", tx.TransactionID).Msg("[DRY RUN] Would create new Notion page")
				result.Created++
				continue
			}

			page, err := notionClient.CreatePage(ctx, notionDBID, TransactionToNotionProperties(tx))
			if err != nil {
				log.Warn().Err(err).Str("transaction_id", tx.TransactionID).Msg("Failed to create Notion page")
				result.Failed++
				continue
			}
			existing[tx.TransactionID] = true
			log.Debug().Str("transaction_id", tx.TransactionID).Str("page_id", string(page.ID)).Msg("Created Notion page")
			result.Created++
		}
	}

	log.Info().
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Msg("Transaction sync completed")
	return result, nil
}

// inRange compares calendar dates only.
func inRange(t, start, end time.Time) bool {
	day := t.Format("2006-01-02")
	return day >= start.Format("2006-01-02") && day <= end.Format("2006-01-02")
}

// queryAllNotionPages follows the query cursor until every page is read.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return allPages, nil
}
