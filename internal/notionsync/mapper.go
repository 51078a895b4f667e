package notionsync

import (
	"time"

	"github.com/dvloznov/statement-extractor/internal/infra/bigquery"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropSource        = "Source"
	PropCategory      = "Category"
	PropTransactionID = "Transaction ID"
	PropDocumentID    = "Document ID"
	PropRunID         = "Run ID"
	PropRawTimestamp  = "Statement Date"
	PropImportedAt    = "Imported At"
)

func richText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// TransactionToNotionProperties converts a persisted transaction to the
// properties of a Notion page.
func TransactionToNotionProperties(tx *bigquery.TransactionRow) notionapi.Properties {
	amount := 0.0
	if tx.Amount != nil {
		amount, _ = tx.Amount.Float64()
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: tx.Description}},
			},
		},
		PropDate:          dateProperty(tx.TransactionDate.In(time.UTC)),
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: tx.TransactionType}},
		PropSource:        notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Source}},
		PropTransactionID: richText(tx.TransactionID),
		PropImportedAt:    dateProperty(tx.CreatedTS),
	}

	if tx.Category.Valid && tx.Category.StringVal != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category.StringVal}}
	}
	if tx.DocumentID != "" {
		props[PropDocumentID] = richText(tx.DocumentID)
	}
	if tx.RunID != "" {
		props[PropRunID] = richText(tx.RunID)
	}
	if tx.Timestamp != "" {
		props[PropRawTimestamp] = richText(tx.Timestamp)
	}

	return props
}

// transactionID reads the Transaction ID property of a queried page.
func transactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}

// pageDate reads the Date property of a queried page.
func pageDate(page notionapi.Page) (time.Time, bool) {
	if prop, ok := page.Properties[PropDate]; ok {
		if dp, ok := prop.(*notionapi.DateProperty); ok && dp.Date != nil && dp.Date.Start != nil {
			return time.Time(*dp.Date.Start), true
		}
	}
	return time.Time{}, false
}
