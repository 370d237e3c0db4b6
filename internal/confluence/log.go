// log.go: the published phantom log page, fetched once and pushed back after
// reconciliation
package confluence

import (
	"context"
	"slices"
	"time"

	"github.com/a2cps/phantomdb-go/internal/artifact"
	"github.com/a2cps/phantomdb-go/internal/conf"
	"github.com/a2cps/phantomdb-go/internal/errors"
	"github.com/a2cps/phantomdb-go/internal/report"
)

// publishedDateLayout is how the wiki page renders calendar dates.
const publishedDateLayout = "06-01-02"

// Log wraps the wiki page holding the published phantom log: the fetched
// page body and version, plus the human maintained notes parsed out of its
// table.
type Log struct {
	client *Client
	page   *Page
	notes  []report.NoteRecord
}

// NewLog authenticates with the token from the configured secrets file,
// fetches the log page and parses its table. The fetched table must carry
// id and notes columns; a malformed table fails here rather than silently
// producing a report without notes.
func NewLog(ctx context.Context, settings *conf.ConfluenceSettings) (*Log, error) {
	token, err := LoadToken(settings.Secrets)
	if err != nil {
		return nil, err
	}
	return newLogWithClient(ctx, NewClient(settings.URL, token), settings.PageID)
}

func newLogWithClient(ctx context.Context, client *Client, pageID string) (*Log, error) {
	page, err := client.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	header, rows, err := ParseFirstTable(page.Body.Storage.Value)
	if err != nil {
		return nil, err
	}

	idCol := slices.Index(header, "id")
	notesCol := slices.Index(header, "notes")
	if idCol < 0 || notesCol < 0 {
		return nil, errors.Newf("published table lacks required columns (id: %t, notes: %t)",
			idCol >= 0, notesCol >= 0).
			Component("confluence").
			Category(errors.CategoryValidation).
			Context("page_id", pageID).
			Build()
	}

	notes := make([]report.NoteRecord, 0, len(rows))
	for _, row := range rows {
		if idCol >= len(row) || notesCol >= len(row) {
			continue
		}
		notes = append(notes, report.NoteRecord{ID: row[idCol], Notes: row[notesCol]})
	}

	serviceLogger.Info("Fetched published log", "page_id", pageID, "rows", len(notes))
	return &Log{client: client, page: page, notes: notes}, nil
}

// Notes returns the (id, notes) projection of the published table.
func (l *Log) Notes() []report.NoteRecord {
	return l.notes
}

// Publish replaces the table on the page with the merged rows, rendering
// dates as YY-MM-DD and absent values as empty cells.
func (l *Log) Publish(ctx context.Context, rows []report.Row) error {
	records := report.Records(rows)
	dateCols := make([]int, 0, len(report.DateColumns))
	for _, name := range report.DateColumns {
		dateCols = append(dateCols, slices.Index(report.Columns, name))
	}
	for _, record := range records {
		for _, col := range dateCols {
			record[col] = publishedDate(record[col])
		}
	}

	body, err := ReplaceFirstTable(l.page.Body.Storage.Value, RenderTable(report.Columns, records))
	if err != nil {
		return err
	}
	return l.client.UpdatePage(ctx, l.page, body)
}

// publishedDate converts a stored ISO date to the published format; absent
// dates stay empty and unparseable values pass through untouched.
func publishedDate(value string) string {
	if value == "" {
		return ""
	}
	day, err := time.Parse(artifact.DateLayout, value)
	if err != nil {
		return value
	}
	return day.Format(publishedDateLayout)
}
