// Package report turns the consolidated status view into the published
// phantom log: it merges freshly computed completeness rows with the notes
// column of the previously published table and renders delimited exports.
package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/errors"
)

// Columns is the fixed published column order.
var Columns = []string{
	"site", "date", "dicom", "bids", "bids_validation",
	"anatomical", "diffusion-low", "diffusion-high", "functional",
	"id", "notes",
}

// DateColumns lists the columns holding calendar dates; the wiki surface
// renders these as YY-MM-DD.
var DateColumns = []string{"date", "dicom", "bids"}

// NoteRecord is the projection of the previously published table carried
// into the merge: the scan identifier plus the human maintained note.
type NoteRecord struct {
	ID    string
	Notes string
}

// Row is one row of the merged, publishable phantom log. All values are
// presentation strings; absent values are empty, never null.
type Row struct {
	Site           string
	Date           string
	Dicom          string
	Bids           string
	BidsValidation datastore.Flag
	Anatomical     datastore.Flag
	DiffusionLow   datastore.Flag
	DiffusionHigh  datastore.Flag
	Functional     datastore.Flag
	ID             string
	Notes          string
}

// Record renders the row in published column order.
func (r Row) Record() []string {
	return []string{
		r.Site, r.Date, r.Dicom, r.Bids, string(r.BidsValidation),
		string(r.Anatomical), string(r.DiffusionLow), string(r.DiffusionHigh),
		string(r.Functional), r.ID, r.Notes,
	}
}

// Records renders a slice of rows in published column order.
func Records(rows []Row) [][]string {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record())
	}
	return records
}

// WriteTSV writes a header and records as tab separated values.
func WriteTSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteTSVFile writes a header and records to a TSV file at path.
func WriteTSVFile(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	if err := WriteTSV(f, header, records); err != nil {
		return errors.New(err).
			Component("report").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}
