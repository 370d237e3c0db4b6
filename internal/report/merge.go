package report

import (
	"slices"
	"strings"

	"github.com/a2cps/phantomdb-go/internal/datastore"
)

// Merge reconciles the freshly computed status view with the notes of the
// previously published table. Fresh rows are authoritative for scan
// existence: every fresh row survives, carrying over the old note matched
// by scan identifier, and old rows whose identifier no longer appears in
// the fresh view are dropped. Their identifiers come back in dropped so the
// caller can report the cleanup. The result is sorted ascending by
// (site, date), ties keeping the pre-sort order, and is a pure function of
// its inputs.
func Merge(fresh []datastore.StatusRow, old []NoteRecord) (rows []Row, dropped []string) {
	notes := make(map[string]string, len(old))
	for _, rec := range old {
		notes[rec.ID] = rec.Notes
	}

	seen := make(map[string]bool, len(fresh))
	rows = make([]Row, 0, len(fresh))
	for _, s := range fresh {
		seen[s.ID] = true
		rows = append(rows, Row{
			Site:           s.Site,
			Date:           s.Date,
			Dicom:          s.Dicom,
			Bids:           s.Bids,
			BidsValidation: s.BidsValidation,
			Anatomical:     s.Anatomical,
			DiffusionLow:   s.DiffusionLow,
			DiffusionHigh:  s.DiffusionHigh,
			Functional:     s.Functional,
			ID:             s.ID,
			Notes:          notes[s.ID],
		})
	}

	for _, rec := range old {
		if !seen[rec.ID] {
			dropped = append(dropped, rec.ID)
		}
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := strings.Compare(a.Site, b.Site); c != 0 {
			return c
		}
		return strings.Compare(a.Date, b.Date)
	})

	return rows, dropped
}
