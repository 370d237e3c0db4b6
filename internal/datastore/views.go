// views.go: derived read-only relations computed on top of the entity tables
package datastore

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// Diffusion derivatives are tagged by the acquisition strength keyword
// embedded in their identifier. Rows matching neither keyword appear in
// neither view: absence, not negation.
const (
	diffusionLowKeyword  = "b1000"
	diffusionHighKeyword = "b2000"

	// StatusViewName is the consolidated per-scan completeness view.
	StatusViewName = "phantom_log"
)

// tagViewSQL builds one diffusion tag view restricted to identifiers
// containing the keyword.
func tagViewSQL(name, keyword string) string {
	return fmt.Sprintf(
		"CREATE VIEW %s AS SELECT id, scan_id, 'Y' AS tag FROM diffusion_derivatives WHERE id LIKE '%%%s%%'",
		name, keyword)
}

// statusViewSQL joins Scan against the conversion and derivative relations,
// all keyed on the scan identifier. Left outer joins keep scans with no
// matching products visible as gaps. The derivative join inputs are grouped
// by scan_id so the view stays exactly one row per scan even when a scan
// owns several derivatives of one kind. The tri-state columns force
// derivative completeness blank until conversion validated successfully.
const statusViewSQL = `
CREATE VIEW phantom_log AS
SELECT
    s.site AS site,
    s.acquisition_day AS date,
    s.day AS dicom,
    COALESCE(c.day, '') AS bids,
    CASE WHEN c.valid = 1 THEN 'Y'
         WHEN c.valid = 0 THEN 'N'
         ELSE '' END AS bids_validation,
    CASE WHEN c.valid IS NULL OR c.valid = 0 THEN ''
         WHEN a.scan_id IS NOT NULL THEN 'Y'
         ELSE 'N' END AS anatomical,
    CASE WHEN c.valid IS NULL OR c.valid = 0 THEN ''
         WHEN lo.scan_id IS NOT NULL THEN 'Y'
         ELSE 'N' END AS diffusion_low,
    CASE WHEN c.valid IS NULL OR c.valid = 0 THEN ''
         WHEN hi.scan_id IS NOT NULL THEN 'Y'
         ELSE 'N' END AS diffusion_high,
    CASE WHEN c.valid IS NULL OR c.valid = 0 THEN ''
         WHEN f.scan_id IS NOT NULL THEN 'Y'
         ELSE 'N' END AS functional,
    s.id AS id
FROM scans s
LEFT JOIN conversion_records c ON c.scan_id = s.id
LEFT JOIN (SELECT scan_id FROM anatomical_derivatives WHERE scan_id IS NOT NULL GROUP BY scan_id) a
    ON a.scan_id = s.id
LEFT JOIN (SELECT scan_id FROM functional_derivatives WHERE scan_id IS NOT NULL GROUP BY scan_id) f
    ON f.scan_id = s.id
LEFT JOIN (SELECT scan_id FROM diffusion_low WHERE scan_id IS NOT NULL GROUP BY scan_id) lo
    ON lo.scan_id = s.id
LEFT JOIN (SELECT scan_id FROM diffusion_high WHERE scan_id IS NOT NULL GROUP BY scan_id) hi
    ON hi.scan_id = s.id`

// createViews recreates the derived views. DROP + CREATE instead of
// CREATE OR REPLACE because SQLite does not support the latter for views.
func createViews(db *gorm.DB) error {
	statements := []string{
		"DROP VIEW IF EXISTS diffusion_low",
		tagViewSQL("diffusion_low", diffusionLowKeyword),
		"DROP VIEW IF EXISTS diffusion_high",
		tagViewSQL("diffusion_high", diffusionHighKeyword),
		"DROP VIEW IF EXISTS " + StatusViewName,
		statusViewSQL,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return dbError(err, "create view")
		}
	}
	return nil
}

// StatusLog reads the consolidated status view ordered by (site, dicom day).
// The ordering lives in the read, not the view definition, because MySQL
// does not guarantee view-level ORDER BY survives the outer query.
func (ds *DataStore) StatusLog() ([]StatusRow, error) {
	var rows []StatusRow
	err := ds.DB.Raw("SELECT * FROM " + StatusViewName + " ORDER BY site, dicom").Scan(&rows).Error
	if err != nil {
		return nil, dbError(err, "read status view")
	}
	return rows, nil
}

// exportableTables is the closed set of names ReadTable accepts; the name is
// interpolated into SQL, so it must never come from the query untrusted.
var exportableTables = map[string]bool{
	"scans":                  true,
	"conversion_records":     true,
	"anatomical_derivatives": true,
	"functional_derivatives": true,
	"diffusion_derivatives":  true,
	"functional_slices":      true,
	"diffusion_low":          true,
	"diffusion_high":         true,
	StatusViewName:           true,
}

// ReadTable dumps a known table or view as column names plus string rows.
// NULLs come back as empty strings, matching the presentation rule that the
// published surfaces have no concept of null.
func (ds *DataStore) ReadTable(name string) ([]string, [][]string, error) {
	if !exportableTables[name] {
		return nil, nil, dbError(fmt.Errorf("unknown table %q", name), "export table")
	}

	rows, err := ds.DB.Raw("SELECT * FROM " + name).Rows()
	if err != nil {
		return nil, nil, dbError(err, "export table", "table", name)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, dbError(err, "export table columns", "table", name)
	}

	var records [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, dbError(err, "export table scan", "table", name)
		}
		record := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				record[i] = v.String
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, dbError(err, "export table rows", "table", name)
	}
	return columns, records, nil
}
