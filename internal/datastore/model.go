// model.go this code defines the data model for the application
package datastore

// Scan represents one raw MRI phantom acquisition session, the root entity
// of the model. Dates are stored as ISO YYYY-MM-DD text; AcquisitionDay is
// empty when no date could be extracted from the raw archive.
type Scan struct {
	ID             string `gorm:"primaryKey"`
	Site           string `gorm:"index:idx_scans_site"`
	Day            string // filesystem date of the raw archive, proxy for ingestion date
	AcquisitionDay string // true acquisition date from embedded metadata, may be empty

	Anatomical []AnatomicalDerivative `gorm:"foreignKey:ScanID"`
	Functional []FunctionalDerivative `gorm:"foreignKey:ScanID"`
	Diffusion  []DiffusionDerivative  `gorm:"foreignKey:ScanID"`
}

// AnatomicalDerivative is a processed anatomical output of a Scan.
// ScanID is nil while the derivative is an orphan awaiting its parent.
type AnatomicalDerivative struct {
	ID     string  `gorm:"primaryKey"`
	Meta   string  `gorm:"type:text"` // sidecar JSON, opaque to this system
	ScanID *string `gorm:"index"`
}

// FunctionalDerivative is a processed functional output of a Scan, owning
// zero or more per-slice QC measurement rows.
type FunctionalDerivative struct {
	ID     string  `gorm:"primaryKey"`
	Meta   string  `gorm:"type:text"`
	ScanID *string `gorm:"index"`

	Slices []FunctionalSlice `gorm:"foreignKey:FunctionalDerivativeID;constraint:OnDelete:CASCADE"`
}

// DiffusionDerivative is a processed diffusion output of a Scan. The
// acquisition strength keyword embedded in its ID drives the tag views.
type DiffusionDerivative struct {
	ID     string  `gorm:"primaryKey"`
	Meta   string  `gorm:"type:text"`
	ScanID *string `gorm:"index"`
}

// FunctionalSlice holds one QC measurement row for one slice of a
// functional derivative. Metrics are nil when not computable.
type FunctionalSlice struct {
	ID                     uint   `gorm:"primaryKey"`
	FunctionalDerivativeID string `gorm:"index;not null"`
	Slice                  *int
	Signal                 *float64
	SignalP2P              *float64
	SNR                    *float64 `gorm:"column:snr"`
	Ghost                  *float64
}

// ConversionRecord represents the result of converting a Scan's raw data
// into the standardized BIDS layout. Valid is nil when validation was never
// attempted, and is computed once at ingestion, never recomputed.
type ConversionRecord struct {
	ID     uint    `gorm:"primaryKey"`
	ScanID *string `gorm:"index"`
	Day    string
	Valid  *bool
}

// Flag is a tri-state completeness value: unknown/not applicable, present,
// or absent. Blank is deliberately distinct from "N".
type Flag string

const (
	FlagUnknown Flag = ""
	FlagYes     Flag = "Y"
	FlagNo      Flag = "N"
)

// StatusRow is one row of the consolidated status view: per-scan pipeline
// completeness with tri-state flags. Column names match the SQL view.
type StatusRow struct {
	Site           string `gorm:"column:site"`
	Date           string `gorm:"column:date"`
	Dicom          string `gorm:"column:dicom"`
	Bids           string `gorm:"column:bids"`
	BidsValidation Flag   `gorm:"column:bids_validation"`
	Anatomical     Flag   `gorm:"column:anatomical"`
	DiffusionLow   Flag   `gorm:"column:diffusion_low"`
	DiffusionHigh  Flag   `gorm:"column:diffusion_high"`
	Functional     Flag   `gorm:"column:functional"`
	ID             string `gorm:"column:id"`
}

// ArtifactBatch collects everything discovered in one ingestion pass.
// SaveBatch writes it in a single transaction so a failed pass leaves the
// store untouched.
type ArtifactBatch struct {
	Scans       []Scan
	Conversions []ConversionRecord
	Anatomicals []AnatomicalDerivative
	Functionals []FunctionalDerivative
	Diffusions  []DiffusionDerivative
	Slices      []FunctionalSlice
}
