package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusByID(t *testing.T, store Interface) map[string]StatusRow {
	t.Helper()
	rows, err := store.StatusLog()
	require.NoError(t, err)
	byID := make(map[string]StatusRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	require.Len(t, byID, len(rows), "status view must not repeat scan identifiers")
	return byID
}

func TestStatusLogScanWithoutConversion(t *testing.T) {
	store := createDatabase(t)

	// scenario: NS001 has no ConversionRecord at all
	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{{ID: "NS001QC", Site: "NS", Day: "2024-01-10"}},
	}))

	rows := statusByID(t, store)
	row := rows["NS001QC"]
	assert.Empty(t, row.Bids)
	assert.Equal(t, FlagUnknown, row.BidsValidation)
	assert.Equal(t, FlagUnknown, row.Anatomical)
	assert.Equal(t, FlagUnknown, row.DiffusionLow)
	assert.Equal(t, FlagUnknown, row.DiffusionHigh)
	assert.Equal(t, FlagUnknown, row.Functional)
}

func TestStatusLogFailedValidationForcesBlanks(t *testing.T) {
	store := createDatabase(t)

	// scenario: WS002 failed validation; the functional derivative exists
	// but its completeness is not meaningful yet
	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{{ID: "WS002QC", Site: "WS", Day: "2024-01-12"}},
		Conversions: []ConversionRecord{
			{ScanID: ref("WS002QC"), Day: "2024-01-13", Valid: ref(false)},
		},
		Functionals: []FunctionalDerivative{
			{ID: "sub-ws002_bold", Meta: `{}`, ScanID: ref("WS002QC")},
		},
	}))

	rows := statusByID(t, store)
	row := rows["WS002QC"]
	assert.Equal(t, FlagNo, row.BidsValidation)
	assert.Equal(t, FlagUnknown, row.Anatomical)
	assert.Equal(t, FlagUnknown, row.DiffusionLow)
	assert.Equal(t, FlagUnknown, row.DiffusionHigh)
	assert.Equal(t, FlagUnknown, row.Functional)
}

func TestStatusLogValidatedScanFlagsPresence(t *testing.T) {
	store := createDatabase(t)

	// scenario: UC003 validated with one anatomical derivative and no
	// functional derivative
	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{{ID: "UC003QC", Site: "UC", Day: "2024-02-01", AcquisitionDay: "2024-01-30"}},
		Conversions: []ConversionRecord{
			{ScanID: ref("UC003QC"), Day: "2024-02-02", Valid: ref(true)},
		},
		Anatomicals: []AnatomicalDerivative{
			{ID: "sub-uc003_T1w", Meta: `{}`, ScanID: ref("UC003QC")},
		},
	}))

	rows := statusByID(t, store)
	row := rows["UC003QC"]
	assert.Equal(t, FlagYes, row.BidsValidation)
	assert.Equal(t, FlagYes, row.Anatomical)
	assert.Equal(t, FlagNo, row.Functional)
	assert.Equal(t, FlagNo, row.DiffusionLow)
	assert.Equal(t, FlagNo, row.DiffusionHigh)
	assert.Equal(t, "2024-01-30", row.Date)
	assert.Equal(t, "2024-02-02", row.Bids)
}

func TestStatusLogDiffusionTagViews(t *testing.T) {
	store := createDatabase(t)

	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{{ID: "UM004QC", Site: "UM", Day: "2024-03-01"}},
		Conversions: []ConversionRecord{
			{ScanID: ref("UM004QC"), Day: "2024-03-02", Valid: ref(true)},
		},
		Diffusions: []DiffusionDerivative{
			{ID: "sub-um004_acq-b1000_dwi", Meta: `{}`, ScanID: ref("UM004QC")},
			{ID: "sub-um004_acq-trace_dwi", Meta: `{}`, ScanID: ref("UM004QC")},
		},
	}))

	rows := statusByID(t, store)
	row := rows["UM004QC"]
	assert.Equal(t, FlagYes, row.DiffusionLow)
	assert.Equal(t, FlagNo, row.DiffusionHigh)

	// the derivative matching neither keyword is absent from both tag
	// views, not tagged "N"
	_, low, err := store.ReadTable("diffusion_low")
	require.NoError(t, err)
	assert.Len(t, low, 1)
	_, high, err := store.ReadTable("diffusion_high")
	require.NoError(t, err)
	assert.Empty(t, high)
}

func TestStatusLogOneRowPerScanWithManyDerivatives(t *testing.T) {
	store := createDatabase(t)

	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{{ID: "SH005QC", Site: "SH", Day: "2024-03-10"}},
		Conversions: []ConversionRecord{
			{ScanID: ref("SH005QC"), Day: "2024-03-11", Valid: ref(true)},
		},
		Functionals: []FunctionalDerivative{
			{ID: "sub-sh005_run-1_bold", Meta: `{}`, ScanID: ref("SH005QC")},
			{ID: "sub-sh005_run-2_bold", Meta: `{}`, ScanID: ref("SH005QC")},
		},
		Anatomicals: []AnatomicalDerivative{
			{ID: "sub-sh005_T1w", Meta: `{}`, ScanID: ref("SH005QC")},
		},
	}))

	rows, err := store.StatusLog()
	require.NoError(t, err)
	require.Len(t, rows, 1, "joins must not fan out with several derivatives of one kind")
	assert.Equal(t, FlagYes, rows[0].Functional)
}

func TestStatusLogOrderedBySiteThenDicomDay(t *testing.T) {
	store := createDatabase(t)

	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Scans: []Scan{
			{ID: "WS020QC", Site: "WS", Day: "2024-01-01"},
			{ID: "NS011QC", Site: "NS", Day: "2024-02-01"},
			{ID: "NS010QC", Site: "NS", Day: "2024-01-15"},
		},
	}))

	rows, err := store.StatusLog()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "NS010QC", rows[0].ID)
	assert.Equal(t, "NS011QC", rows[1].ID)
	assert.Equal(t, "WS020QC", rows[2].ID)
}

func TestStatusLogOrphanConversionDoesNotCreateRows(t *testing.T) {
	store := createDatabase(t)

	// a conversion record without a parent scan cannot appear in the
	// scan-rooted view
	require.NoError(t, store.SaveBatch(&ArtifactBatch{
		Conversions: []ConversionRecord{{ScanID: nil, Day: "2024-01-01", Valid: ref(true)}},
	}))

	rows, err := store.StatusLog()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
