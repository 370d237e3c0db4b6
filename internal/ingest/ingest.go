// Package ingest walks the products tree, derives entities from the
// artifacts it finds and stores the whole pass as one transaction.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/a2cps/phantomdb-go/internal/artifact"
	"github.com/a2cps/phantomdb-go/internal/datastore"
	"github.com/a2cps/phantomdb-go/internal/errors"
	"github.com/a2cps/phantomdb-go/internal/logging"
)

// Package-level logger specific to the ingest service
var serviceLogger *slog.Logger

func init() {
	var err error
	logFilePath := filepath.Join("logs", "ingest.log")

	serviceLogger, _, err = logging.NewFileLogger(logFilePath, "ingest", slog.LevelDebug)
	if err != nil {
		log.Printf("Failed to initialize ingest file logger at %s: %v. Service logging disabled.", logFilePath, err)
		serviceLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
}

// Discovery patterns per artifact kind, relative to the products root.
const (
	rawArchivePattern = "*/dicoms/*QC*zip"
	conversionPattern = "*/bids/*QC*"
	anatomicalPattern = "*/bids/*QC*/sub*/ses*/anat/*T1w.json"
	functionalPattern = "*/bids/*QC*/sub*/ses*/func/*bold.json"
	diffusionPattern  = "*/bids/*QC*/sub*/ses*/dwi/*dwi.json"
	qaTablePattern    = "*/aa-fmri-phantom-qa/*/*/*table.csv"
)

// scanLookup is the read-only parent lookup passed into derivative
// construction. It covers scans discovered in this pass and scans stored by
// earlier runs; a miss leaves the derivative an orphan, not an error.
type scanLookup func(id string) (bool, error)

// Run performs one ingestion pass over the products root and saves the
// discovered artifacts atomically. Any extraction or integrity error aborts
// the pass before or during the single transaction, leaving the store in
// its pre-run state.
func Run(products string, store datastore.Interface) (*datastore.ArtifactBatch, error) {
	batch := &datastore.ArtifactBatch{}

	inBatch := make(map[string]bool)
	lookup := scanLookup(func(id string) (bool, error) {
		if inBatch[id] {
			return true, nil
		}
		return store.ScanExists(id)
	})

	rawArchives, err := glob(products, rawArchivePattern)
	if err != nil {
		return nil, err
	}
	for _, path := range rawArchives {
		scan, err := newScan(path)
		if err != nil {
			return nil, err
		}
		batch.Scans = append(batch.Scans, scan)
		inBatch[scan.ID] = true
	}

	conversions, err := glob(products, conversionPattern)
	if err != nil {
		return nil, err
	}
	for _, path := range conversions {
		record, err := newConversionRecord(path, lookup)
		if err != nil {
			return nil, err
		}
		batch.Conversions = append(batch.Conversions, record)
	}

	if err := collectDerivatives(products, batch, lookup); err != nil {
		return nil, err
	}

	qaTables, err := glob(products, qaTablePattern)
	if err != nil {
		return nil, err
	}
	for _, path := range qaTables {
		slices, err := readSliceTable(path)
		if err != nil {
			return nil, err
		}
		batch.Slices = append(batch.Slices, slices...)
	}

	serviceLogger.Info("Discovered artifacts",
		"scans", len(batch.Scans),
		"conversions", len(batch.Conversions),
		"anatomical", len(batch.Anatomicals),
		"functional", len(batch.Functionals),
		"diffusion", len(batch.Diffusions),
		"qa_slices", len(batch.Slices))

	if err := store.SaveBatch(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func collectDerivatives(products string, batch *datastore.ArtifactBatch, lookup scanLookup) error {
	anats, err := glob(products, anatomicalPattern)
	if err != nil {
		return err
	}
	for _, path := range anats {
		id, meta, scanID, err := newDerivative(path, lookup)
		if err != nil {
			return err
		}
		batch.Anatomicals = append(batch.Anatomicals,
			datastore.AnatomicalDerivative{ID: id, Meta: meta, ScanID: scanID})
	}

	funcs, err := glob(products, functionalPattern)
	if err != nil {
		return err
	}
	for _, path := range funcs {
		id, meta, scanID, err := newDerivative(path, lookup)
		if err != nil {
			return err
		}
		batch.Functionals = append(batch.Functionals,
			datastore.FunctionalDerivative{ID: id, Meta: meta, ScanID: scanID})
	}

	dwis, err := glob(products, diffusionPattern)
	if err != nil {
		return err
	}
	for _, path := range dwis {
		id, meta, scanID, err := newDerivative(path, lookup)
		if err != nil {
			return err
		}
		batch.Diffusions = append(batch.Diffusions,
			datastore.DiffusionDerivative{ID: id, Meta: meta, ScanID: scanID})
	}
	return nil
}

// newScan derives a Scan from a raw archive path.
func newScan(path string) (datastore.Scan, error) {
	id := artifact.Stem(path)
	site, err := artifact.ExtractSite(id)
	if err != nil {
		return datastore.Scan{}, err
	}
	day, err := artifact.CreationDate(path)
	if err != nil {
		return datastore.Scan{}, err
	}
	acquisitionDay, err := artifact.AcquisitionDate(path)
	if err != nil {
		return datastore.Scan{}, err
	}
	return datastore.Scan{
		ID:             id,
		Site:           site,
		Day:            day,
		AcquisitionDay: acquisitionDay,
	}, nil
}

// newConversionRecord derives a ConversionRecord from a converted artifact
// path. The validation outcome is computed here, once, and never revisited.
func newConversionRecord(path string, lookup scanLookup) (datastore.ConversionRecord, error) {
	day, err := artifact.CreationDate(path)
	if err != nil {
		return datastore.ConversionRecord{}, err
	}
	scanID, err := resolveParent(artifact.Stem(path), lookup)
	if err != nil {
		return datastore.ConversionRecord{}, err
	}
	return datastore.ConversionRecord{
		ScanID: scanID,
		Day:    day,
		Valid:  artifact.ConversionValidity(path),
	}, nil
}

// newDerivative reads the common shape shared by the three derivative
// kinds: identifier from the sidecar stem, the sidecar JSON as an opaque
// blob, and the parent scan resolved from the enclosing conversion
// directory four levels up (<scan>/sub-*/ses-*/<modality>/<file>).
func newDerivative(path string, lookup scanLookup) (id, meta string, scanID *string, err error) {
	id = artifact.Stem(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if !json.Valid(data) {
		return "", "", nil, errors.Newf("sidecar %s is not valid JSON", path).
			Component("ingest").
			Category(errors.CategoryFileParsing).
			Build()
	}

	scanDir := path
	for i := 0; i < 4; i++ {
		scanDir = filepath.Dir(scanDir)
	}
	scanID, err = resolveParent(filepath.Base(scanDir), lookup)
	if err != nil {
		return "", "", nil, err
	}
	return id, string(data), scanID, nil
}

// resolveParent returns a reference to the parent scan when it exists, nil
// when the derivative is an orphan pending a future Scan record.
func resolveParent(id string, lookup scanLookup) (*string, error) {
	exists, err := lookup(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		serviceLogger.Debug("Derivative has no parent scan yet", "scan_id", id)
		return nil, nil
	}
	return &id, nil
}

// qa table columns, as written by the fmri phantom QA pipeline
var sliceMetricColumns = []string{"slice", "signal", "signal_p2p", "snr", "ghost"}

// readSliceTable parses one per-slice QC table. The owning functional
// derivative is named by the directory containing the table.
func readSliceTable(path string) ([]datastore.FunctionalSlice, error) {
	functionalID := filepath.Base(filepath.Dir(path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseError(err, path)
	}
	if len(records) == 0 {
		return nil, nil
	}

	colIndex := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		colIndex[strings.TrimSpace(name)] = i
	}
	for _, name := range sliceMetricColumns {
		if _, ok := colIndex[name]; !ok {
			return nil, parseError(fmt.Errorf("missing column %q", name), path)
		}
	}

	slices := make([]datastore.FunctionalSlice, 0, len(records)-1)
	for _, record := range records[1:] {
		sliceIdx, err := parseOptionalInt(record[colIndex["slice"]])
		if err != nil {
			return nil, parseError(err, path)
		}
		row := datastore.FunctionalSlice{
			FunctionalDerivativeID: functionalID,
			Slice:                  sliceIdx,
		}
		metrics := map[string]**float64{
			"signal":     &row.Signal,
			"signal_p2p": &row.SignalP2P,
			"snr":        &row.SNR,
			"ghost":      &row.Ghost,
		}
		for name, target := range metrics {
			value, err := parseOptionalFloat(record[colIndex[name]])
			if err != nil {
				return nil, parseError(err, path)
			}
			*target = value
		}
		slices = append(slices, row)
	}
	return slices, nil
}

// parseOptionalInt treats an empty cell as "not measured".
func parseOptionalInt(value string) (*int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseOptionalFloat treats empty and nan cells as "not computable".
func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func parseError(err error, path string) error {
	return errors.New(err).
		Component("ingest").
		Category(errors.CategoryFileParsing).
		Context("path", path).
		Build()
}

func glob(root, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, errors.New(err).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("pattern", pattern).
			Build()
	}
	return matches, nil
}
