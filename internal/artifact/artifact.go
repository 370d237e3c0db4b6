// Package artifact derives entity identity from pipeline artifact paths:
// scan identifiers, site codes, ingestion and acquisition dates, and the
// BIDS validation outcome. All functions are pure apart from reading the
// artifacts they are given.
package artifact

import (
	"archive/zip"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/a2cps/phantomdb-go/internal/dicom"
	"github.com/a2cps/phantomdb-go/internal/errors"
)

// DateLayout is the storage format for all calendar dates.
const DateLayout = "2006-01-02"

// ErrUnrecognizedSite indicates a scan identifier without a known site code.
var ErrUnrecognizedSite = errors.NewStd("unrecognized site code")

// siteCodes is the closed set of two-letter collection site codes.
var siteCodes = regexp.MustCompile(`(?i)(ns|ws|sh|ui|uc|um)`)

// conversion stage directory names used for the validation sibling rule
const (
	conversionStage = "bids"
	validationStage = "bids_validation"
)

// Stem returns the file name without its final extension, the scan
// identifier convention for every artifact kind.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExtractSite matches the scan identifier against the closed set of site
// codes and returns the matched code upper-cased. An identifier without a
// recognized code is a data quality problem, not a skippable condition.
func ExtractSite(id string) (string, error) {
	match := siteCodes.FindString(id)
	if match == "" {
		return "", errors.New(ErrUnrecognizedSite).
			Component("artifact").
			Category(errors.CategoryValidation).
			Context("id", id).
			Build()
	}
	return strings.ToUpper(match), nil
}

// CreationDate returns the filesystem modification date of the artifact,
// the proxy for its ingestion date. Always present for an existing file.
func CreationDate(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.New(err).
			Component("artifact").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return info.ModTime().Format(DateLayout), nil
}

// AcquisitionDate extracts the true acquisition date embedded in a raw
// archive. The result is empty, with a nil error, when the file is not a
// zip archive, the archive holds no suitable entry, or the entry carries no
// date field: "no acquisition date" is a normal state, distinct from the
// filesystem date. A date that is present but malformed is an error.
func AcquisitionDate(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		// not a recognized archive container
		return "", nil
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || strings.Contains(entry.Name, "DICOMDIR") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", errors.New(err).
				Component("artifact").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Context("entry", entry.Name).
				Build()
		}
		day, err := dicom.AcquisitionDate(rc)
		rc.Close()
		if err != nil {
			return "", errors.New(err).
				Component("artifact").
				Category(errors.CategoryFileParsing).
				Context("path", path).
				Context("entry", entry.Name).
				Build()
		}
		if day.IsZero() {
			return "", nil
		}
		return day.Format(DateLayout), nil
	}
	return "", nil
}

// ConversionValidity derives the validation outcome for a converted
// artifact. The validation artifact lives at the sibling path obtained by
// substituting the conversion stage directory with the validation stage
// directory. Missing sibling -> nil (validation never attempted); sibling
// containing at least one success marker ("*out") -> true; otherwise false.
func ConversionValidity(path string) *bool {
	sibling := strings.Replace(path,
		string(filepath.Separator)+conversionStage+string(filepath.Separator),
		string(filepath.Separator)+validationStage+string(filepath.Separator), 1)
	if sibling == path {
		// conversion stage not part of the path, treat as never validated
		return nil
	}
	if _, err := os.Stat(sibling); err != nil {
		return nil
	}
	markers, err := filepath.Glob(filepath.Join(sibling, "*out"))
	valid := err == nil && len(markers) > 0
	return &valid
}
