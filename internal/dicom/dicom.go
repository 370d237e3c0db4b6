// Package dicom reads the handful of header fields phantomdb needs from a
// DICOM file. It is not a general DICOM parser: it walks the data set far
// enough to find the AcquisitionDate element and stops well before pixel data.
package dicom

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	preambleSize = 128
	magic        = "DICM"

	// (0008,0022) AcquisitionDate, VR DA, value YYYYMMDD
	acquisitionDateGroup   = 0x0008
	acquisitionDateElement = 0x0022

	// headers are tiny, reading past this means the file is not what we expect
	maxHeaderBytes = 1 << 20
)

// ErrNoPreamble indicates the stream does not start with a DICOM preamble.
var ErrNoPreamble = fmt.Errorf("dicom: missing DICM preamble")

// VRs that use a 4-byte length with 2 reserved bytes in explicit VR encoding.
var longVRs = map[string]bool{
	"OB": true, "OW": true, "OF": true, "SQ": true, "UT": true, "UN": true,
}

// AcquisitionDate scans the data set for the AcquisitionDate element and
// returns it as a calendar date. A data set without the element yields a zero
// time and a nil error; a malformed date value is an error.
func AcquisitionDate(r io.Reader) (time.Time, error) {
	raw, err := findElement(r, acquisitionDateGroup, acquisitionDateElement)
	if err != nil {
		return time.Time{}, err
	}
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse("20060102", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("dicom: malformed AcquisitionDate %q: %w", raw, err)
	}
	return day, nil
}

// findElement walks data elements until it reaches the requested tag. Both
// explicit and implicit VR little endian encodings are handled; the VR field
// is detected by checking for two uppercase ASCII letters.
func findElement(r io.Reader, group, element uint16) (string, error) {
	br := &countingReader{r: r}

	if err := skipPreamble(br); err != nil {
		return "", err
	}

	buf := make([]byte, 8)
	for br.n < maxHeaderBytes {
		if _, err := io.ReadFull(br, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return "", nil
			}
			return "", fmt.Errorf("dicom: reading element header: %w", err)
		}

		g := binary.LittleEndian.Uint16(buf[0:2])
		e := binary.LittleEndian.Uint16(buf[2:4])

		var length uint32
		if isVR(buf[4], buf[5]) {
			vr := string(buf[4:6])
			if longVRs[vr] {
				var ext [4]byte
				if _, err := io.ReadFull(br, ext[:]); err != nil {
					return "", fmt.Errorf("dicom: reading element length: %w", err)
				}
				length = binary.LittleEndian.Uint32(ext[:])
			} else {
				length = uint32(binary.LittleEndian.Uint16(buf[6:8]))
			}
		} else {
			// implicit VR: the four bytes after the tag are the length
			length = binary.LittleEndian.Uint32(buf[4:8])
		}

		if g == group && e == element {
			value := make([]byte, length)
			if _, err := io.ReadFull(br, value); err != nil {
				return "", fmt.Errorf("dicom: reading element value: %w", err)
			}
			return string(value), nil
		}

		// tags are sorted within a data set, no point reading further
		if g > group {
			return "", nil
		}

		if length == 0xFFFFFFFF {
			// undefined length (sequences); bail out rather than parse items
			return "", nil
		}
		if _, err := io.CopyN(io.Discard, br, int64(length)); err != nil {
			return "", nil
		}
	}
	return "", nil
}

func skipPreamble(r io.Reader) error {
	header := make([]byte, preambleSize+len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return ErrNoPreamble
	}
	if string(header[preambleSize:]) != magic {
		return ErrNoPreamble
	}
	return nil
}

func isVR(a, b byte) bool {
	return a >= 'A' && a <= 'Z' && b >= 'A' && b <= 'Z'
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
