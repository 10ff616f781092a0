// Package reader selects a spectral library reader by format and loads
// libraries into a spectrum collection.
package reader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/reader/msp"
	"github.com/ChrisMcGann/fragannot/pkg/reader/sptxt"
)

// SpectrumReader is the streaming interface shared by the library readers.
type SpectrumReader interface {
	Next() bool
	Spectrum() *core.Spectrum
	Err() error
}

// Supported formats.
const (
	FormatMSP   = "msp"
	FormatSPTXT = "sptxt"
)

// DetectFormat guesses the library format from a file name.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msp":
		return FormatMSP, nil
	case ".sptxt":
		return FormatSPTXT, nil
	}
	return "", fmt.Errorf("cannot detect spectral library format of '%s', use msp or sptxt", path)
}

// New returns a reader for format.
func New(format string, r io.Reader, modDB *core.ModDatabase) (SpectrumReader, error) {
	switch strings.ToLower(format) {
	case FormatMSP:
		return msp.NewReader(r, modDB), nil
	case FormatSPTXT:
		return sptxt.NewReader(r, modDB), nil
	}
	return nil, &core.ConfigurationError{Field: "format", Message: fmt.Sprintf("unsupported library format %q", format)}
}

// ErrSkip returned by a Load visit callback drops the spectrum and continues.
var ErrSkip = errors.New("skip spectrum")

// Load drains a reader into a new collection. The visit callback, when set,
// is called for every spectrum before it is stored. Returning ErrSkip drops
// the spectrum; any other error stops loading.
func Load(sr SpectrumReader, sourceFile string, visit func(*core.Spectrum) error) (*core.SpectrumCollection, error) {
	coll := core.NewSpectrumCollection()
	for sr.Next() {
		spec := sr.Spectrum()
		spec.SourceFile = sourceFile
		if visit != nil {
			err := visit(spec)
			if errors.Is(err, ErrSkip) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("spectrum %s: %w", spec.ID, err)
			}
		}
		coll.Add(spec)
	}
	if err := sr.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", sourceFile, err)
	}
	return coll, nil
}
