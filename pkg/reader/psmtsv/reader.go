// Package psmtsv reads peptide-spectrum matches from tab-separated files.
//
// The first non-comment row is a header naming the columns. Required columns
// are spectrum_id, peptidoform and charge; psm_id is optional and defaults to
// the spectrum ID. Column order is free and unknown columns are ignored.
package psmtsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Column names.
const (
	ColPSMID       = "psm_id"
	ColSpectrumID  = "spectrum_id"
	ColPeptidoform = "peptidoform"
	ColCharge      = "charge"
)

// Reader provides streaming access to a PSM table
type Reader struct {
	csv     *csv.Reader
	modDB   *core.ModDatabase
	cols    map[string]int
	seen    map[string]int
	current *core.PSM
	err     error
}

// NewReader creates a new PSM reader
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	return &Reader{
		csv:   cr,
		modDB: modDB,
		seen:  make(map[string]int),
	}
}

// Next advances to the next PSM. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	if r.cols == nil {
		if err := r.readHeader(); err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return false
		}
	}

	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return false
		}
		if err != nil {
			r.err = err
			return false
		}
		if isBlank(record) {
			continue
		}

		line, _ := r.csv.FieldPos(0)
		psm, err := r.parseRecord(record)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", line, err)
			return false
		}
		r.current = psm
		return true
	}
}

// PSM returns the current PSM
func (r *Reader) PSM() *core.PSM {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readHeader() error {
	for {
		record, err := r.csv.Read()
		if err != nil {
			return err
		}
		if isBlank(record) {
			continue
		}

		cols := make(map[string]int, len(record))
		for i, name := range record {
			cols[strings.ToLower(strings.TrimSpace(name))] = i
		}
		for _, required := range []string{ColSpectrumID, ColPeptidoform, ColCharge} {
			if _, ok := cols[required]; !ok {
				return &core.ValidationError{Field: "header", Message: fmt.Sprintf("missing column %q", required)}
			}
		}
		r.cols = cols
		return nil
	}
}

func (r *Reader) field(record []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) parseRecord(record []string) (*core.PSM, error) {
	spectrumID := r.field(record, ColSpectrumID)
	if spectrumID == "" {
		return nil, &core.ValidationError{Field: ColSpectrumID, Message: "empty spectrum id"}
	}

	chargeStr := r.field(record, ColCharge)
	charge, err := strconv.Atoi(chargeStr)
	if err != nil || charge <= 0 {
		return nil, &core.ValidationError{Field: ColCharge, Message: fmt.Sprintf("invalid charge %q", chargeStr)}
	}

	pep, err := core.ParsePeptidoform(r.field(record, ColPeptidoform), r.modDB)
	if err != nil {
		return nil, err
	}

	// Several PSMs per spectrum without explicit IDs get "ID#n"
	id := r.field(record, ColPSMID)
	if id == "" {
		id = spectrumID
		r.seen[id]++
		if n := r.seen[id]; n > 1 {
			id = fmt.Sprintf("%s#%d", id, n)
		}
	}

	return &core.PSM{
		ID:         id,
		Peptide:    pep,
		Charge:     charge,
		SpectrumID: spectrumID,
	}, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ReadAll reads every PSM from r.
func ReadAll(r io.Reader, modDB *core.ModDatabase) ([]*core.PSM, error) {
	pr := NewReader(r, modDB)
	var psms []*core.PSM
	for pr.Next() {
		psms = append(psms, pr.PSM())
	}
	if err := pr.Err(); err != nil {
		return nil, err
	}
	return psms, nil
}
