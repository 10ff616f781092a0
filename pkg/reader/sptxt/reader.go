// Package sptxt provides streaming readers for SPTXT (SpectraST) format spectral libraries
package sptxt

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// inlineMod matches "n[43]", "C[160]" or "c[17]" in a SpectraST peptide name
var inlineMod = regexp.MustCompile(`([a-zA-Z])\[(\d+(?:\.\d+)?)\]`)

// Reader provides streaming access to SPTXT format files
type Reader struct {
	scanner     *bufio.Scanner
	modDB       *core.ModDatabase
	lineNum     int
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new SPTXT reader
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	return &Reader{
		scanner: scanner,
		modDB:   modDB,
	}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current spectrum
func (r *Reader) Spectrum() *core.Spectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readSpectrum reads a single spectrum entry from the SPTXT file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "sptxt",
		Peaks:        []core.Peak{},
	}

	var (
		numPeaks  int
		inPeaks   bool
		started   bool
		peaksRead int
	)

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "###") {
			continue
		}

		if !inPeaks {
			key, value, _ := strings.Cut(line, ":")
			value = strings.TrimSpace(value)

			switch key {
			case "Name":
				started = true
				if err := r.parseName(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "LibID":
				spec.ID = "LibID=" + value
			case "PrecursorMZ":
				if mz, err := strconv.ParseFloat(value, 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case "Comment":
				if err := r.parseComment(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "NumPeaks":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				if !started {
					return nil, fmt.Errorf("line %d: NumPeaks before Name", r.lineNum)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return r.finish(spec), nil
				}
			}
			continue
		}

		peak, err := r.parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		if peaksRead >= numPeaks {
			return r.finish(spec), nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if started {
		if !inPeaks {
			return nil, fmt.Errorf("line %d: entry '%s' has no peak list", r.lineNum, spec.Name())
		}
		return r.finish(spec), nil
	}

	return nil, io.EOF
}

func (r *Reader) finish(spec *core.Spectrum) *core.Spectrum {
	if spec.ID == "" {
		spec.ID = spec.Name()
	}
	spec.SortPeaks()
	return spec
}

// parseName extracts sequence, charge, and modifications from Name field
// Format: "n[43]AAAAQDEITGDGTTTVVC[160]LVGELLR/3"
func (r *Reader) parseName(spec *core.Spectrum, name string) error {
	rawSeq, chargeStr, ok := strings.Cut(name, "/")
	if !ok {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}
	spec.Charge = charge

	sequence, mods, err := parseInlineModifications(rawSeq)
	if err != nil {
		return fmt.Errorf("failed to parse modifications from sequence: %w", err)
	}

	spec.Sequence = sequence
	spec.Modifications = mods

	return nil
}

// parseInlineModifications parses a sequence with SpectraST inline
// modifications. Bracketed values are nominal masses of the modified residue
// (or terminal group, n = 1, c = 17), so the shift is the difference to the
// unmodified nominal mass. Names are resolved later from the Mods comment.
func parseInlineModifications(rawSeq string) (string, []core.Modification, error) {
	var sequence strings.Builder
	var mods []core.Modification

	lastIdx := 0
	for _, m := range inlineMod.FindAllStringSubmatchIndex(rawSeq, -1) {
		sequence.WriteString(rawSeq[lastIdx:m[0]])

		aa := rawSeq[m[2]:m[3]]
		nominal, err := strconv.ParseFloat(rawSeq[m[4]:m[5]], 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid modification mass '%s': %w", rawSeq[m[4]:m[5]], err)
		}

		var base float64
		position := len(sequence.String())
		switch aa {
		case "n":
			base, position = 1, -1
		case "c":
			base, position = 17, -2 // fixed up once the sequence length is known
		default:
			mass, ok := core.ResidueMass(rune(aa[0]))
			if !ok {
				return "", nil, fmt.Errorf("unknown residue '%s'", aa)
			}
			base = math.Round(mass)
			sequence.WriteString(aa)
		}

		delta := nominal - base
		mods = append(mods, core.Modification{
			Mass:     delta,
			Position: position,
			Name:     fmt.Sprintf("%+.0f", delta),
		})

		lastIdx = m[1]
	}

	sequence.WriteString(rawSeq[lastIdx:])
	seq := sequence.String()

	for i := range mods {
		if mods[i].Position == -2 {
			mods[i].Position = len(seq)
		}
	}

	return seq, mods, nil
}

// parseComment extracts metadata from Comment field
func (r *Reader) parseComment(spec *core.Spectrum, comment string) error {
	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				spec.PrecursorMZ = mz
			}

		case "CollisionEnergy":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}

		case "RetentionTime":
			// May be comma-separated list, take first value
			rt, _, _ := strings.Cut(value, ",")
			if v, err := strconv.ParseFloat(rt, 64); err == nil {
				spec.RetentionTime = &v
			}

		case "Spectrum", "RawSpectrum":
			spec.ID = value

		case "Mods":
			mods, err := r.modDB.ParseLibraryMods(value, spec.Sequence)
			if err != nil {
				return fmt.Errorf("invalid Mods '%s': %w", value, err)
			}
			r.mergeMods(spec, mods)
		}
	}

	return nil
}

// mergeMods replaces nominal inline shifts with the exact masses and names of
// the Mods comment. Entries without an inline counterpart are added.
func (r *Reader) mergeMods(spec *core.Spectrum, mods []core.Modification) {
	for _, mod := range mods {
		replaced := false
		for j := range spec.Modifications {
			if spec.Modifications[j].Position == mod.Position {
				spec.Modifications[j] = mod
				replaced = true
				break
			}
		}
		if !replaced {
			spec.Modifications = append(spec.Modifications, mod)
		}
	}
}

// parsePeak parses a single peak line
// Format: "mz\tintensity\tannotation\t..."
func (r *Reader) parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	peak := core.Peak{
		MZ:        mz,
		Intensity: intensity,
	}

	if len(fields) >= 3 {
		annotation := fields[2]
		// Remove ppm info if present (format: "y3/0.5ppm"), keep first of a comma list
		annotation, _, _ = strings.Cut(annotation, ",")
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		if annotation != "?" {
			peak.Annotation = annotation
		}
	}

	return peak, nil
}
