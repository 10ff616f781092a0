// Package msp provides streaming readers for MSP (NIST/Prosit) format spectral libraries
package msp

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Reader provides streaming access to MSP format files
type Reader struct {
	scanner     *bufio.Scanner
	modDB       *core.ModDatabase
	lineNum     int
	pending     string // header line read past the end of the previous entry
	currentSpec *core.Spectrum
	err         error
}

// NewReader creates a new MSP reader
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

func (r *Reader) nextLine() (string, bool) {
	if r.pending != "" {
		line := r.pending
		r.pending = ""
		return line, true
	}
	if !r.scanner.Scan() {
		return "", false
	}
	r.lineNum++
	return strings.TrimSpace(r.scanner.Text()), true
}

// readSpectrum reads a single spectrum entry from the MSP file
func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	spec := &core.Spectrum{
		SourceFormat: "msp",
		Peaks:        []core.Peak{},
	}

	var (
		numPeaks  int
		inPeaks   bool
		started   bool
		comment   string
		explicit  bool // ID set by an ID/Scan header or comment key
		peaksRead int
	)

	for {
		line, ok := r.nextLine()
		if !ok {
			break
		}

		if line == "" || strings.HasPrefix(line, "#") {
			if inPeaks && peaksRead > 0 {
				// blank line ends an entry whose Num peaks overstated the count
				return r.finish(spec, comment, explicit)
			}
			continue
		}

		if !inPeaks {
			key, value, found := strings.Cut(line, ":")
			if !found {
				return nil, fmt.Errorf("line %d: unexpected line '%s' outside peak list", r.lineNum, line)
			}
			value = strings.TrimSpace(value)

			switch strings.ToLower(key) {
			case "name":
				if started {
					return nil, fmt.Errorf("line %d: entry '%s' has no peak list", r.lineNum, spec.Name())
				}
				started = true
				if err := r.parseName(spec, value); err != nil {
					return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
				}
			case "id", "scan", "spectrum":
				spec.ID = value
				explicit = true
			case "precursormz":
				if mz, err := strconv.ParseFloat(value, 64); err == nil {
					spec.PrecursorMZ = mz
				}
			case "comment":
				comment = value
			case "num peaks", "numpeaks":
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid num peaks: %w", r.lineNum, err)
				}
				if !started {
					return nil, fmt.Errorf("line %d: num peaks before name", r.lineNum)
				}
				numPeaks = n
				inPeaks = true
				if numPeaks == 0 {
					return r.finish(spec, comment, explicit)
				}
			}
			// MW and other headers are ignored; masses are recomputed
			continue
		}

		if strings.HasPrefix(line, "Name:") {
			r.pending = line
			return r.finish(spec, comment, explicit)
		}

		peak, err := r.parsePeak(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		spec.Peaks = append(spec.Peaks, peak)
		peaksRead++

		if peaksRead >= numPeaks {
			return r.finish(spec, comment, explicit)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if started {
		if !inPeaks {
			return nil, fmt.Errorf("line %d: entry '%s' has no peak list", r.lineNum, spec.Name())
		}
		return r.finish(spec, comment, explicit)
	}

	return nil, io.EOF
}

// finish applies the comment fields once the sequence is known and fills in
// the spectrum ID.
func (r *Reader) finish(spec *core.Spectrum, comment string, explicit bool) (*core.Spectrum, error) {
	if err := r.parseComment(spec, comment, explicit); err != nil {
		return nil, fmt.Errorf("entry '%s': %w", spec.Name(), err)
	}
	if spec.ID == "" {
		spec.ID = spec.Name()
	}
	spec.SortPeaks()
	return spec, nil
}

// parseName extracts sequence and charge from Name field (format: "SEQUENCE/CHARGE")
func (r *Reader) parseName(spec *core.Spectrum, name string) error {
	seq, chargeStr, ok := strings.Cut(name, "/")
	if !ok || seq == "" {
		return fmt.Errorf("invalid name format '%s', expected 'SEQUENCE/CHARGE'", name)
	}

	// Some exporters append "_NCE" or similar after the charge
	chargeStr, _, _ = strings.Cut(chargeStr, "_")
	charge, err := strconv.Atoi(chargeStr)
	if err != nil {
		return fmt.Errorf("invalid charge in name '%s': %w", name, err)
	}

	spec.Sequence = seq
	spec.Charge = charge
	return nil
}

// parseComment extracts metadata from Comment field.
// Example: Parent=414.71 Collision_energy=35 Mods=1/-1,R,TMT_Pro iRT=61.01 Scan=1234
func (r *Reader) parseComment(spec *core.Spectrum, comment string, explicit bool) error {
	var modString string
	haveMods := false

	for _, field := range strings.Fields(comment) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, "\"")

		switch key {
		case "Parent":
			if mz, err := strconv.ParseFloat(value, 64); err == nil {
				spec.PrecursorMZ = mz
			}

		case "Collision_energy", "CollisionEnergy", "NCE":
			if ce, err := strconv.ParseFloat(value, 64); err == nil {
				spec.CollisionEnergy = &ce
			}

		case "iRT", "RetentionTime", "RT":
			rt, _, _ := strings.Cut(value, ",")
			if v, err := strconv.ParseFloat(rt, 64); err == nil {
				spec.RetentionTime = &v
			}

		case "Scan", "Spectrum", "SpectrumID":
			if !explicit {
				spec.ID = value
			}

		case "Mods":
			mods, err := r.modDB.ParseLibraryMods(value, spec.Sequence)
			if err != nil {
				return fmt.Errorf("invalid Mods '%s': %w", value, err)
			}
			spec.Modifications = mods
			haveMods = true

		case "ModString":
			modString = value
		}
	}

	if !haveMods && modString != "" {
		mods, err := r.parseModString(modString, spec.Sequence)
		if err != nil {
			return fmt.Errorf("invalid ModString '%s': %w", modString, err)
		}
		spec.Modifications = mods
	}

	return nil
}

// parseModString parses the Prosit ModString field.
// Format: SEQUENCE//Mod@AAPos;Mod@AAPos/Charge, e.g. EIESAGDITFNR//TMT_Pro@E0/4.
// Positions are 0-based; "-1" marks the N-terminus.
func (r *Reader) parseModString(modString, sequence string) ([]core.Modification, error) {
	_, modPart, ok := strings.Cut(modString, "//")
	if !ok {
		return nil, nil
	}
	modPart, _, _ = strings.Cut(modPart, "/")

	var mods []core.Modification
	for _, modSpec := range strings.Split(modPart, ";") {
		modSpec = strings.TrimSpace(modSpec)
		if modSpec == "" {
			continue
		}

		name, posStr, ok := strings.Cut(modSpec, "@")
		if !ok {
			return nil, fmt.Errorf("invalid modification '%s', expected 'Name@Pos'", modSpec)
		}

		// Remove amino acid letter from position if present
		posStr = strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWY")
		pos, err := strconv.Atoi(posStr)
		if err != nil {
			return nil, fmt.Errorf("invalid position in '%s': %w", modSpec, err)
		}
		if pos < -1 || pos >= len(sequence) {
			return nil, fmt.Errorf("position %d outside sequence of length %d", pos, len(sequence))
		}

		mass, err := r.modDB.Resolve(name)
		if err != nil {
			return nil, err
		}

		mods = append(mods, core.Modification{Mass: mass, Position: pos, Name: name})
	}

	return mods, nil
}

// parsePeak parses a single peak line (format: "mz\tintensity\t\"annotation\"")
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

	// Library annotation, kept for display only
	if len(fields) >= 3 {
		annotation := strings.Trim(fields[2], "\"")
		if idx := strings.Index(annotation, "/"); idx > 0 {
			annotation = annotation[:idx]
		}
		if annotation != "?" {
			peak.Annotation = annotation
		}
	}

	return peak, nil
}
