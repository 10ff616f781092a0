package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods map[string]float64 // lower-cased name -> mass shift
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods: make(map[string]float64),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa)
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		modName := strings.TrimSpace(parts[0])
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}

		db.Add(modName, mass)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification name. Lookup ignores case.
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mass, ok := db.mods[strings.ToLower(name)]
	return mass, ok
}

// Add adds or updates a modification
func (db *ModDatabase) Add(name string, mass float64) {
	db.mods[strings.ToLower(name)] = mass
}

// Len returns the number of known modifications.
func (db *ModDatabase) Len() int {
	return len(db.mods)
}

// Resolve turns a modification token into a mass shift. The token is either a
// signed mass ("+15.9949", "-17.02") or a modification name.
func (db *ModDatabase) Resolve(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty modification")
	}
	if mass, err := strconv.ParseFloat(token, 64); err == nil {
		return mass, nil
	}
	if mass, ok := db.GetMass(token); ok {
		return mass, nil
	}
	return 0, fmt.Errorf("unknown modification '%s'", token)
}

// ParseModString parses a modification string like "57.021464@2;15.994915@8",
// "Carbamidomethyl@C2;Oxidation@M8" or "Acetyl@N-term".
func (db *ModDatabase) ParseModString(modStr string, sequence string) ([]Modification, error) {
	if modStr == "" {
		return nil, nil
	}

	var mods []Modification
	for _, part := range strings.Split(modStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		nameOrMass, posStr, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'name@position' or 'mass@position'", part)
		}
		nameOrMass = strings.TrimSpace(nameOrMass)

		mass, err := db.Resolve(nameOrMass)
		if err != nil {
			return nil, err
		}

		position, err := parsePosition(posStr, sequence)
		if err != nil {
			return nil, fmt.Errorf("invalid position '%s': %w", posStr, err)
		}

		mods = append(mods, Modification{
			Mass:     mass,
			Position: position,
			Name:     nameOrMass,
		})
	}

	return mods, nil
}

// parsePosition parses a 1-based position that may carry an amino acid letter
// ("C2") or name a terminus ("N-term", "C-term", "-1").
func parsePosition(posStr string, sequence string) (int, error) {
	posStr = strings.TrimSpace(posStr)

	switch strings.ToLower(posStr) {
	case "n-term", "nterm", "-1", "0":
		return -1, nil
	case "c-term", "cterm":
		return len(sequence), nil
	}

	posStr = strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWY")

	pos, err := strconv.Atoi(posStr)
	if err != nil {
		return 0, fmt.Errorf("invalid position number: %w", err)
	}
	if pos < 1 || pos > len(sequence) {
		return 0, fmt.Errorf("position %d outside sequence of length %d", pos, len(sequence))
	}

	return pos - 1, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	for name, mass := range map[string]float64{
		"Acetyl":               42.010565,
		"Amidated":             -0.984016,
		"Biotin":               226.077598,
		"Carbamidomethyl":      57.021464,
		"Carbamyl":             43.005814,
		"Carboxymethyl":        58.005479,
		"Deamidated":           0.984016,
		"Met->Hse":             -29.992806,
		"Met->Hsl":             -48.003371,
		"NIPCAM":               99.068414,
		"Phospho":              79.966331,
		"Dehydrated":           -18.010565,
		"Propionamide":         71.037114,
		"Pyro-carbamidomethyl": 39.994915,
		"Glu->pyro-Glu":        -18.010565,
		"Gln->pyro-Glu":        -17.026549,
		"Cation:Na":            21.981943,
		"Methyl":               14.01565,
		"Oxidation":            15.994915,
		"Dimethyl":             28.0313,
		"Trimethyl":            42.04695,
		"Methylthio":           45.987721,
		"Sulfo":                79.956815,
		"Hex":                  162.052824,
		"Lipoyl":               188.032956,
		"HexNAc":               203.079373,
		"Farnesyl":             204.187801,
		"Myristoyl":            210.198366,
		"PyridoxalPhosphate":   229.014009,
		"Palmitoyl":            238.229666,
		"GeranylGeranyl":       272.250401,
		"Phosphopantetheine":   340.085794,
		"FAD":                  783.141486,
		"Guanidinyl":           42.021798,
		"HNE":                  156.11503,
		"Glucuronyl":           176.032088,
		"Glutathione":          305.068156,
		"Propionyl":            56.026215,
		"TMT":                  229.162932,
		"TMTPro":               304.207146,
		"TMT_Pro":              304.207146,
		"TMT6plex":             229.162932,
		"TMT10plex":            229.162932,
		"TMT11plex":            229.162932,
		"TMT16plex":            304.207146,
		"iTRAQ4plex":           144.102063,
		"iTRAQ8plex":           304.205360,
	} {
		db.Add(name, mass)
	}

	return db
}

// ParseLibraryMods parses the "Mods=" value used by MSP and SpectraST
// libraries: "count/pos,AA,Name/pos,AA,Name...". Positions are 0-based and
// -1 marks the peptide N-terminus.
func (db *ModDatabase) ParseLibraryMods(value string, sequence string) ([]Modification, error) {
	parts := strings.Split(value, "/")
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid modification count '%s': %w", parts[0], err)
	}
	if count != len(parts)-1 {
		return nil, fmt.Errorf("modification count %d does not match %d entries", count, len(parts)-1)
	}

	var mods []Modification
	for _, entry := range parts[1:] {
		fields := strings.Split(entry, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("invalid modification entry '%s', expected 'pos,AA,Name'", entry)
		}

		pos, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("invalid modification position '%s': %w", fields[0], err)
		}
		if pos < -1 || pos >= len(sequence) {
			return nil, fmt.Errorf("position %d outside sequence of length %d", pos, len(sequence))
		}

		name := strings.TrimSpace(fields[2])
		mass, err := db.Resolve(name)
		if err != nil {
			return nil, err
		}

		mods = append(mods, Modification{Mass: mass, Position: pos, Name: name})
	}

	return mods, nil
}
