package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Spectrum represents a single fragment spectrum with the metadata needed to
// annotate it.
type Spectrum struct {
	ID          string  // Spectrum reference used by PSMs
	Sequence    string  // Peptide sequence, when the source carries one
	Charge      int     // Precursor charge state
	PrecursorMZ float64 // Precursor m/z
	Peaks       []Peak  // Fragment peaks

	// Optional metadata
	RetentionTime   *float64 // RT or iRT
	CollisionEnergy *float64 // Normalized collision energy
	Modifications   []Modification

	// Internal tracking
	SourceFile   string
	SourceFormat string // msp
}

// Peak represents a single m/z, intensity pair with optional metadata.
type Peak struct {
	MZ         float64
	Intensity  float64
	Annotation string // Library annotation (e.g., "y3", "b2^2"), informational only
	Charge     int    // Deconvoluted fragment charge (0 = unknown)
	Satellite  bool   // Precomputed: peak is an isotope satellite of a lower peak
}

// Modification represents a peptide modification with position and mass shift.
type Modification struct {
	Mass     float64
	Position int    // 0-based position; -1 for N-term, len(seq) for C-term
	Name     string // Modification name (e.g., "Carbamidomethyl", "Oxidation")
}

// Validate checks that the peaks of a spectrum can be matched against.
func (s *Spectrum) Validate() error {
	var errs []string

	if s.ID == "" {
		errs = append(errs, "spectrum id is required")
	}

	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.SliceStable(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// TotalModMass returns the sum of all modification masses.
func (s *Spectrum) TotalModMass() float64 {
	total := 0.0
	for _, mod := range s.Modifications {
		total += mod.Mass
	}
	return total
}

// ModString returns a string representation of modifications in format "mass@pos;mass@pos;..."
func (s *Spectrum) ModString() string {
	return ModString(s.Modifications)
}

// Name returns the spectrum name in format "Sequence/Charge"
func (s *Spectrum) Name() string {
	return fmt.Sprintf("%s/%d", s.Sequence, s.Charge)
}

// ModString formats modifications as "mass@pos;mass@pos;...".
func ModString(mods []Modification) string {
	if len(mods) == 0 {
		return ""
	}

	parts := make([]string, 0, len(mods))
	for _, mod := range mods {
		parts = append(parts, fmt.Sprintf("%.6f@%d", mod.Mass, mod.Position))
	}
	return strings.Join(parts, ";")
}

// SpectrumSource resolves a spectrum reference to its parsed spectrum.
type SpectrumSource interface {
	Spectrum(id string) (*Spectrum, bool)
}

// SpectrumCollection is an in-memory SpectrumSource keyed by spectrum ID.
type SpectrumCollection struct {
	byID  map[string]*Spectrum
	order []string
}

// NewSpectrumCollection creates an empty collection.
func NewSpectrumCollection() *SpectrumCollection {
	return &SpectrumCollection{byID: make(map[string]*Spectrum)}
}

// Add stores a spectrum. A spectrum whose ID is already taken is stored under
// "ID#n" (n = 2, 3, ...) and its ID field is updated accordingly.
func (c *SpectrumCollection) Add(s *Spectrum) {
	id := s.ID
	for n := 2; ; n++ {
		if _, taken := c.byID[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s#%d", s.ID, n)
	}
	s.ID = id
	c.byID[id] = s
	c.order = append(c.order, id)
}

// Spectrum implements SpectrumSource.
func (c *SpectrumCollection) Spectrum(id string) (*Spectrum, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Len returns the number of stored spectra.
func (c *SpectrumCollection) Len() int {
	return len(c.order)
}

// All returns the spectra in insertion order.
func (c *SpectrumCollection) All() []*Spectrum {
	out := make([]*Spectrum, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
