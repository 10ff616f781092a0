// Package match resolves theoretical fragments against observed peaks within a
// mass tolerance, over charge states and neutral losses.
package match

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/fragment"
)

// defaultMaxCharge bounds the default deisotoper when no charges are fixed.
const defaultMaxCharge = 4

// Params configures a Matcher.
type Params struct {
	Tolerance Tolerance
	// Charges are the fragment charge states to try. Empty means the caller
	// passes charges per call (see Matcher.Match).
	Charges []int
	// Losses are names from LossTable; "no loss" is always included.
	Losses    []string
	LossTable LossTable // nil uses DefaultLosses
	// Deisotoper flags satellites when deisotoping; nil uses IsotopeSpacing.
	Deisotoper Deisotoper
}

// Match is one fragment/charge/loss explanation of an observed peak.
type Match struct {
	Fragment      fragment.Fragment
	Charge        int
	Loss          Loss
	TheoreticalMZ float64
	PeakIndex     int // index into the spectrum's original peak list
	ObservedMZ    float64
	Intensity     float64
	Error         float64 // observed - theoretical, Da
	PPMError      float64 // Error relative to theoretical, ppm
}

// Label renders the match as "b2", "y3^2" or "by[2-4]-H2O^2".
func (m Match) Label() string {
	s := m.Fragment.Label()
	if m.Loss.Name != "" {
		s += "-" + m.Loss.Name
	}
	if m.Charge > 1 {
		s += fmt.Sprintf("^%d", m.Charge)
	}
	return s
}

// Matcher computes theoretical m/z values and finds the peaks inside the
// tolerance window. A Matcher is immutable and safe for concurrent use.
type Matcher struct {
	tol        Tolerance
	charges    []int
	losses     []Loss
	deisotoper Deisotoper
}

// NewMatcher validates p. A non-positive tolerance fails with
// InvalidToleranceError; unknown units, losses or non-positive charges fail
// with ConfigurationError.
func NewMatcher(p Params) (*Matcher, error) {
	tol, err := p.Tolerance.normalize()
	if err != nil {
		return nil, err
	}
	charges, err := uniqueCharges(p.Charges)
	if err != nil {
		return nil, err
	}

	table := p.LossTable
	if table == nil {
		table = DefaultLosses()
	}
	losses, err := table.Resolve(p.Losses)
	if err != nil {
		return nil, err
	}

	d := p.Deisotoper
	if d == nil {
		maxZ := defaultMaxCharge
		if len(charges) > 0 {
			maxZ = 0
			for _, z := range charges {
				maxZ = max(maxZ, z)
			}
		}
		d = IsotopeSpacing{MaxCharge: maxZ, MaxIntensityRatio: 1}
	}

	return &Matcher{
		tol:        tol,
		charges:    charges,
		losses:     losses,
		deisotoper: d,
	}, nil
}

// uniqueCharges checks that every charge is positive and drops repeats,
// keeping first-seen order.
func uniqueCharges(charges []int) ([]int, error) {
	var out []int
	seen := make(map[int]bool, len(charges))
	for _, z := range charges {
		if z <= 0 {
			return nil, &core.ConfigurationError{
				Field:   "charges",
				Message: fmt.Sprintf("charge %d must be a positive integer", z),
			}
		}
		if !seen[z] {
			seen[z] = true
			out = append(out, z)
		}
	}
	return out, nil
}

// Tolerance returns the matcher's tolerance.
func (m *Matcher) Tolerance() Tolerance { return m.tol }

// Charges returns the configured charge states (nil when chosen per call).
func (m *Matcher) Charges() []int { return append([]int(nil), m.charges...) }

// Losses returns the losses tried for every fragment, no-loss first.
func (m *Matcher) Losses() []Loss { return append([]Loss(nil), m.losses...) }

// PeakSet is the candidate peak list of one spectrum, sorted by m/z.
type PeakSet struct {
	mz        []float64
	index     []int
	intensity []float64
	total     int
}

// Len returns the number of candidate peaks.
func (ps *PeakSet) Len() int { return len(ps.mz) }

// Removed returns how many peaks deisotoping dropped.
func (ps *PeakSet) Removed() int { return ps.total - len(ps.mz) }

// Prepare builds the candidate peak set for one spectrum. With deisotope set,
// peaks already flagged Satellite and peaks the Deisotoper flags are dropped.
// This runs once per spectrum, not per fragment.
func (m *Matcher) Prepare(peaks []core.Peak, deisotope bool) *PeakSet {
	var flags []bool
	if deisotope {
		flags = m.deisotoper.Flag(peaks, m.tol)
	}

	ps := &PeakSet{total: len(peaks)}
	for i, p := range peaks {
		if deisotope && (p.Satellite || (i < len(flags) && flags[i])) {
			continue
		}
		ps.index = append(ps.index, i)
	}
	sort.SliceStable(ps.index, func(a, b int) bool {
		return peaks[ps.index[a]].MZ < peaks[ps.index[b]].MZ
	})
	ps.mz = make([]float64, len(ps.index))
	ps.intensity = make([]float64, len(ps.index))
	for k, i := range ps.index {
		ps.mz[k] = peaks[i].MZ
		ps.intensity[k] = peaks[i].Intensity
	}
	return ps
}

// TheoreticalMZ returns (mass - loss + z*proton) / z.
func TheoreticalMZ(mass float64, loss Loss, charge int) float64 {
	return (mass - loss.Mass + float64(charge)*core.ProtonMass) / float64(charge)
}

// Match returns every (charge, loss, peak) combination within tolerance of f.
// charges overrides the configured charges when non-empty. A peak may appear
// in several matches; no ambiguity is resolved here.
func (m *Matcher) Match(f fragment.Fragment, ps *PeakSet, charges []int) []Match {
	if len(charges) == 0 {
		charges = m.charges
	}

	var out []Match
	for _, z := range charges {
		if z <= 0 {
			continue
		}
		for _, loss := range m.losses {
			theo := TheoreticalMZ(f.Mass, loss, z)
			if theo <= 0 {
				continue
			}
			lo, hi := m.tol.Window(theo)
			for k := sort.SearchFloat64s(ps.mz, lo); k < len(ps.mz) && ps.mz[k] <= hi; k++ {
				obs := ps.mz[k]
				if !m.tol.Within(obs, theo) {
					continue
				}
				diff := obs - theo
				out = append(out, Match{
					Fragment:      f,
					Charge:        z,
					Loss:          loss,
					TheoreticalMZ: theo,
					PeakIndex:     ps.index[k],
					ObservedMZ:    obs,
					Intensity:     ps.intensity[k],
					Error:         diff,
					PPMError:      diff / theo * 1e6,
				})
			}
		}
	}
	return out
}
