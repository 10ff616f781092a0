package annotate

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/match"
)

// Result is the annotation of one PSM: every peak index that matched at least
// one fragment, mapped to all of its matches.
type Result struct {
	PSMID       string
	Sequence    string
	Peptidoform string
	Charge      int
	SpectrumID  string

	PeakCount      int
	TotalIntensity float64
	Peaks          map[int][]match.Match
}

// Assemble groups per-fragment matches by observed peak and attaches the PSM
// metadata. It fails with MissingSpectrumError when the PSM's spectrum is not
// in spectra.
func Assemble(psm *core.PSM, spectra core.SpectrumSource, matchesByFragment [][]match.Match) (*Result, error) {
	spec, ok := spectra.Spectrum(psm.SpectrumID)
	if !ok {
		return nil, &core.MissingSpectrumError{PSMID: psm.ID, SpectrumID: psm.SpectrumID}
	}

	res := &Result{
		PSMID:      psm.ID,
		Charge:     psm.Charge,
		SpectrumID: psm.SpectrumID,
		PeakCount:  len(spec.Peaks),
		Peaks:      make(map[int][]match.Match),
	}
	if psm.Peptide != nil {
		res.Sequence = psm.Peptide.Sequence
		res.Peptidoform = psm.Peptide.String()
	}
	for _, p := range spec.Peaks {
		res.TotalIntensity += p.Intensity
	}

	for _, matches := range matchesByFragment {
		for _, m := range matches {
			if m.PeakIndex < 0 || m.PeakIndex >= len(spec.Peaks) {
				return nil, fmt.Errorf("psm %s: match references peak %d of %d", psm.ID, m.PeakIndex, len(spec.Peaks))
			}
			res.Peaks[m.PeakIndex] = append(res.Peaks[m.PeakIndex], m)
		}
	}
	return res, nil
}

// MatchedPeaks returns the indices of annotated peaks in ascending order.
func (r *Result) MatchedPeaks() []int {
	idx := make([]int, 0, len(r.Peaks))
	for i := range r.Peaks {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// MatchCount returns the total number of matches over all peaks.
func (r *Result) MatchCount() int {
	n := 0
	for _, ms := range r.Peaks {
		n += len(ms)
	}
	return n
}

// Best returns the match of a peak with the smallest absolute error; the
// first such match wins ties. It is one possible resolution policy for
// ambiguous peaks and leaves Peaks untouched.
func (r *Result) Best(peak int) (match.Match, bool) {
	ms := r.Peaks[peak]
	if len(ms) == 0 {
		return match.Match{}, false
	}
	best := ms[0]
	for _, m := range ms[1:] {
		if math.Abs(m.Error) < math.Abs(best.Error) {
			best = m
		}
	}
	return best, true
}

// ExplainedIntensity returns the fraction of total intensity carried by
// annotated peaks.
func (r *Result) ExplainedIntensity() float64 {
	if r.TotalIntensity <= 0 {
		return 0
	}
	explained := 0.0
	for _, ms := range r.Peaks {
		explained += ms[0].Intensity
	}
	return explained / r.TotalIntensity
}
