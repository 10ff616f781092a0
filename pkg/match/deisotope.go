package match

import (
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Deisotoper flags isotope satellites in a peak list. The returned slice is
// parallel to peaks; true marks a peak to drop before matching.
type Deisotoper interface {
	Flag(peaks []core.Peak, tol Tolerance) []bool
}

// DeisotoperFunc adapts a plain function to Deisotoper.
type DeisotoperFunc func(peaks []core.Peak, tol Tolerance) []bool

// Flag implements Deisotoper.
func (f DeisotoperFunc) Flag(peaks []core.Peak, tol Tolerance) []bool {
	return f(peaks, tol)
}

// IsotopeSpacing flags a peak as a satellite when another peak sits one 13C
// spacing (divided by z) below it for some z in 1..MaxCharge and the peak is
// at most MaxIntensityRatio times as intense as that lower peak. A zero
// MaxIntensityRatio disables the intensity condition.
type IsotopeSpacing struct {
	MaxCharge         int
	MaxIntensityRatio float64
}

// Flag implements Deisotoper.
func (d IsotopeSpacing) Flag(peaks []core.Peak, tol Tolerance) []bool {
	flags := make([]bool, len(peaks))
	if len(peaks) < 2 {
		return flags
	}

	maxZ := d.MaxCharge
	if maxZ < 1 {
		maxZ = 1
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return peaks[order[a]].MZ < peaks[order[b]].MZ
	})
	mzs := make([]float64, len(order))
	for i, idx := range order {
		mzs[i] = peaks[idx].MZ
	}

	for _, j := range order {
		p := peaks[j]
	charges:
		for z := 1; z <= maxZ; z++ {
			target := p.MZ - core.C13Spacing/float64(z)
			lo, hi := tol.Window(target)
			for k := sort.SearchFloat64s(mzs, lo); k < len(mzs) && mzs[k] <= hi; k++ {
				i := order[k]
				if i == j || !tol.Within(peaks[i].MZ, target) {
					continue
				}
				if d.MaxIntensityRatio > 0 && p.Intensity > d.MaxIntensityRatio*peaks[i].Intensity {
					continue
				}
				flags[j] = true
				break charges
			}
		}
	}
	return flags
}
