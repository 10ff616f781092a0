// Package filter provides peak filtering applied to spectra before annotation
package filter

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	TopN            int     `yaml:"top_n"`            // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 `yaml:"intensity_cutoff"` // Keep only peaks above this % of base peak (0 = no cutoff)
	MinMZ           float64 `yaml:"min_mz"`           // Drop peaks below this m/z (0 = no bound)
	MaxMZ           float64 `yaml:"max_mz"`           // Drop peaks above this m/z (0 = no bound)
}

// Validate rejects settings that would silently drop every peak.
func (c *Config) Validate() error {
	if c.TopN < 0 {
		return &core.ConfigurationError{Field: "top_n", Message: fmt.Sprintf("must be >= 0, got %d", c.TopN)}
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return &core.ConfigurationError{Field: "intensity_cutoff", Message: fmt.Sprintf("must be within 0-100, got %g", c.IntensityCutoff)}
	}
	if c.MinMZ < 0 || c.MaxMZ < 0 {
		return &core.ConfigurationError{Field: "min_mz/max_mz", Message: "m/z bounds must be >= 0"}
	}
	if c.MaxMZ > 0 && c.MinMZ > c.MaxMZ {
		return &core.ConfigurationError{Field: "min_mz/max_mz", Message: fmt.Sprintf("min_mz %g exceeds max_mz %g", c.MinMZ, c.MaxMZ)}
	}
	return nil
}

// Active reports whether Apply would change anything besides removing zero
// intensity peaks.
func (c *Config) Active() bool {
	return c.TopN > 0 || c.IntensityCutoff > 0 || c.MinMZ > 0 || c.MaxMZ > 0
}

// Apply applies all configured filters to a spectrum
func (c *Config) Apply(spec *core.Spectrum) error {
	if err := c.Validate(); err != nil {
		return err
	}

	RemoveZeroIntensityPeaks(spec)

	// Range first so the base peak is taken from the kept window
	if c.MinMZ > 0 || c.MaxMZ > 0 {
		c.filterByRange(spec)
	}

	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}

	if c.TopN > 0 {
		c.filterTopN(spec)
	}

	// Ensure peaks are sorted after all filtering
	spec.SortPeaks()

	return nil
}

// filterByRange keeps peaks within [MinMZ, MaxMZ]
func (c *Config) filterByRange(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if c.MinMZ > 0 && peak.MZ < c.MinMZ {
			continue
		}
		if c.MaxMZ > 0 && peak.MZ > c.MaxMZ {
			continue
		}
		filtered = append(filtered, peak)
	}
	spec.Peaks = filtered
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(spec *core.Spectrum) {
	if len(spec.Peaks) == 0 {
		return
	}

	maxIntensity := 0.0
	for _, peak := range spec.Peaks {
		if peak.Intensity > maxIntensity {
			maxIntensity = peak.Intensity
		}
	}

	threshold := (c.IntensityCutoff / 100.0) * maxIntensity

	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}

	spec.Peaks = filtered
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}

	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)

	// Stable so equal intensities keep m/z order
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})

	spec.Peaks = peaks[:c.TopN]
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
