package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/fragannot/pkg/annotate"
	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/filter"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
)

// settings is the parameter file layout: annotation and filter keys share
// one flat YAML document.
type settings struct {
	annotate.Config `yaml:",inline"`
	Filter          filter.Config `yaml:",inline"`
}

func defaultSettings() settings {
	return settings{Config: annotate.DefaultConfig()}
}

// decodeSettings reads a YAML parameter file on top of the defaults.
func decodeSettings(r io.Reader) (settings, error) {
	s := defaultSettings()
	if err := annotate.DecodeYAML(r, &s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func loadSettings(path string) (settings, error) {
	if path == "" {
		return defaultSettings(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return settings{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return decodeSettings(f)
}

// applyFlags overrides settings with the flags given on the command line.
func applyFlags(cmd *cobra.Command, s *settings) {
	changed := cmd.Flags().Changed

	if changed("tolerance") {
		s.Tolerance = tolerance
	}
	if changed("tolerance-unit") {
		s.ToleranceUnit = toleranceUnit
	}
	if changed("nterm") {
		s.NTermTypes = ntermTypes
	}
	if changed("cterm") {
		s.CTermTypes = ctermTypes
	}
	if changed("charges") {
		s.Charges = charges
	}
	if changed("losses") {
		s.Losses = losses
	}
	if changed("deisotope") {
		s.Deisotope = deisotope
	}
	if changed("internal") {
		s.Internal = internal
	}
	if changed("workers") {
		s.Workers = workers
	}
	if changed("top-n") {
		s.Filter.TopN = topN
	}
	if changed("cutoff") {
		s.Filter.IntensityCutoff = cutoffPercent
	}
	if changed("min-mz") {
		s.Filter.MinMZ = minMZ
	}
	if changed("max-mz") {
		s.Filter.MaxMZ = maxMZ
	}
}

// check validates the settings and builds the annotator they describe.
func (s settings) check(reg *ions.Registry) (*annotate.Annotator, error) {
	if err := s.Filter.Validate(); err != nil {
		return nil, err
	}
	return annotate.New(reg, s.Config)
}

// loadModDatabase returns the built-in modifications plus those of path.
func loadModDatabase(path string) (*core.ModDatabase, error) {
	modDB := core.DefaultModDatabase()

	if path == "" {
		// unimod_custom.csv in the working directory is used when present
		if _, err := os.Stat("unimod_custom.csv"); err != nil {
			return modDB, nil
		}
		path = "unimod_custom.csv"
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open modifications: %w", err)
	}
	defer f.Close()

	if err := modDB.LoadFromCSV(f); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return modDB, nil
}
