package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
	"github.com/ChrisMcGann/fragannot/pkg/reader"
	"github.com/ChrisMcGann/fragannot/pkg/reader/psmtsv"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a parameter file, spectral library or PSM table",
	Long: `Validate that an input file is properly formatted.

The file kind is taken from its extension:
  .yaml, .yml   parameter file (all settings are checked)
  .msp, .sptxt  spectral library (every spectrum is parsed and checked)
  .tsv, .txt    PSM table (every peptidoform is parsed)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return validateConfig(path)
		case ".msp", ".sptxt":
			return validateLibrary(path)
		case ".tsv", ".txt":
			return validatePSMs(path)
		}
		return fmt.Errorf("cannot tell the kind of '%s' from its extension", path)
	},
}

func validateConfig(path string) error {
	s, err := loadSettings(path)
	if err != nil {
		return err
	}
	a, err := s.check(ions.NewRegistry())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	cfg := a.Config()
	fmt.Printf("%s: OK\n", path)
	fmt.Printf("Tolerance: %g %s\n", cfg.Tolerance, cfg.ToleranceUnit)
	fmt.Printf("N-terminal ions: %s\n", strings.Join(cfg.NTermTypes, ","))
	fmt.Printf("C-terminal ions: %s\n", strings.Join(cfg.CTermTypes, ","))
	if len(cfg.Charges) == 0 {
		fmt.Printf("Charges: 1 up to precursor charge\n")
	} else {
		fmt.Printf("Charges: %v\n", cfg.Charges)
	}
	if s.Filter.Active() {
		fmt.Printf("Peak filter: top-n %d, cutoff %g%%, m/z %g-%g\n",
			s.Filter.TopN, s.Filter.IntensityCutoff, s.Filter.MinMZ, s.Filter.MaxMZ)
	}
	return nil
}

func validateLibrary(path string) error {
	modDB, err := loadModDatabase(modsCSV)
	if err != nil {
		return err
	}
	format, err := reader.DetectFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sr, err := reader.New(format, f, modDB)
	if err != nil {
		return err
	}

	invalid := 0
	spectra, err := reader.Load(sr, path, func(spec *core.Spectrum) error {
		if err := spec.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid spectrum %s: %v\n", spec.ID, err)
			invalid++
			return reader.ErrSkip
		}
		if _, err := core.PSMFromSpectrum(spec); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: spectrum %s: %v\n", spec.ID, err)
			invalid++
			return reader.ErrSkip
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d valid spectra\n", path, spectra.Len())
	if invalid > 0 {
		return fmt.Errorf("%d invalid spectra", invalid)
	}
	return nil
}

func validatePSMs(path string) error {
	modDB, err := loadModDatabase(modsCSV)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	psms, err := psmtsv.ReadAll(f, modDB)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Printf("%s: %d PSMs\n", path, len(psms))
	return nil
}
