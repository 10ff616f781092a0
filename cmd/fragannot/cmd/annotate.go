package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/fragannot/pkg/annotate"
	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/filter"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
	"github.com/ChrisMcGann/fragannot/pkg/reader"
	"github.com/ChrisMcGann/fragannot/pkg/reader/psmtsv"
	"github.com/ChrisMcGann/fragannot/pkg/writer/sqlite"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate spectra with theoretical fragment ions",
	Long: `Annotate the peaks of each PSM's spectrum with matching terminal and
internal fragment ions.

PSMs come from a tab-separated file (columns psm_id, spectrum_id, peptidoform,
charge) or, without --psms, from the peptides stored in the spectral library.

Examples:
  # Annotate a library against its own peptides with default settings
  fragannot annotate --spectra library.msp

  # Annotate search results with c/z ions at 0.02 Da and export to SQLite
  fragannot annotate -s run.msp -p psms.tsv --nterm c --cterm z+1 \
    --tolerance 0.02 --tolerance-unit da --out run.sqlite

  # Use a parameter file, overriding one setting
  fragannot annotate -s library.sptxt -c params.yaml --deisotope`,
	RunE: runAnnotate,
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(spectraFile); os.IsNotExist(err) {
		return fmt.Errorf("spectra file does not exist: %s", spectraFile)
	}

	s, err := loadSettings(configFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, &s)

	reg := ions.NewRegistry()
	annotator, err := s.check(reg)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	modDB, err := loadModDatabase(modsCSV)
	if err != nil {
		return err
	}

	format := spectraFormat
	if format == "" {
		if format, err = reader.DetectFormat(spectraFile); err != nil {
			return fmt.Errorf("%w, please specify --from", err)
		}
	}

	fmt.Printf("Annotating %s...\n", spectraFile)
	fmt.Printf("Format: %s\n", format)
	fmt.Printf("Tolerance: %g %s\n", s.Tolerance, s.ToleranceUnit)
	fmt.Printf("Ion types: %s / %s", strings.Join(s.NTermTypes, ","), strings.Join(s.CTermTypes, ","))
	if s.Internal {
		fmt.Printf(" + internal")
	}
	fmt.Println()
	if len(s.Losses) > 0 {
		fmt.Printf("Neutral losses: %s\n", strings.Join(s.Losses, ","))
	}

	spectra, skipped, err := loadSpectra(spectraFile, format, modDB, &s.Filter)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d spectra\n", spectra.Len())
	if skipped > 0 {
		fmt.Printf("Skipped: %d spectra (validation errors)\n", skipped)
	}

	psms, err := loadPSMs(psmFile, spectra, modDB)
	if err != nil {
		return err
	}
	fmt.Printf("Annotating %d PSMs...\n", len(psms))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	batch, err := annotator.AnnotateAll(ctx, psms, spectra)
	if err != nil {
		return fmt.Errorf("annotation interrupted: %w", err)
	}

	failed := make([]string, 0, len(batch.Errors))
	for id := range batch.Errors {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		fmt.Fprintf(os.Stderr, "Warning: PSM %s: %v\n", id, batch.Errors[id])
	}

	if outputFile != "" {
		if err := writeResults(outputFile, s.Config, psms, spectra, batch); err != nil {
			return err
		}
	}

	printSummary(batch)
	return nil
}

// loadSpectra reads the library, filtering and validating each spectrum.
func loadSpectra(path, format string, modDB *core.ModDatabase, fc *filter.Config) (*core.SpectrumCollection, int, error) {
	inFile, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open spectra file: %w", err)
	}
	defer inFile.Close()

	sr, err := reader.New(format, inFile, modDB)
	if err != nil {
		return nil, 0, err
	}

	skipped := 0
	spectra, err := reader.Load(sr, path, func(spec *core.Spectrum) error {
		if err := fc.Apply(spec); err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid spectrum %s: %v\n", spec.ID, err)
			skipped++
			return reader.ErrSkip
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return spectra, skipped, nil
}

// loadPSMs reads the PSM table, or derives one PSM per library spectrum.
func loadPSMs(path string, spectra *core.SpectrumCollection, modDB *core.ModDatabase) ([]*core.PSM, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open PSM file: %w", err)
		}
		defer f.Close()

		psms, err := psmtsv.ReadAll(f, modDB)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		return psms, nil
	}

	psms := make([]*core.PSM, 0, spectra.Len())
	for _, spec := range spectra.All() {
		psm, err := core.PSMFromSpectrum(spec)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: spectrum %s has no usable peptide: %v\n", spec.ID, err)
			continue
		}
		psms = append(psms, psm)
	}
	return psms, nil
}

func writeResults(path string, cfg annotate.Config, psms []*core.PSM, spectra core.SpectrumSource, batch *annotate.Batch) error {
	writer, err := sqlite.NewWriter(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	for _, psm := range psms {
		res, ok := batch.Results[psm.ID]
		if !ok {
			continue
		}
		spec, _ := spectra.Spectrum(psm.SpectrumID)
		if err := writer.WriteResult(psm, spec, res); err != nil {
			return fmt.Errorf("failed to write PSM %s: %w", psm.ID, err)
		}
	}

	nPSM, nMatch := writer.Counts()
	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	fmt.Printf("Wrote %d PSMs and %d matches to %s (run %s)\n", nPSM, nMatch, path, writer.RunID())
	return nil
}

func printSummary(batch *annotate.Batch) {
	var (
		peaks     int
		matches   int
		explained float64
	)
	for _, res := range batch.Results {
		peaks += len(res.Peaks)
		matches += res.MatchCount()
		explained += res.ExplainedIntensity()
	}

	fmt.Printf("\nAnnotation complete!\n")
	fmt.Printf("Annotated: %d PSMs\n", len(batch.Results))
	if len(batch.Errors) > 0 {
		fmt.Printf("Failed: %d PSMs\n", len(batch.Errors))
	}
	fmt.Printf("Annotated peaks: %d (%d matches)\n", peaks, matches)
	if n := len(batch.Results); n > 0 {
		fmt.Printf("Mean explained intensity: %.1f%%\n", 100*explained/float64(n))
	}
}
