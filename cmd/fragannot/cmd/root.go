// Package cmd provides CLI command implementations
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Flags for annotate command
	spectraFile   string
	spectraFormat string
	psmFile       string
	configFile    string
	outputFile    string
	modsCSV       string
	tolerance     float64
	toleranceUnit string
	ntermTypes    []string
	ctermTypes    []string
	charges       []int
	losses        []string
	deisotope     bool
	internal      bool
	workers       int
	topN          int
	cutoffPercent float64
	minMZ         float64
	maxMZ         float64

	// Flags for ions command
	showEquivalences bool
)

var rootCmd = &cobra.Command{
	Use:   "fragannot",
	Short: "fragannot - Fragment ion annotation of peptide-spectrum matches",
	Long: `fragannot annotates the peaks of MS/MS spectra with theoretical fragment
ions of the identified peptide.

Supports:
- Terminal ions (a, b, c, x, y, z and their hydrogen-shifted variants)
- Internal ions with identical cap combinations reported once
- ppm or Da tolerances, multiple charge states and neutral losses
- Optional deisotoping and peak filtering (top-N, intensity cutoff, m/z range)
- SQLite export of runs, PSMs and matches`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(ionsCmd)
	rootCmd.AddCommand(validateCmd)

	// Annotate command flags
	f := annotateCmd.Flags()
	f.StringVarP(&spectraFile, "spectra", "s", "", "Spectral library with the spectra to annotate (required)")
	f.StringVarP(&spectraFormat, "from", "f", "", "Spectra format: msp or sptxt (auto-detect if not specified)")
	f.StringVarP(&psmFile, "psms", "p", "", "Tab-separated PSM file (default: use the library peptides)")
	f.StringVarP(&configFile, "config", "c", "", "YAML parameter file")
	f.StringVarP(&outputFile, "out", "o", "", "Output SQLite database (optional)")
	f.StringVar(&modsCSV, "mods", "", "Additional modifications CSV (mod,massshift,aa)")
	f.Float64Var(&tolerance, "tolerance", 10, "Fragment mass tolerance")
	f.StringVar(&toleranceUnit, "tolerance-unit", "ppm", "Tolerance unit: ppm or da")
	f.StringSliceVar(&ntermTypes, "nterm", []string{"b"}, "N-terminal ion types (e.g. a,b,c)")
	f.StringSliceVar(&ctermTypes, "cterm", []string{"y"}, "C-terminal ion types (e.g. x,y,z)")
	f.IntSliceVar(&charges, "charges", nil, "Fragment charges (default: 1 up to the precursor charge)")
	f.StringSliceVar(&losses, "losses", nil, "Neutral losses (e.g. H2O,NH3)")
	f.BoolVar(&deisotope, "deisotope", false, "Drop isotope satellite peaks before matching")
	f.BoolVar(&internal, "internal", true, "Include internal fragment ions")
	f.IntVar(&workers, "workers", 0, "Number of worker goroutines (0 = number of CPUs)")
	f.IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	f.Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	f.Float64Var(&minMZ, "min-mz", 0, "Drop peaks below this m/z (0 = no bound)")
	f.Float64Var(&maxMZ, "max-mz", 0, "Drop peaks above this m/z (0 = no bound)")

	annotateCmd.MarkFlagRequired("spectra")

	validateCmd.Flags().StringVar(&modsCSV, "mods", "", "Additional modifications CSV (mod,massshift,aa)")

	ionsCmd.Flags().BoolVar(&showEquivalences, "equivalences", false, "Also list internal ion types reported under another name")
}
