package annotate

import (
	"fmt"
	"io"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/fragannot/pkg/match"
)

// Config holds the annotation parameters. The yaml tags define the parameter
// file format read by LoadConfig.
type Config struct {
	Tolerance     float64  `yaml:"tolerance"`
	ToleranceUnit string   `yaml:"tolerance_unit"`
	NTermTypes    []string `yaml:"nterm_types"`
	CTermTypes    []string `yaml:"cterm_types"`
	Charges       []int    `yaml:"charges"` // empty = 1..precursor charge
	Losses        []string `yaml:"losses"`
	Deisotope     bool     `yaml:"deisotope"`
	Internal      bool     `yaml:"internal"`
	Workers       int      `yaml:"workers"` // 0 = runtime.NumCPU()

	// Pluggable strategies; not part of the file format.
	LossTable  match.LossTable  `yaml:"-"`
	Deisotoper match.Deisotoper `yaml:"-"`
}

// DefaultConfig returns b/y terminal and internal ions at 10 ppm with
// charges up to the precursor charge, no losses and no deisotoping.
func DefaultConfig() Config {
	return Config{
		Tolerance:     10,
		ToleranceUnit: string(match.PPM),
		NTermTypes:    []string{"b"},
		CTermTypes:    []string{"y"},
		Internal:      true,
	}
}

// LoadConfig reads a YAML parameter file on top of DefaultConfig. Keys not
// present in the file keep their defaults; unknown keys are an error.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := DecodeYAML(r, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeYAML decodes a parameter document into v, which holds the defaults.
// Unknown keys are an error and an empty document leaves v unchanged. Types
// embedding Config inline read the same keys as LoadConfig.
func DecodeYAML(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// MatchParams converts the config into matcher parameters.
func (c Config) MatchParams() (match.Params, error) {
	unit, err := match.ParseUnit(c.ToleranceUnit)
	if err != nil {
		return match.Params{}, err
	}
	return match.Params{
		Tolerance:  match.Tolerance{Value: c.Tolerance, Unit: unit},
		Charges:    c.Charges,
		Losses:     c.Losses,
		LossTable:  c.LossTable,
		Deisotoper: c.Deisotoper,
	}, nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
