package core

import "fmt"

// ValidationError represents an error found during spectrum validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// ConfigurationError reports an unknown ion-cap name, tolerance unit, loss
// name or another unusable annotation parameter.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
}

// InvalidToleranceError reports a non-positive matching tolerance.
type InvalidToleranceError struct {
	Tolerance float64
}

func (e *InvalidToleranceError) Error() string {
	return fmt.Sprintf("invalid tolerance %g: must be positive", e.Tolerance)
}

// MissingSpectrumError reports a PSM whose spectrum is not in the collection.
type MissingSpectrumError struct {
	PSMID      string
	SpectrumID string
}

func (e *MissingSpectrumError) Error() string {
	return fmt.Sprintf("psm %s references missing spectrum %q", e.PSMID, e.SpectrumID)
}

// InvalidPeptideError reports an empty sequence, an unknown residue or a
// modification that cannot be resolved to a mass.
type InvalidPeptideError struct {
	Sequence string
	Message  string
}

func (e *InvalidPeptideError) Error() string {
	return fmt.Sprintf("invalid peptide %q: %s", e.Sequence, e.Message)
}
