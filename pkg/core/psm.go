package core

import "fmt"

// PSM is a peptide-spectrum match: an identified peptide, its precursor
// charge and the spectrum it was identified from.
type PSM struct {
	ID         string
	Peptide    *Peptide
	Charge     int
	SpectrumID string
}

// PSMFromSpectrum builds a PSM from a library spectrum that carries its own
// sequence, charge and modifications. The PSM ID is the spectrum ID.
func PSMFromSpectrum(s *Spectrum) (*PSM, error) {
	pep, err := NewPeptide(s.Sequence, s.Modifications)
	if err != nil {
		return nil, err
	}
	if s.Charge <= 0 {
		return nil, fmt.Errorf("spectrum %s: charge must be positive", s.ID)
	}
	return &PSM{
		ID:         s.ID,
		Peptide:    pep,
		Charge:     s.Charge,
		SpectrumID: s.ID,
	}, nil
}
