// Package core provides chemistry calculations and the peptide, spectrum and
// PSM models shared by the annotation packages.
package core

import (
	"fmt"
	"math"
	"strings"
)

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900
	MassP = 30.9737615100

	// Proton mass for charge calculations
	ProtonMass = 1.00727646688

	// Mass difference between the 13C and 12C isotopes
	C13Spacing = 1.0033548378
)

// Composition stores an elemental composition. Counts may be negative when the
// composition describes a delta (an ion cap or a neutral loss). Composition is
// comparable, so two compositions with the same counts are equal with == and
// hash identically as map keys.
type Composition struct {
	C, H, N, O, S, P int
}

// Water is the composition of H2O added to a residue sum to form a free peptide.
var Water = Composition{H: 2, O: 1}

// Add returns the element-wise sum of c and o.
func (c Composition) Add(o Composition) Composition {
	return Composition{
		C: c.C + o.C,
		H: c.H + o.H,
		N: c.N + o.N,
		O: c.O + o.O,
		S: c.S + o.S,
		P: c.P + o.P,
	}
}

// Sub returns the element-wise difference c - o.
func (c Composition) Sub(o Composition) Composition {
	return c.Add(o.Scale(-1))
}

// Scale multiplies every count by n.
func (c Composition) Scale(n int) Composition {
	return Composition{C: c.C * n, H: c.H * n, N: c.N * n, O: c.O * n, S: c.S * n, P: c.P * n}
}

// IsZero reports whether every count is zero.
func (c Composition) IsZero() bool {
	return c == Composition{}
}

// Mass returns the monoisotopic mass of the composition.
func (c Composition) Mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS +
		float64(c.P)*MassP
}

// String renders the composition as a Hill-ordered formula, e.g. "H-2O-1".
func (c Composition) String() string {
	if c.IsZero() {
		return "0"
	}
	var sb strings.Builder
	for _, e := range []struct {
		sym string
		n   int
	}{{"C", c.C}, {"H", c.H}, {"N", c.N}, {"O", c.O}, {"P", c.P}, {"S", c.S}} {
		if e.n == 0 {
			continue
		}
		sb.WriteString(e.sym)
		if e.n != 1 {
			fmt.Fprintf(&sb, "%d", e.n)
		}
	}
	return sb.String()
}

// AminoAcidCompositions maps amino acid one-letter codes to residue composition
var AminoAcidCompositions = map[rune]Composition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
}

// ResidueMass returns the monoisotopic residue mass of an amino acid.
func ResidueMass(aa rune) (float64, bool) {
	comp, ok := AminoAcidCompositions[aa]
	if !ok {
		return 0, false
	}
	return comp.Mass(), true
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide
// sequence including modifications. Unknown residues contribute nothing.
func CalculateNeutralMass(sequence string, modifications []Modification) float64 {
	comp := Water
	for _, aa := range sequence {
		if aaComp, ok := AminoAcidCompositions[aa]; ok {
			comp = comp.Add(aaComp)
		}
	}

	mass := comp.Mass()
	for _, mod := range modifications {
		mass += mod.Mass
	}
	return mass
}

// CalculatePeptideMass returns the m/z of a peptide for a given charge state.
func CalculatePeptideMass(sequence string, charge int, modifications []Modification) float64 {
	return MZ(CalculateNeutralMass(sequence, modifications), charge)
}

// MZ converts a neutral mass to the m/z of its [M+zH]z+ ion.
func MZ(neutralMass float64, charge int) float64 {
	return (neutralMass + float64(charge)*ProtonMass) / float64(charge)
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
