package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Peptide is an immutable peptide sequence with its modifications resolved to
// masses. Residue masses already include per-position modification masses.
type Peptide struct {
	Sequence      string
	Modifications []Modification

	residues []float64
	prefix   []float64 // prefix[i] = sum of residues[0:i]
	nTermMod float64
	cTermMod float64
}

// NewPeptide validates a sequence and its modifications and precomputes the
// prefix mass sums used for fragment masses.
func NewPeptide(sequence string, mods []Modification) (*Peptide, error) {
	if sequence == "" {
		return nil, &InvalidPeptideError{Sequence: sequence, Message: "sequence is empty"}
	}

	p := &Peptide{
		Sequence:      sequence,
		Modifications: append([]Modification(nil), mods...),
		residues:      make([]float64, 0, len(sequence)),
	}

	for i, aa := range sequence {
		m, ok := ResidueMass(aa)
		if !ok {
			return nil, &InvalidPeptideError{
				Sequence: sequence,
				Message:  fmt.Sprintf("unknown residue %q at position %d", aa, i+1),
			}
		}
		p.residues = append(p.residues, m)
	}

	n := len(p.residues)
	for _, mod := range mods {
		if math.IsNaN(mod.Mass) || math.IsInf(mod.Mass, 0) {
			return nil, &InvalidPeptideError{
				Sequence: sequence,
				Message:  fmt.Sprintf("modification mass data absent for position %d", mod.Position),
			}
		}
		switch {
		case mod.Position == -1:
			p.nTermMod += mod.Mass
		case mod.Position == n:
			p.cTermMod += mod.Mass
		case mod.Position >= 0 && mod.Position < n:
			p.residues[mod.Position] += mod.Mass
		default:
			return nil, &InvalidPeptideError{
				Sequence: sequence,
				Message:  fmt.Sprintf("modification position %d outside sequence", mod.Position),
			}
		}
	}

	p.prefix = make([]float64, n+1)
	for i, m := range p.residues {
		p.prefix[i+1] = p.prefix[i] + m
	}

	return p, nil
}

// Len returns the number of residues.
func (p *Peptide) Len() int {
	return len(p.residues)
}

// SpanMass returns the summed residue and residue-modification masses of
// residues [start, end).
func (p *Peptide) SpanMass(start, end int) float64 {
	return p.prefix[end] - p.prefix[start]
}

// NTermModMass returns the summed N-terminal modification mass.
func (p *Peptide) NTermModMass() float64 { return p.nTermMod }

// CTermModMass returns the summed C-terminal modification mass.
func (p *Peptide) CTermModMass() float64 { return p.cTermMod }

// NeutralMass returns the monoisotopic mass of the intact peptide.
func (p *Peptide) NeutralMass() float64 {
	return p.SpanMass(0, p.Len()) + Water.Mass() + p.nTermMod + p.cTermMod
}

// String renders the peptide as a peptidoform with masses in brackets, e.g.
// "[+42.010565]-PEPTM[+15.994915]IDE".
func (p *Peptide) String() string {
	n := len(p.Sequence)
	perPos := make([][]string, n)
	var nTerm, cTerm []string
	for _, mod := range p.Modifications {
		tag := fmt.Sprintf("[%+.6f]", mod.Mass)
		switch {
		case mod.Position == -1:
			nTerm = append(nTerm, tag)
		case mod.Position == n:
			cTerm = append(cTerm, tag)
		default:
			perPos[mod.Position] = append(perPos[mod.Position], tag)
		}
	}

	var sb strings.Builder
	if len(nTerm) > 0 {
		sb.WriteString(strings.Join(nTerm, ""))
		sb.WriteByte('-')
	}
	for i, aa := range p.Sequence {
		sb.WriteRune(aa)
		sb.WriteString(strings.Join(perPos[i], ""))
	}
	if len(cTerm) > 0 {
		sb.WriteByte('-')
		sb.WriteString(strings.Join(cTerm, ""))
	}
	return sb.String()
}

// ParsePeptidoform parses a peptide written with inline bracketed
// modifications: "PEPT[Phospho]IDE", "[Acetyl]-PEPTIDE", "PEPTIDE-[Amidated]"
// or "M[+15.9949]PEPTIDE". Names are resolved through db.
func ParsePeptidoform(s string, db *ModDatabase) (*Peptide, error) {
	if db == nil {
		db = DefaultModDatabase()
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &InvalidPeptideError{Sequence: s, Message: "sequence is empty"}
	}

	var (
		seq  strings.Builder
		mods []Modification
		pos  int
	)

	resolve := func(token string, position int) error {
		mass, err := db.Resolve(token)
		if err != nil {
			return &InvalidPeptideError{Sequence: s, Message: err.Error()}
		}
		name := token
		if _, perr := strconv.ParseFloat(token, 64); perr == nil {
			name = ""
		}
		mods = append(mods, Modification{Mass: mass, Position: position, Name: name})
		return nil
	}

	rest := s
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]-")
		if end < 0 {
			return nil, &InvalidPeptideError{Sequence: s, Message: "unterminated N-terminal modification"}
		}
		if err := resolve(rest[1:end], -1); err != nil {
			return nil, err
		}
		rest = rest[end+2:]
	}

	var cTermTokens []string
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		switch {
		case ch == '[':
			end := strings.IndexByte(rest[i:], ']')
			if end < 0 {
				return nil, &InvalidPeptideError{Sequence: s, Message: "unterminated modification"}
			}
			if pos == 0 {
				return nil, &InvalidPeptideError{Sequence: s, Message: "modification before first residue"}
			}
			if err := resolve(rest[i+1:i+end], pos-1); err != nil {
				return nil, err
			}
			i += end
		case ch == '-' && i+1 < len(rest) && rest[i+1] == '[':
			end := strings.IndexByte(rest[i+1:], ']')
			if end < 0 || i+1+end != len(rest)-1 {
				return nil, &InvalidPeptideError{Sequence: s, Message: "malformed C-terminal modification"}
			}
			cTermTokens = append(cTermTokens, rest[i+2:i+1+end])
			i = len(rest)
		case ch >= 'A' && ch <= 'Z':
			seq.WriteByte(ch)
			pos++
		default:
			return nil, &InvalidPeptideError{Sequence: s, Message: fmt.Sprintf("unexpected character %q", ch)}
		}
	}

	for _, tok := range cTermTokens {
		if err := resolve(tok, pos); err != nil {
			return nil, err
		}
	}

	return NewPeptide(seq.String(), mods)
}
