// Package fragment enumerates the theoretical terminal and internal fragments
// of a peptide for a chosen set of ion caps.
package fragment

import (
	"fmt"
	"iter"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
)

// Kind distinguishes terminal from internal fragments.
type Kind int

const (
	Terminal Kind = iota
	Internal
)

func (k Kind) String() string {
	if k == Internal {
		return "internal"
	}
	return "terminal"
}

// Fragment is one candidate fragment of a peptide. Start and End are 0-based
// residue indices, End exclusive.
//
// NCap is the a/b/c-type cap closing the fragment's C-terminal end and CCap
// the x/y/z-type cap closing its N-terminal end. A side that is an uncleaved
// peptide terminus carries ions.TerminalCap, so b2 is {NCap: "b", CCap: "t"}
// and y2 is {NCap: "t", CCap: "y"}. Internal caps are canonical.
type Fragment struct {
	Kind     Kind
	Start    int
	End      int
	NCap     string
	CCap     string
	Sequence string
	Mass     float64 // neutral monoisotopic mass before charge and losses
	ordinal  int     // ion number for terminal ions
}

// Label renders the conventional fragment name: "b2", "y5" or "by[2-4]" with
// 1-based inclusive residue numbers for internal ions.
func (f Fragment) Label() string {
	switch {
	case f.Kind == Internal:
		return fmt.Sprintf("%s%s[%d-%d]", f.NCap, f.CCap, f.Start+1, f.End)
	case f.CCap == ions.TerminalCap:
		return fmt.Sprintf("%s%d", f.NCap, f.ordinal)
	default:
		return fmt.Sprintf("%s%d", f.CCap, f.ordinal)
	}
}

// Type returns the cap type label: "b", "y" or "by".
func (f Fragment) Type() string {
	switch {
	case f.Kind == Internal:
		return f.NCap + f.CCap
	case f.CCap == ions.TerminalCap:
		return f.NCap
	default:
		return f.CCap
	}
}

// Enumerator produces fragments for a fixed selection of ion caps.
type Enumerator struct {
	reg      *ions.Registry
	terminal []string              // requested caps in registry order
	pairs    []ions.InternalIonKey // canonical internal pairs, first-seen order
}

// NewEnumerator validates the requested caps. Internal pairs are every
// (nTerm, cTerm) combination, canonicalized; they are only built when
// includeInternal is set.
func NewEnumerator(reg *ions.Registry, nTermTypes, cTermTypes []string, includeInternal bool) (*Enumerator, error) {
	nTypes, err := reg.Require(ions.NTerm, nTermTypes)
	if err != nil {
		return nil, err
	}
	cTypes, err := reg.Require(ions.CTerm, cTermTypes)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(nTypes)+len(cTypes))
	for _, name := range append(append([]string(nil), nTypes...), cTypes...) {
		requested[name] = true
	}

	e := &Enumerator{reg: reg}
	for _, c := range reg.All() {
		if requested[c.Name] {
			e.terminal = append(e.terminal, c.Name)
		}
	}

	if includeInternal {
		// The canonical set does not depend on the span, so the
		// (start, end, canonical pair) dedup reduces to deduplicating pairs.
		seen := make(map[ions.InternalIonKey]bool)
		for _, n := range nTypes {
			for _, c := range cTypes {
				key, err := reg.Canonicalize(n, c)
				if err != nil {
					return nil, err
				}
				if seen[key] {
					continue
				}
				seen[key] = true
				e.pairs = append(e.pairs, key)
			}
		}
	}

	return e, nil
}

// InternalPairs returns the canonical internal pairs that will be emitted.
func (e *Enumerator) InternalPairs() []ions.InternalIonKey {
	return append([]ions.InternalIonKey(nil), e.pairs...)
}

// Enumerate yields the fragments of p: terminal ions by cleavage position
// then cap registry order, followed by internal ions by ascending start,
// ascending end, then pair order. The sequence can be ranged over repeatedly.
func (e *Enumerator) Enumerate(p *core.Peptide) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		n := p.Len()
		water := core.Water.Mass()

		for i := 1; i < n; i++ {
			for _, name := range e.terminal {
				c, _ := e.reg.Lookup(name)
				var f Fragment
				if c.Direction == ions.NTerm {
					f = Fragment{
						Kind: Terminal, Start: 0, End: i,
						NCap: name, CCap: ions.TerminalCap,
						Mass:    p.SpanMass(0, i) + water + c.DeltaMass + p.NTermModMass(),
						ordinal: i,
					}
				} else {
					f = Fragment{
						Kind: Terminal, Start: i, End: n,
						NCap: ions.TerminalCap, CCap: name,
						Mass:    p.SpanMass(i, n) + water + c.DeltaMass + p.CTermModMass(),
						ordinal: n - i,
					}
				}
				f.Sequence = p.Sequence[f.Start:f.End]
				if !yield(f) {
					return
				}
			}
		}

		for start := 1; start < n-1; start++ {
			for end := start + 1; end < n; end++ {
				span := p.SpanMass(start, end) + water
				for _, key := range e.pairs {
					nDelta, _ := e.reg.DeltaMassOf(key.NCap)
					cDelta, _ := e.reg.DeltaMassOf(key.CCap)
					f := Fragment{
						Kind: Internal, Start: start, End: end,
						NCap: key.NCap, CCap: key.CCap,
						Sequence: p.Sequence[start:end],
						Mass:     span + nDelta + cDelta,
					}
					if !yield(f) {
						return
					}
				}
			}
		}
	}
}

// Collect materializes Enumerate into a slice.
func (e *Enumerator) Collect(p *core.Peptide) []Fragment {
	var out []Fragment
	for f := range e.Enumerate(p) {
		out = append(out, f)
	}
	return out
}

// Count returns the number of fragments Enumerate yields for a peptide of
// length n without enumerating them.
func (e *Enumerator) Count(n int) int {
	if n < 2 {
		return 0
	}
	spans := (n - 2) * (n - 1) / 2
	return (n-1)*len(e.terminal) + spans*len(e.pairs)
}
