package ions

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// InternalIonKey names an internal ion by its n-term and c-term caps.
type InternalIonKey struct {
	NCap string
	CCap string
}

func (k InternalIonKey) String() string {
	return k.NCap + k.CCap
}

// Equivalence records an internal-ion pair reported under another label.
type Equivalence struct {
	From        InternalIonKey
	To          InternalIonKey
	Composition core.Composition
}

// buildCanonicalMap groups every (n-term, c-term) pair by the exact sum of the
// two compositions. Within a group the pair with the shortest combined name
// wins; ties go to the pair enumerated first.
func buildCanonicalMap(r *Registry) map[InternalIonKey]InternalIonKey {
	groups := make(map[core.Composition][]InternalIonKey)
	var groupOrder []core.Composition

	for _, n := range r.Names(NTerm) {
		for _, c := range r.Names(CTerm) {
			sum := r.caps[n].Composition.Add(r.caps[c].Composition)
			if _, seen := groups[sum]; !seen {
				groupOrder = append(groupOrder, sum)
			}
			groups[sum] = append(groups[sum], InternalIonKey{NCap: n, CCap: c})
		}
	}

	canonical := make(map[InternalIonKey]InternalIonKey)
	for _, comp := range groupOrder {
		members := groups[comp]
		sort.SliceStable(members, func(i, j int) bool {
			return keyLen(members[i]) < keyLen(members[j])
		})
		for _, m := range members {
			canonical[m] = members[0]
		}
	}
	return canonical
}

func keyLen(k InternalIonKey) int {
	return len(k.NCap) + len(k.CCap)
}

// Canonicalize returns the representative label of the internal ion capped by
// nCap and cCap. A pair without composition-identical peers maps to itself.
func (r *Registry) Canonicalize(nCap, cCap string) (InternalIonKey, error) {
	key := InternalIonKey{NCap: nCap, CCap: cCap}
	canon, ok := r.canonical[key]
	if !ok {
		for _, name := range []string{nCap, cCap} {
			if _, err := r.Lookup(name); err != nil {
				return InternalIonKey{}, err
			}
		}
		return InternalIonKey{}, &core.ConfigurationError{
			Field:   "internal ion",
			Message: fmt.Sprintf("(%s, %s) is not an n-term/c-term cap pair", nCap, cCap),
		}
	}
	return canon, nil
}

// CombinedComposition returns the summed composition of an internal-ion pair.
func (r *Registry) CombinedComposition(k InternalIonKey) (core.Composition, error) {
	n, err := r.CompositionOf(k.NCap)
	if err != nil {
		return core.Composition{}, err
	}
	c, err := r.CompositionOf(k.CCap)
	if err != nil {
		return core.Composition{}, err
	}
	return n.Add(c), nil
}

// Equivalences lists every pair that canonicalizes to a different pair, in
// registry enumeration order.
func (r *Registry) Equivalences() []Equivalence {
	var out []Equivalence
	for _, n := range r.Names(NTerm) {
		for _, c := range r.Names(CTerm) {
			from := InternalIonKey{NCap: n, CCap: c}
			to := r.canonical[from]
			if to == from {
				continue
			}
			out = append(out, Equivalence{
				From:        from,
				To:          to,
				Composition: r.caps[n].Composition.Add(r.caps[c].Composition),
			})
		}
	}
	return out
}
