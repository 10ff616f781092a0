// Package ions provides the ion-cap registry: the elemental composition, delta
// mass and terminal direction of every supported fragment-ion cap, and the
// canonical labels of chemically indistinguishable internal-ion cap pairs.
//
// A Registry is built once with NewRegistry and is read-only afterwards, so a
// single value can be shared by any number of goroutines.
package ions

import (
	"fmt"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Direction is the terminus an ion cap belongs to.
type Direction int

const (
	// NTerm caps close fragments carrying the peptide N-terminus (a, b, c).
	NTerm Direction = iota
	// CTerm caps close fragments carrying the peptide C-terminus (x, y, z).
	CTerm
	// Terminus is the zero cap "t" standing for an uncleaved true terminus.
	Terminus
)

func (d Direction) String() string {
	switch d {
	case NTerm:
		return "n-term"
	case CTerm:
		return "c-term"
	case Terminus:
		return "terminus"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// TerminalCap is the name of the zero-composition cap.
const TerminalCap = "t"

// IonCapType describes one ion cap.
type IonCapType struct {
	Name        string
	Direction   Direction
	Composition core.Composition
	DeltaMass   float64
}

// Registry holds the ion-cap table and the internal-ion canonical map.
type Registry struct {
	caps      map[string]IonCapType
	order     []string // registration order
	canonical map[InternalIonKey]InternalIonKey
}

// Standard caps as compositions relative to the free peptide (residues + H2O).
var (
	capB = core.Composition{H: -2, O: -1}
	capY = core.Composition{}
	capA = capB.Add(core.Composition{C: -1, O: -1})
	capC = capB.Add(core.Composition{N: 1, H: 3})
	capX = capB.Add(core.Composition{C: 1, O: 2})
	capZ = capB.Add(core.Composition{O: 1, N: -1, H: -1})

	hydrogen = core.Composition{H: 1}
)

type capDef struct {
	name string
	dir  Direction
	comp core.Composition
}

// standardCaps is the literal table of standard caps.
var standardCaps = []capDef{
	{"a", NTerm, capA},
	{"b", NTerm, capB},
	{"x", CTerm, capX},
	{"y", CTerm, capY},
}

// synthesizedCaps derives the radical and hydrogen-shifted c and z variants.
// Radical forms carry a "dot" suffix and are distinct keys.
func synthesizedCaps() []capDef {
	zdot := capZ.Add(hydrogen)
	return []capDef{
		{"cdot", NTerm, capC.Add(hydrogen)},
		{"c", NTerm, capC},
		{"c-1", NTerm, capC.Sub(hydrogen)},
		{"c+1", NTerm, capC.Add(hydrogen)},
		{"zdot", CTerm, zdot},
		{"z", CTerm, capZ},
		{"z+1", CTerm, zdot.Add(hydrogen)},
		{"z+2", CTerm, zdot.Add(hydrogen.Scale(2))},
		{"z+3", CTerm, zdot.Add(hydrogen.Scale(3))},
	}
}

// NewRegistry builds the ion-cap table and the canonical internal-ion map.
func NewRegistry() *Registry {
	r := &Registry{caps: make(map[string]IonCapType)}

	defs := append(append([]capDef(nil), standardCaps...), synthesizedCaps()...)
	defs = append(defs, capDef{TerminalCap, Terminus, core.Composition{}})

	for _, d := range defs {
		r.caps[d.name] = IonCapType{
			Name:        d.name,
			Direction:   d.dir,
			Composition: d.comp,
			DeltaMass:   d.comp.Mass(),
		}
		r.order = append(r.order, d.name)
	}

	r.canonical = buildCanonicalMap(r)
	return r
}

// Lookup returns the cap type registered under name.
func (r *Registry) Lookup(name string) (IonCapType, error) {
	c, ok := r.caps[name]
	if !ok {
		return IonCapType{}, &core.ConfigurationError{
			Field:   "ion type",
			Message: fmt.Sprintf("unknown ion cap %q", name),
		}
	}
	return c, nil
}

// CompositionOf returns the elemental composition of a cap.
func (r *Registry) CompositionOf(name string) (core.Composition, error) {
	c, err := r.Lookup(name)
	return c.Composition, err
}

// DeltaMassOf returns the monoisotopic mass delta of a cap.
func (r *Registry) DeltaMassOf(name string) (float64, error) {
	c, err := r.Lookup(name)
	return c.DeltaMass, err
}

// DirectionOf returns the direction of a cap.
func (r *Registry) DirectionOf(name string) (Direction, error) {
	c, err := r.Lookup(name)
	return c.Direction, err
}

// Names returns the names registered with direction dir, in registry order.
func (r *Registry) Names(dir Direction) []string {
	var out []string
	for _, name := range r.order {
		if r.caps[name].Direction == dir {
			out = append(out, name)
		}
	}
	return out
}

// All returns every registered cap in registry order.
func (r *Registry) All() []IonCapType {
	out := make([]IonCapType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.caps[name])
	}
	return out
}

// Require checks that every name is registered with direction dir and returns
// the names sorted into registry order with duplicates removed.
func (r *Registry) Require(dir Direction, names []string) ([]string, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		c, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if c.Direction != dir {
			return nil, &core.ConfigurationError{
				Field:   "ion type",
				Message: fmt.Sprintf("ion cap %q is %s, expected %s", name, c.Direction, dir),
			}
		}
		want[name] = true
	}

	out := make([]string, 0, len(want))
	for _, name := range r.order {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}
