package match

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Loss is a neutral loss applied to a fragment before charging. The zero
// value is "no loss".
type Loss struct {
	Name string
	Mass float64
}

// LossTable maps loss names to their monoisotopic masses.
type LossTable map[string]float64

// DefaultLosses returns the common fragment neutral losses.
func DefaultLosses() LossTable {
	return LossTable{
		"H2O":   core.Water.Mass(),
		"NH3":   core.Composition{N: 1, H: 3}.Mass(),
		"CO2":   core.Composition{C: 1, O: 2}.Mass(),
		"H3PO4": core.Composition{H: 3, P: 1, O: 4}.Mass(),
		"HPO3":  core.Composition{H: 1, P: 1, O: 3}.Mass(),
		"CH4OS": core.Composition{C: 1, H: 4, O: 1, S: 1}.Mass(),
	}
}

// Resolve returns the no-loss entry followed by the named losses, in the
// order given. Duplicate names are kept once.
func (t LossTable) Resolve(names []string) ([]Loss, error) {
	out := []Loss{{}}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		mass, ok := t[name]
		if !ok {
			return nil, &core.ConfigurationError{
				Field:   "losses",
				Message: fmt.Sprintf("unknown neutral loss %q (known: %v)", name, t.Names()),
			}
		}
		out = append(out, Loss{Name: name, Mass: mass})
	}
	return out, nil
}

// Names returns the table's loss names sorted alphabetically.
func (t LossTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
