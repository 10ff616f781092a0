package fragment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
)

func mustPeptide(t *testing.T, seq string) *core.Peptide {
	t.Helper()
	p, err := core.NewPeptide(seq, nil)
	require.NoError(t, err)
	return p
}

func TestTerminalMasses(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b"}, []string{"y"}, false)
	require.NoError(t, err)

	byLabel := map[string]Fragment{}
	for f := range e.Enumerate(mustPeptide(t, "PEPTIDE")) {
		byLabel[f.Label()] = f
	}

	b2, ok := byLabel["b2"]
	require.True(t, ok)
	require.Equal(t, "PE", b2.Sequence)
	require.InDelta(t, 226.09535, b2.Mass, 1e-4)

	y2, ok := byLabel["y2"]
	require.True(t, ok)
	require.Equal(t, "DE", y2.Sequence)
	require.Equal(t, 5, y2.Start)
	require.Equal(t, 7, y2.End)
	require.InDelta(t, 262.08010, y2.Mass, 1e-4)

	require.Len(t, byLabel, 12)
}

func TestTerminalModifications(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b"}, []string{"y"}, false)
	require.NoError(t, err)

	plain := mustPeptide(t, "PEPTIDE")
	modded, err := core.NewPeptide("PEPTIDE", []core.Modification{
		{Mass: 42.010565, Position: -1},
		{Mass: 79.966331, Position: 3},
		{Mass: -0.984016, Position: 7},
	})
	require.NoError(t, err)

	base := e.Collect(plain)
	mod := e.Collect(modded)
	require.Len(t, mod, len(base))

	for i := range base {
		f, g := base[i], mod[i]
		want := 0.0
		if f.Start == 0 {
			want += 42.010565
		}
		if f.End == 7 {
			want += -0.984016
		}
		if f.Start <= 3 && 3 < f.End {
			want += 79.966331
		}
		require.InDelta(t, want, g.Mass-f.Mass, 1e-9, f.Label())
	}
}

func TestEnumerationCount(t *testing.T) {
	reg := ions.NewRegistry()

	cases := []struct {
		name     string
		nTypes   []string
		cTypes   []string
		internal bool
		seq      string
		pairs    int
	}{
		{"terminal only", []string{"b"}, []string{"y"}, false, "PEPTIDE", 0},
		{"by internal", []string{"b"}, []string{"y"}, true, "PEPTIDE", 1},
		{"bc yz collapse", []string{"b", "c"}, []string{"y", "z"}, true, "PEPTIDEK", 3},
		{"all caps", reg.Names(ions.NTerm), reg.Names(ions.CTerm), true, "ACDEFGHIK", -1},
		{"dipeptide", []string{"a", "b"}, []string{"y"}, true, "PE", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEnumerator(reg, tc.nTypes, tc.cTypes, tc.internal)
			require.NoError(t, err)
			if tc.pairs >= 0 {
				require.Len(t, e.InternalPairs(), tc.pairs)
			}

			p := mustPeptide(t, tc.seq)
			L := p.Len()
			spans := (L - 2) * (L - 1) / 2
			want := (L-1)*(len(tc.nTypes)+len(tc.cTypes)) + len(e.InternalPairs())*spans

			got := e.Collect(p)
			require.Len(t, got, want)
			require.Equal(t, want, e.Count(L))
		})
	}
}

func TestInternalDedupAndSpans(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b", "c"}, []string{"y", "z"}, true)
	require.NoError(t, err)

	p := mustPeptide(t, "PEPTIDE")
	type key struct {
		start, end int
		pair       string
	}
	seen := map[key]bool{}
	byCount := 0
	for f := range e.Enumerate(p) {
		if f.Kind != Internal {
			continue
		}
		require.Greater(t, f.Start, 0)
		require.Less(t, f.End, p.Len())
		require.Less(t, f.Start, f.End)

		k := key{f.Start, f.End, f.NCap + "|" + f.CCap}
		require.False(t, seen[k], "duplicate %v", k)
		seen[k] = true

		require.False(t, f.NCap == "c" && f.CCap == "z", "cz must collapse onto by")
		if f.Start == 2 && f.End == 4 && f.Type() == "by" {
			byCount++
		}
	}
	require.Equal(t, 1, byCount)
}

func TestInternalMass(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b"}, []string{"y"}, true)
	require.NoError(t, err)

	p := mustPeptide(t, "PEPTIDE")
	for f := range e.Enumerate(p) {
		if f.Kind == Internal && f.Start == 1 && f.End == 3 {
			// internal by ion mass is the plain residue sum: E + P
			require.InDelta(t, p.SpanMass(1, 3), f.Mass, 1e-9)
			require.Equal(t, "by[2-3]", f.Label())
			return
		}
	}
	t.Fatal("internal fragment EP not enumerated")
}

func TestEnumerationOrderAndRestart(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b", "a"}, []string{"y"}, true)
	require.NoError(t, err)
	p := mustPeptide(t, "PEPTIDE")

	first := e.Collect(p)
	second := e.Collect(p)
	require.Equal(t, first, second)

	// cleavage 1: a1, b1, y6 in registry order
	require.Equal(t, "a1", first[0].Label())
	require.Equal(t, "b1", first[1].Label())
	require.Equal(t, "y6", first[2].Label())

	lastStart, lastEnd := 0, 0
	for _, f := range first {
		if f.Kind != Internal {
			continue
		}
		require.True(t, f.Start > lastStart || (f.Start == lastStart && f.End >= lastEnd))
		lastStart, lastEnd = f.Start, f.End
	}
}

func TestEnumerateStopsEarly(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b"}, []string{"y"}, true)
	require.NoError(t, err)

	n := 0
	for range e.Enumerate(mustPeptide(t, "PEPTIDE")) {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)
}

func TestSingleResidue(t *testing.T) {
	reg := ions.NewRegistry()
	e, err := NewEnumerator(reg, []string{"b"}, []string{"y"}, true)
	require.NoError(t, err)
	require.Empty(t, e.Collect(mustPeptide(t, "K")))
	require.Equal(t, 0, e.Count(1))
}

func TestNewEnumeratorErrors(t *testing.T) {
	reg := ions.NewRegistry()
	cases := []struct {
		name   string
		nTypes []string
		cTypes []string
	}{
		{"unknown", []string{"q"}, []string{"y"}},
		{"wrong direction", []string{"y"}, []string{"y"}},
		{"terminal cap", []string{"t"}, []string{"y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEnumerator(reg, tc.nTypes, tc.cTypes, true)
			var ce *core.ConfigurationError
			require.True(t, errors.As(err, &ce))
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "terminal", Terminal.String())
	require.Equal(t, "internal", Internal.String())
}
