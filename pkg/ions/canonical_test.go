package ions_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/fragannot/pkg/core"
	"github.com/ChrisMcGann/fragannot/pkg/ions"
)

func allPairs(reg *ions.Registry) []ions.InternalIonKey {
	var out []ions.InternalIonKey
	for _, n := range reg.Names(ions.NTerm) {
		for _, c := range reg.Names(ions.CTerm) {
			out = append(out, ions.InternalIonKey{NCap: n, CCap: c})
		}
	}
	return out
}

func TestCanonicalizeKnownGroups(t *testing.T) {
	reg := ions.NewRegistry()

	cases := []struct {
		from, to ions.InternalIonKey
	}{
		{ions.InternalIonKey{NCap: "b", CCap: "y"}, ions.InternalIonKey{NCap: "b", CCap: "y"}},
		{ions.InternalIonKey{NCap: "c", CCap: "z"}, ions.InternalIonKey{NCap: "b", CCap: "y"}},
		{ions.InternalIonKey{NCap: "cdot", CCap: "y"}, ions.InternalIonKey{NCap: "c+1", CCap: "y"}},
		{ions.InternalIonKey{NCap: "cdot", CCap: "z"}, ions.InternalIonKey{NCap: "c+1", CCap: "z"}},
		{ions.InternalIonKey{NCap: "c", CCap: "zdot"}, ions.InternalIonKey{NCap: "c+1", CCap: "z"}},
		{ions.InternalIonKey{NCap: "c-1", CCap: "z+1"}, ions.InternalIonKey{NCap: "c+1", CCap: "z"}},
		{ions.InternalIonKey{NCap: "a", CCap: "x"}, ions.InternalIonKey{NCap: "a", CCap: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.from.String(), func(t *testing.T) {
			got, err := reg.Canonicalize(tc.from.NCap, tc.from.CCap)
			require.NoError(t, err)
			require.Equal(t, tc.to, got)
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	reg := ions.NewRegistry()

	for _, k := range allPairs(reg) {
		once, err := reg.Canonicalize(k.NCap, k.CCap)
		require.NoError(t, err)
		twice, err := reg.Canonicalize(once.NCap, once.CCap)
		require.NoError(t, err)
		require.Equal(t, once, twice, "canonicalize(%s) not idempotent", k)
	}
}

func TestCanonicalizePreservesComposition(t *testing.T) {
	reg := ions.NewRegistry()

	for _, k := range allPairs(reg) {
		canon, err := reg.Canonicalize(k.NCap, k.CCap)
		require.NoError(t, err)

		want, err := reg.CombinedComposition(k)
		require.NoError(t, err)
		got, err := reg.CombinedComposition(canon)
		require.NoError(t, err)
		require.Equal(t, want, got, "%s -> %s changes composition", k, canon)
	}
}

func TestCanonicalIsGroupMinimal(t *testing.T) {
	reg := ions.NewRegistry()
	pairs := allPairs(reg)

	for i, k := range pairs {
		canon, err := reg.Canonicalize(k.NCap, k.CCap)
		require.NoError(t, err)
		kComp, _ := reg.CombinedComposition(k)

		canonIdx := -1
		for j, p := range pairs {
			if p == canon {
				canonIdx = j
			}
		}
		require.GreaterOrEqual(t, canonIdx, 0)

		for j, p := range pairs {
			pComp, _ := reg.CombinedComposition(p)
			if pComp != kComp {
				continue
			}
			pLen := len(p.NCap) + len(p.CCap)
			cLen := len(canon.NCap) + len(canon.CCap)
			require.LessOrEqual(t, cLen, pLen, "%s is shorter than representative %s", p, canon)
			if pLen == cLen {
				require.LessOrEqual(t, canonIdx, j, "tie for %s must go to first encountered", pairs[i])
			}
		}
	}
}

func TestCanonicalMapDeterministic(t *testing.T) {
	first := ions.NewRegistry()
	for run := 0; run < 20; run++ {
		again := ions.NewRegistry()
		require.Equal(t, first.Equivalences(), again.Equivalences())
	}
}

func TestEquivalences(t *testing.T) {
	reg := ions.NewRegistry()
	eqs := reg.Equivalences()
	require.NotEmpty(t, eqs)

	for _, eq := range eqs {
		require.NotEqual(t, eq.From, eq.To)
		canon, err := reg.Canonicalize(eq.From.NCap, eq.From.CCap)
		require.NoError(t, err)
		require.Equal(t, eq.To, canon)
	}
	require.Contains(t, eqs, ions.Equivalence{
		From:        ions.InternalIonKey{NCap: "c", CCap: "z"},
		To:          ions.InternalIonKey{NCap: "b", CCap: "y"},
		Composition: core.Composition{H: -2, O: -1},
	})
}

func TestCanonicalizeErrors(t *testing.T) {
	reg := ions.NewRegistry()

	cases := [][2]string{
		{"q", "y"},
		{"b", "q"},
		{"y", "b"},
		{"t", "y"},
	}
	for _, tc := range cases {
		_, err := reg.Canonicalize(tc[0], tc[1])
		var ce *core.ConfigurationError
		require.True(t, errors.As(err, &ce), "(%s, %s) should be a ConfigurationError", tc[0], tc[1])
	}
}
