package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewPeptide(t *testing.T) {
	p, err := NewPeptide("PEPTIDE", nil)
	if err != nil {
		t.Fatalf("NewPeptide: %v", err)
	}
	if p.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", p.Len())
	}
	// P + E
	if got := p.SpanMass(0, 2); math.Abs(got-226.0953) > 1e-3 {
		t.Errorf("SpanMass(0,2) = %.4f, want 226.0953", got)
	}
	if got, want := p.NeutralMass(), CalculateNeutralMass("PEPTIDE", nil); math.Abs(got-want) > 1e-9 {
		t.Errorf("NeutralMass() = %.6f, want %.6f", got, want)
	}
}

func TestNewPeptideModifications(t *testing.T) {
	mods := []Modification{
		{Mass: 42.010565, Position: -1},
		{Mass: 15.994915, Position: 1},
		{Mass: -0.984016, Position: 3},
	}
	p, err := NewPeptide("AMK", mods)
	if err != nil {
		t.Fatalf("NewPeptide: %v", err)
	}
	if p.NTermModMass() != 42.010565 {
		t.Errorf("NTermModMass() = %f", p.NTermModMass())
	}
	if p.CTermModMass() != -0.984016 {
		t.Errorf("CTermModMass() = %f", p.CTermModMass())
	}
	m, _ := ResidueMass('M')
	if got := p.SpanMass(1, 2); math.Abs(got-(m+15.994915)) > 1e-9 {
		t.Errorf("SpanMass(1,2) = %f, want oxidised methionine", got)
	}
	if got, want := p.NeutralMass(), CalculateNeutralMass("AMK", mods); math.Abs(got-want) > 1e-9 {
		t.Errorf("NeutralMass() = %f, want %f", got, want)
	}
}

func TestNewPeptideErrors(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		mods []Modification
	}{
		{"empty", "", nil},
		{"unknown residue", "PEPXIDE", nil},
		{"position out of range", "PEP", []Modification{{Mass: 1, Position: 7}}},
		{"missing mass", "PEP", []Modification{{Mass: math.NaN(), Position: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPeptide(tt.seq, tt.mods)
			var pe *InvalidPeptideError
			if !errors.As(err, &pe) {
				t.Errorf("NewPeptide() error = %v, want *InvalidPeptideError", err)
			}
		})
	}
}

func TestParsePeptidoform(t *testing.T) {
	db := DefaultModDatabase()
	tests := []struct {
		in      string
		seq     string
		modPos  []int
		modMass []float64
	}{
		{"PEPTIDE", "PEPTIDE", nil, nil},
		{"PEPT[Phospho]IDE", "PEPTIDE", []int{3}, []float64{79.966331}},
		{"[Acetyl]-PEPTIDE", "PEPTIDE", []int{-1}, []float64{42.010565}},
		{"PEPTIDE-[Amidated]", "PEPTIDE", []int{7}, []float64{-0.984016}},
		{"M[+15.9949]PEPC[carbamidomethyl]", "MPEPC", []int{0, 4}, []float64{15.9949, 57.021464}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParsePeptidoform(tt.in, db)
			if err != nil {
				t.Fatalf("ParsePeptidoform(%q): %v", tt.in, err)
			}
			if p.Sequence != tt.seq {
				t.Errorf("Sequence = %q, want %q", p.Sequence, tt.seq)
			}
			if len(p.Modifications) != len(tt.modPos) {
				t.Fatalf("got %d modifications, want %d", len(p.Modifications), len(tt.modPos))
			}
			for i, mod := range p.Modifications {
				if mod.Position != tt.modPos[i] || math.Abs(mod.Mass-tt.modMass[i]) > 1e-9 {
					t.Errorf("mod %d = %+v, want %.6f@%d", i, mod, tt.modMass[i], tt.modPos[i])
				}
			}
		})
	}
}

func TestParsePeptidoformErrors(t *testing.T) {
	for _, in := range []string{"", "PEPT[Unknownium]IDE", "[Phospho]PEPTIDE", "PEP[TIDE", "pep"} {
		_, err := ParsePeptidoform(in, nil)
		var pe *InvalidPeptideError
		if !errors.As(err, &pe) {
			t.Errorf("ParsePeptidoform(%q) error = %v, want *InvalidPeptideError", in, err)
		}
	}
}

func TestPeptideString(t *testing.T) {
	p, err := ParsePeptidoform("[Acetyl]-PEM[Oxidation]K", nil)
	if err != nil {
		t.Fatal(err)
	}
	s := p.String()
	if !strings.HasPrefix(s, "[+42.010565]-PEM[+15.994915]K") {
		t.Errorf("String() = %q", s)
	}
}

func TestParseModString(t *testing.T) {
	db := DefaultModDatabase()
	mods, err := db.ParseModString("Carbamidomethyl@C2;15.994915@M5;Acetyl@N-term", "ACDEMK")
	if err != nil {
		t.Fatalf("ParseModString: %v", err)
	}
	want := []int{1, 4, -1}
	if len(mods) != len(want) {
		t.Fatalf("got %d mods, want %d", len(mods), len(want))
	}
	for i, mod := range mods {
		if mod.Position != want[i] {
			t.Errorf("mod %d position = %d, want %d", i, mod.Position, want[i])
		}
	}

	if _, err := db.ParseModString("Nope@2", "ACDE"); err == nil {
		t.Error("expected error for unknown modification")
	}
	if _, err := db.ParseModString("Oxidation@9", "ACDE"); err == nil {
		t.Error("expected error for out-of-range position")
	}
}

func TestLoadFromCSV(t *testing.T) {
	db := NewModDatabase()
	csv := "mod,massshift,aa\nMyMod,12.5,K\n\nOther,-3,\n"
	if err := db.LoadFromCSV(strings.NewReader(csv)); err != nil {
		t.Fatalf("LoadFromCSV: %v", err)
	}
	if m, ok := db.GetMass("mymod"); !ok || m != 12.5 {
		t.Errorf("GetMass(mymod) = %v, %v", m, ok)
	}
	if db.Len() != 2 {
		t.Errorf("Len() = %d, want 2", db.Len())
	}
	if err := db.LoadFromCSV(strings.NewReader("h\nBad,abc\n")); err == nil {
		t.Error("expected error for bad mass")
	}
}

func TestParseLibraryMods(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		name    string
		value   string
		seq     string
		want    []Modification
		wantErr bool
	}{
		{"none", "0", "PEPTIDE", nil, false},
		{"n-term and residue", "2/-1,P,Acetyl/3,T,Phospho", "PEPTIDE", []Modification{
			{Mass: 42.010565, Position: -1, Name: "Acetyl"},
			{Mass: 79.966331, Position: 3, Name: "Phospho"},
		}, false},
		{"count mismatch", "2/1,C,Carbamidomethyl", "ACDE", nil, true},
		{"bad entry", "1/1,Carbamidomethyl", "ACDE", nil, true},
		{"out of range", "1/7,C,Carbamidomethyl", "ACDE", nil, true},
		{"unknown name", "1/1,C,Nope", "ACDE", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ParseLibraryMods(tt.value, tt.seq)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLibraryMods() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseLibraryMods() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("mod %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
