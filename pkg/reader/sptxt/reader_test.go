package sptxt

import (
	"math"
	"strings"
	"testing"
)

const library = `### SpectraST library
### ===

Name: n[43]PEM[147]TIDEK/2
LibID: 0
MW: 1000.44
PrecursorMZ: 500.7237
Comment: CollisionEnergy=35 RetentionTime=1201.5,1190.2,1210.0 Mods=2/-1,P,Acetyl/2,M,Oxidation Spectrum=run1.01234.01234.2
NumPeaks: 3
300.1	20	y2/0.01,b5^2/0.3
200.2	40	?
400.3	10	b3/-0.02

Name: AC[160]DK/1
LibID: 1
PrecursorMZ: 508.2
Comment: Mods=1/1,C,Carbamidomethyl
NumPeaks: 1
100.0	1	?
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(library), nil)

	if !r.Next() {
		t.Fatalf("Next() = false, err %v", r.Err())
	}
	spec := r.Spectrum()

	if spec.Sequence != "PEMTIDEK" || spec.Charge != 2 {
		t.Errorf("name parsed as %s/%d", spec.Sequence, spec.Charge)
	}
	if spec.ID != "run1.01234.01234.2" {
		t.Errorf("ID = %q", spec.ID)
	}
	if spec.PrecursorMZ != 500.7237 {
		t.Errorf("PrecursorMZ = %v", spec.PrecursorMZ)
	}
	if spec.RetentionTime == nil || *spec.RetentionTime != 1201.5 {
		t.Error("RetentionTime not parsed")
	}
	if len(spec.Modifications) != 2 {
		t.Fatalf("mods = %v", spec.Modifications)
	}
	if spec.Modifications[0].Name != "Acetyl" || spec.Modifications[0].Position != -1 {
		t.Errorf("n-term mod = %+v", spec.Modifications[0])
	}
	if spec.Modifications[1].Name != "Oxidation" || math.Abs(spec.Modifications[1].Mass-15.994915) > 1e-9 {
		t.Errorf("residue mod = %+v", spec.Modifications[1])
	}
	if len(spec.Peaks) != 3 || spec.Peaks[0].MZ != 200.2 {
		t.Fatalf("peaks = %v", spec.Peaks)
	}
	if spec.Peaks[1].Annotation != "y2" || spec.Peaks[0].Annotation != "" {
		t.Errorf("annotations = %q, %q", spec.Peaks[0].Annotation, spec.Peaks[1].Annotation)
	}

	if !r.Next() {
		t.Fatalf("second Next() = false, err %v", r.Err())
	}
	spec = r.Spectrum()
	if spec.ID != "LibID=1" {
		t.Errorf("ID = %q, want LibID=1", spec.ID)
	}
	if len(spec.Modifications) != 1 || spec.Modifications[0].Position != 1 {
		t.Errorf("mods = %v", spec.Modifications)
	}

	if r.Next() {
		t.Error("expected end of library")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v", err)
	}
}

func TestParseInlineModifications(t *testing.T) {
	tests := []struct {
		raw       string
		seq       string
		positions []int
		nominal   []float64
	}{
		{"PEPTIDE", "PEPTIDE", nil, nil},
		{"n[43]PEPTIDE", "PEPTIDE", []int{-1}, []float64{42}},
		{"AC[160]DK", "ACDK", []int{1}, []float64{57}},
		{"AAK[136]c[16]", "AAK", []int{2, 3}, []float64{8, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			seq, mods, err := parseInlineModifications(tt.raw)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if seq != tt.seq {
				t.Errorf("sequence = %q, want %q", seq, tt.seq)
			}
			if len(mods) != len(tt.positions) {
				t.Fatalf("mods = %v", mods)
			}
			for i, mod := range mods {
				if mod.Position != tt.positions[i] || mod.Mass != tt.nominal[i] {
					t.Errorf("mod %d = %+v, want pos %d mass %v", i, mod, tt.positions[i], tt.nominal[i])
				}
			}
		})
	}

	if _, _, err := parseInlineModifications("AB[100]K"); err == nil {
		t.Error("expected error for unknown residue")
	}
}

func TestReaderErrors(t *testing.T) {
	for name, input := range map[string]string{
		"bad charge":        "Name: PEPTIDE/z\nNumPeaks: 0\n",
		"bad num peaks":     "Name: PEPTIDE/2\nNumPeaks: x\n",
		"bad peak":          "Name: PEPTIDE/2\nNumPeaks: 1\n1.0\n",
		"missing peaks":     "Name: PEPTIDE/2\nComment: Parent=1\n",
		"unknown mod":       "Name: PEPTIDE/2\nComment: Mods=1/0,P,Nope\nNumPeaks: 0\n",
		"peaks before name": "NumPeaks: 1\n1.0 1.0\n",
	} {
		t.Run(name, func(t *testing.T) {
			r := NewReader(strings.NewReader(input), nil)
			for r.Next() {
			}
			if r.Err() == nil {
				t.Error("expected error")
			}
		})
	}
}
