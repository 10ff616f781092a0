package msp

import (
	"strings"
	"testing"
)

const library = `Name: PEPTIDE/2
MW: 799.36
Comment: Parent=400.687 Collision_energy=30 iRT=12.5 Mods=0 Scan=1001
Num peaks: 3
227.1026	100	"b2/0.0ppm"
263.0874	80	"y2/0.1ppm"
120.5	5	"?"

Name: PEMTIDEK/3
Comment: Parent=312.81 Mods=2/-1,P,Acetyl/2,M,Oxidation
Num peaks: 2
400.2	10
300.1	20

Name: ACDEK/1
Comment: ModString=ACDEK//Carbamidomethyl@C1/1
Num peaks: 0

Name: GGGK/2
Num peaks: 1
150.0	1
`

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(library), nil)

	var names []string
	var ids []string
	count := 0
	for r.Next() {
		spec := r.Spectrum()
		names = append(names, spec.Name())
		ids = append(ids, spec.ID)
		count++

		if !spec.ArePeaksSorted() {
			t.Errorf("%s: peaks not sorted", spec.ID)
		}

		switch spec.Sequence {
		case "PEPTIDE":
			if spec.Charge != 2 || spec.PrecursorMZ != 400.687 {
				t.Errorf("PEPTIDE header = charge %d precursor %v", spec.Charge, spec.PrecursorMZ)
			}
			if spec.RetentionTime == nil || *spec.RetentionTime != 12.5 {
				t.Error("PEPTIDE iRT not parsed")
			}
			if spec.CollisionEnergy == nil || *spec.CollisionEnergy != 30 {
				t.Error("PEPTIDE collision energy not parsed")
			}
			if len(spec.Peaks) != 3 {
				t.Fatalf("PEPTIDE peaks = %d, want 3", len(spec.Peaks))
			}
			if spec.Peaks[1].Annotation != "b2" {
				t.Errorf("annotation = %q, want b2", spec.Peaks[1].Annotation)
			}
			if spec.Peaks[0].Annotation != "" {
				t.Errorf("unknown annotation kept: %q", spec.Peaks[0].Annotation)
			}
			if len(spec.Modifications) != 0 {
				t.Errorf("PEPTIDE mods = %v", spec.Modifications)
			}

		case "PEMTIDEK":
			if len(spec.Modifications) != 2 {
				t.Fatalf("PEMTIDEK mods = %v", spec.Modifications)
			}
			if spec.Modifications[0].Position != -1 || spec.Modifications[1].Position != 2 {
				t.Errorf("PEMTIDEK positions = %v", spec.Modifications)
			}
			if spec.Peaks[0].MZ != 300.1 {
				t.Error("PEMTIDEK peaks should be sorted on read")
			}

		case "ACDEK":
			if len(spec.Peaks) != 0 {
				t.Errorf("ACDEK peaks = %d, want 0", len(spec.Peaks))
			}
			if len(spec.Modifications) != 1 || spec.Modifications[0].Position != 1 {
				t.Errorf("ACDEK mods = %v", spec.Modifications)
			}
		}
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if count != 4 {
		t.Fatalf("read %d spectra (%v), want 4", count, names)
	}
	wantIDs := []string{"1001", "PEMTIDEK/3", "ACDEK/1", "GGGK/2"}
	for i, id := range wantIDs {
		if ids[i] != id {
			t.Errorf("spectrum %d id = %q, want %q", i, ids[i], id)
		}
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad name", "Name: PEPTIDE\nNum peaks: 0\n"},
		{"bad charge", "Name: PEPTIDE/x\nNum peaks: 0\n"},
		{"bad num peaks", "Name: PEPTIDE/2\nNum peaks: many\n"},
		{"bad peak", "Name: PEPTIDE/2\nNum peaks: 1\nabc 12\n"},
		{"bad mods", "Name: PEPTIDE/2\nComment: Mods=1/9,K,Acetyl\nNum peaks: 0\n"},
		{"missing peak list", "Name: PEPTIDE/2\nComment: Parent=1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), nil)
			for r.Next() {
			}
			if r.Err() == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReaderShortPeakCount(t *testing.T) {
	input := "Name: AAK/1\nNum peaks: 5\n100 1\n200 2\n\nName: GGK/1\nNum peaks: 1\n50 1\n"
	r := NewReader(strings.NewReader(input), nil)

	var peaks []int
	for r.Next() {
		peaks = append(peaks, len(r.Spectrum().Peaks))
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(peaks) != 2 || peaks[0] != 2 || peaks[1] != 1 {
		t.Errorf("peak counts = %v, want [2 1]", peaks)
	}
}

func TestReaderEmpty(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n"), nil)
	if r.Next() {
		t.Error("Next() on empty input should be false")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v", r.Err())
	}
}
