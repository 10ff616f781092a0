package reader

import (
	"errors"
	"strings"
	"testing"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"lib.msp", FormatMSP, false},
		{"/data/Lib.MSP", FormatMSP, false},
		{"lib.sptxt", FormatSPTXT, false},
		{"lib.mgf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewUnsupported(t *testing.T) {
	_, err := New("mzml", strings.NewReader(""), nil)
	var ce *core.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("New() error = %v, want ConfigurationError", err)
	}
}

func TestLoad(t *testing.T) {
	input := "Name: AAK/1\nNum peaks: 1\n100 1\n\nName: AAK/1\nNum peaks: 1\n200 1\n"
	sr, err := New(FormatMSP, strings.NewReader(input), nil)
	if err != nil {
		t.Fatal(err)
	}

	visited := 0
	coll, err := Load(sr, "lib.msp", func(s *core.Spectrum) error {
		visited++
		return nil
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if visited != 2 || coll.Len() != 2 {
		t.Fatalf("visited %d, stored %d, want 2", visited, coll.Len())
	}
	if _, ok := coll.Spectrum("AAK/1#2"); !ok {
		t.Error("duplicate name should be stored as AAK/1#2")
	}
	for _, s := range coll.All() {
		if s.SourceFile != "lib.msp" {
			t.Errorf("SourceFile = %q", s.SourceFile)
		}
	}

	sr, _ = New(FormatMSP, strings.NewReader(input), nil)
	coll, err = Load(sr, "lib.msp", func(s *core.Spectrum) error {
		if s.Peaks[0].MZ > 150 {
			return ErrSkip
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Load() with skip error = %v", err)
	}
	if coll.Len() != 1 {
		t.Errorf("Load() with skip stored %d spectra, want 1", coll.Len())
	}

	sr, _ = New(FormatMSP, strings.NewReader(input), nil)
	_, err = Load(sr, "lib.msp", func(s *core.Spectrum) error {
		return errors.New("rejected")
	})
	if err == nil {
		t.Error("Load() should surface visit errors")
	}
}
