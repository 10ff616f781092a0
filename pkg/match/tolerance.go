package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChrisMcGann/fragannot/pkg/core"
)

// Unit is the unit a tolerance is expressed in.
type Unit string

const (
	PPM Unit = "ppm"
	Da  Unit = "da"
)

// ParseUnit accepts "ppm" and "da" (also "Da", "dalton", "th"), case-insensitively.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ppm":
		return PPM, nil
	case "da", "dalton", "th":
		return Da, nil
	}
	return "", &core.ConfigurationError{
		Field:   "tolerance unit",
		Message: fmt.Sprintf("unsupported unit %q, must be ppm or da", s),
	}
}

// Tolerance is a symmetric mass window.
type Tolerance struct {
	Value float64
	Unit  Unit
}

// Validate rejects non-positive values and unknown units.
func (t Tolerance) Validate() error {
	_, err := t.normalize()
	return err
}

// normalize validates t and returns it with its unit spelled PPM or Da.
func (t Tolerance) normalize() (Tolerance, error) {
	if !(t.Value > 0) || math.IsInf(t.Value, 0) {
		return Tolerance{}, &core.InvalidToleranceError{Tolerance: t.Value}
	}
	unit, err := ParseUnit(string(t.Unit))
	if err != nil {
		return Tolerance{}, err
	}
	t.Unit = unit
	return t, nil
}

func (t Tolerance) isPPM() bool {
	switch t.Unit {
	case PPM:
		return true
	case Da:
		return false
	}
	unit, _ := ParseUnit(string(t.Unit))
	return unit == PPM
}

// Within reports whether observed lies inside the window around theoretical.
// Any spelling ParseUnit accepts is honoured.
func (t Tolerance) Within(observed, theoretical float64) bool {
	diff := math.Abs(observed - theoretical)
	if t.isPPM() {
		return diff/theoretical*1e6 <= t.Value
	}
	return diff <= t.Value
}

// Window returns bounds enclosing every m/z Within accepts for theoretical.
// The bounds are padded slightly; Within makes the final decision.
func (t Tolerance) Window(theoretical float64) (lo, hi float64) {
	delta := t.Value
	if t.isPPM() {
		delta = theoretical * t.Value * 1e-6
	}
	delta *= 1 + 1e-9
	return theoretical - delta, theoretical + delta
}

func (t Tolerance) String() string {
	if t.isPPM() {
		return fmt.Sprintf("%g ppm", t.Value)
	}
	return fmt.Sprintf("%g Da", t.Value)
}
