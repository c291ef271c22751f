package param

import (
	"fmt"
	"sort"
)

// Stable parameter identifiers.
const (
	IDDry            = "dry_level"
	IDWet            = "wet_level"
	IDInvertWet      = "inverse_wet_level"
	IDDelay          = "delay"
	IDFeedback       = "feedback"
	IDInvertFeedback = "inverse_feedback"
)

// Declared parameter ranges.
const (
	MinGainDB         = -80.0
	MaxLineGainDB     = 20.0
	MaxFeedbackGainDB = 0.0
	MinDelayMicros    = 25.0
	MaxDelayMicros    = 100000.0
)

const (
	defaultGainSmoothingMs  = 10.0
	defaultDelaySmoothingMs = 50.0
)

// Set holds the full MicroDelay control surface.
type Set struct {
	Dry            *Float
	Wet            *Float
	InvertWet      *Bool
	Delay          *Float
	Feedback       *Float
	InvertFeedback *Bool
}

// NewSet returns the parameter set with its declared ranges and defaults:
// dry at unity, line and feedback silent, and the delay at its maximum.
func NewSet() *Set {
	return &Set{
		Dry:            mustFloat(IDDry, "Dry", 0, MinGainDB, MaxLineGainDB, UnitDecibel, defaultGainSmoothingMs),
		Wet:            mustFloat(IDWet, "Line gain", MinGainDB, MinGainDB, MaxLineGainDB, UnitDecibel, defaultGainSmoothingMs),
		InvertWet:      NewBool(IDInvertWet, "Line signal inverse", false),
		Delay:          mustFloat(IDDelay, "Delay", MaxDelayMicros, MinDelayMicros, MaxDelayMicros, UnitMicroseconds, defaultDelaySmoothingMs),
		Feedback:       mustFloat(IDFeedback, "Feedback", MinGainDB, MinGainDB, MaxFeedbackGainDB, UnitDecibel, defaultGainSmoothingMs),
		InvertFeedback: NewBool(IDInvertFeedback, "Feedback inverse", false),
	}
}

func mustFloat(id, name string, def, min, max float64, unit Unit, smoothingMs float64) *Float {
	p, err := NewFloat(id, name, def, min, max, WithUnit(unit), WithSmoothing(StyleLinear, smoothingMs))
	if err != nil {
		panic("param: " + err.Error())
	}
	return p
}

// Floats returns the continuous parameters in declaration order.
func (s *Set) Floats() []*Float {
	return []*Float{s.Dry, s.Wet, s.Delay, s.Feedback}
}

// Bools returns the switch parameters in declaration order.
func (s *Set) Bools() []*Bool {
	return []*Bool{s.InvertWet, s.InvertFeedback}
}

// IDs returns all parameter identifiers sorted alphabetically.
func (s *Set) IDs() []string {
	ids := make([]string, 0, 6)
	for _, p := range s.Floats() {
		ids = append(ids, p.ID())
	}
	for _, b := range s.Bools() {
		ids = append(ids, b.ID())
	}
	sort.Strings(ids)
	return ids
}

// FloatByID looks up a continuous parameter.
func (s *Set) FloatByID(id string) (*Float, bool) {
	for _, p := range s.Floats() {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// BoolByID looks up a switch parameter.
func (s *Set) BoolByID(id string) (*Bool, bool) {
	for _, b := range s.Bools() {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// SetByID assigns a numeric value to a continuous parameter, or a boolean
// (non-zero = on) to a switch.
func (s *Set) SetByID(id string, value float64) error {
	if p, ok := s.FloatByID(id); ok {
		p.Set(value)
		return nil
	}
	if b, ok := s.BoolByID(id); ok {
		b.Set(value != 0)
		return nil
	}
	return fmt.Errorf("unknown parameter: %q", id)
}

// SetSampleRate prepares all smoothers for the given rate.
// Audio goroutine only.
func (s *Set) SetSampleRate(sampleRate float64) {
	for _, p := range s.Floats() {
		p.SetSampleRate(sampleRate)
	}
}

// Reset snaps every smoother to its current target.
// Audio goroutine only.
func (s *Set) Reset() {
	for _, p := range s.Floats() {
		p.Reset()
	}
}

// ResetDefaults publishes every parameter's default value.
func (s *Set) ResetDefaults() {
	for _, p := range s.Floats() {
		p.Set(p.Default())
	}
	for _, b := range s.Bools() {
		b.Set(b.Default())
	}
}
