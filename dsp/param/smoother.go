package param

import (
	"fmt"
	"math"
)

// Style selects how a Smoother approaches a new target.
type Style int

const (
	// StyleNone jumps to the target immediately.
	StyleNone Style = iota
	// StyleLinear ramps to the target in a fixed time.
	StyleLinear
	// StyleExponential follows the target with a one-pole lowpass whose time
	// constant is the smoothing time.
	StyleExponential
)

// String implements fmt.Stringer.
func (s Style) String() string {
	switch s {
	case StyleNone:
		return "none"
	case StyleLinear:
		return "linear"
	case StyleExponential:
		return "exponential"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

const settleEpsilon = 1e-9

// Smoother turns a stepwise target into a per-sample curve.
type Smoother struct {
	style      Style
	timeMs     float64
	sampleRate float64

	current float64
	target  float64
	step    float64
	steps   int
	coef    float64
	primed  bool
}

// NewSmoother returns a smoother with the given style and smoothing time.
// Negative, NaN, or infinite times are treated as zero (no smoothing).
func NewSmoother(style Style, timeMs float64) Smoother {
	if timeMs < 0 || math.IsNaN(timeMs) || math.IsInf(timeMs, 0) {
		timeMs = 0
	}
	return Smoother{style: style, timeMs: timeMs, coef: 1}
}

// Style returns the smoothing style.
func (s *Smoother) Style() Style { return s.style }

// TimeMs returns the smoothing time in milliseconds.
func (s *Smoother) TimeMs() float64 { return s.timeMs }

// SetSampleRate updates the rate used to convert the smoothing time to samples.
func (s *Smoother) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return
	}
	s.sampleRate = sampleRate

	s.coef = 1
	if s.style == StyleExponential && s.timeMs > 0 {
		tauSeconds := s.timeMs / 1000
		s.coef = 1 - math.Exp(-1/(tauSeconds*sampleRate))
	}
}

// Reset snaps the smoother to value with no ramp in progress.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.step = 0
	s.steps = 0
	s.primed = true
}

// Current returns the last produced value.
func (s *Smoother) Current() float64 { return s.current }

// Next returns the next per-sample value on the way to target.
func (s *Smoother) Next(target float64) float64 {
	if !s.primed {
		s.Reset(target)
		return target
	}
	if target != s.target {
		s.retarget(target)
	}

	switch s.style {
	case StyleLinear:
		if s.steps > 0 {
			s.steps--
			s.current += s.step
			if s.steps == 0 {
				s.current = s.target
			}
		}
	case StyleExponential:
		if s.coef >= 1 {
			s.current = s.target
		} else {
			s.current += (s.target - s.current) * s.coef
			if math.Abs(s.target-s.current) < settleEpsilon {
				s.current = s.target
			}
		}
	default:
		s.current = s.target
	}
	return s.current
}

// NextBlock fills dst with consecutive values approaching target.
func (s *Smoother) NextBlock(dst []float64, target float64) {
	for i := range dst {
		dst[i] = s.Next(target)
	}
}

func (s *Smoother) retarget(target float64) {
	s.target = target
	if s.style != StyleLinear {
		return
	}

	steps := 0
	if s.sampleRate > 0 {
		steps = int(math.Round(s.timeMs * s.sampleRate / 1000))
	}
	if steps <= 0 {
		s.current = target
		s.steps = 0
		return
	}
	s.steps = steps
	s.step = (target - s.current) / float64(steps)
}
