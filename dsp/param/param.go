package param

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Source produces one automation value per sample. NextBlock fills all of
// dst and must not allocate.
type Source interface {
	NextBlock(dst []float64)
}

// Unit tags how a Float value is interpreted and displayed.
type Unit int

const (
	UnitNone Unit = iota
	UnitDecibel
	UnitMicroseconds
)

// Float is a continuous parameter with a declared range and a smoothed
// per-sample output.
type Float struct {
	id   string
	name string
	unit Unit

	min, max, def float64

	target   atomic.Uint64
	smoother Smoother
	format   func(float64) string
}

// FloatOption configures a Float at construction.
type FloatOption func(*Float)

// WithSmoothing sets the smoothing style and time used by NextBlock.
func WithSmoothing(style Style, timeMs float64) FloatOption {
	return func(p *Float) {
		p.smoother = NewSmoother(style, timeMs)
	}
}

// WithUnit sets the display unit.
func WithUnit(unit Unit) FloatOption {
	return func(p *Float) {
		p.unit = unit
	}
}

// WithFormatter overrides how values are rendered by Format.
func WithFormatter(format func(float64) string) FloatOption {
	return func(p *Float) {
		if format != nil {
			p.format = format
		}
	}
}

// NewFloat declares a parameter with range [min, max] and a default value.
func NewFloat(id, name string, def, min, max float64, opts ...FloatOption) (*Float, error) {
	if id == "" {
		return nil, fmt.Errorf("parameter id must not be empty")
	}
	if math.IsNaN(min) || math.IsNaN(max) || min >= max {
		return nil, fmt.Errorf("parameter %s: range must satisfy min < max: [%f, %f]", id, min, max)
	}
	if def < min || def > max || math.IsNaN(def) {
		return nil, fmt.Errorf("parameter %s: default must be in [%f, %f]: %f", id, min, max, def)
	}

	p := &Float{
		id:       id,
		name:     name,
		min:      min,
		max:      max,
		def:      def,
		smoother: NewSmoother(StyleNone, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.format == nil {
		p.format = formatterFor(p.unit)
	}
	p.target.Store(math.Float64bits(def))
	p.smoother.Reset(def)
	return p, nil
}

// ID returns the stable identifier used by presets.
func (p *Float) ID() string { return p.id }

// Name returns the display name.
func (p *Float) Name() string { return p.name }

// Unit returns the display unit.
func (p *Float) Unit() Unit { return p.unit }

// Range returns the declared bounds.
func (p *Float) Range() (min, max float64) { return p.min, p.max }

// Default returns the default value.
func (p *Float) Default() float64 { return p.def }

// Value returns the current target value. Safe for concurrent use.
func (p *Float) Value() float64 {
	return math.Float64frombits(p.target.Load())
}

// Set clamps value into range, publishes it, and returns the stored value.
// NaN is rejected and leaves the parameter unchanged. Safe for concurrent use.
func (p *Float) Set(value float64) float64 {
	if math.IsNaN(value) {
		return p.Value()
	}
	if value < p.min {
		value = p.min
	}
	if value > p.max {
		value = p.max
	}
	p.target.Store(math.Float64bits(value))
	return value
}

// SetNormalized sets the value from a position in [0, 1] across the range.
func (p *Float) SetNormalized(pos float64) float64 {
	return p.Set(p.min + (p.max-p.min)*pos)
}

// Normalized returns the current value as a position in [0, 1].
func (p *Float) Normalized() float64 {
	return (p.Value() - p.min) / (p.max - p.min)
}

// Format renders v with the parameter's display convention.
func (p *Float) Format(v float64) string { return p.format(v) }

// String renders the current value.
func (p *Float) String() string { return p.format(p.Value()) }

// SetSampleRate prepares the smoother for the given rate.
// Audio goroutine only.
func (p *Float) SetSampleRate(sampleRate float64) {
	p.smoother.SetSampleRate(sampleRate)
}

// Reset snaps the smoothed output to the current target.
// Audio goroutine only.
func (p *Float) Reset() {
	p.smoother.Reset(p.Value())
}

// NextBlock fills dst with smoothed values in the parameter's own unit.
// The target is sampled once per call. Audio goroutine only.
func (p *Float) NextBlock(dst []float64) {
	p.smoother.NextBlock(dst, p.Value())
}

// NextBlockGain fills dst with smoothed dB values converted to linear gain
// with the silence floor applied. Audio goroutine only.
func (p *Float) NextBlockGain(dst []float64) {
	NextGainBlock(p, dst)
}

// NextGainBlock fills dst from a dB-valued src and converts it to linear
// gain with the silence floor applied.
func NextGainBlock(src Source, dst []float64) {
	src.NextBlock(dst)
	dbToGainBlock(dst)
}

// Bool is an on/off parameter. It is not smoothed: readers see the latest
// value instantaneously.
type Bool struct {
	id    string
	name  string
	def   bool
	value atomic.Bool
}

// NewBool declares a boolean parameter.
func NewBool(id, name string, def bool) *Bool {
	b := &Bool{id: id, name: name, def: def}
	b.value.Store(def)
	return b
}

// ID returns the stable identifier used by presets.
func (b *Bool) ID() string { return b.id }

// Name returns the display name.
func (b *Bool) Name() string { return b.name }

// Default returns the default value.
func (b *Bool) Default() bool { return b.def }

// Value returns the current value. Safe for concurrent use.
func (b *Bool) Value() bool { return b.value.Load() }

// Set publishes a new value. Safe for concurrent use.
func (b *Bool) Set(v bool) { b.value.Store(v) }

// String renders the current value.
func (b *Bool) String() string {
	if b.Value() {
		return "on"
	}
	return "off"
}

var _ Source = (*Float)(nil)
