// Package delay provides the per-channel circular buffer used by the
// delay engine, together with its fractional-delay reader.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-microdelay/dsp/core"
)

// Headroom is the minimum number of slots kept between the longest readable
// delay and the buffer length, so the interpolation taps never alias the slot
// being written.
const Headroom = 2

// Line is a fixed-capacity circular buffer with an explicit write cursor.
//
// Unlike a write-and-advance delay line, Write stores at the cursor without
// moving it; the caller reads, writes, and then calls Advance exactly once per
// sample. This lets feedback computed from the current read be written into
// the same slot before the cursor moves on.
type Line struct {
	buffer []float64
	cursor int
}

// New returns a zeroed line holding capacity samples.
func New(capacity int) (*Line, error) {
	if capacity < Headroom+1 {
		return nil, fmt.Errorf("delay capacity must be >= %d: %d", Headroom+1, capacity)
	}
	return &Line{buffer: make([]float64, capacity)}, nil
}

// Len returns the buffer capacity in samples.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Cursor returns the current write position in [0, Len()).
func (d *Line) Cursor() int {
	return d.cursor
}

// MaxDelay returns the longest delay, in samples, ReadFractional accepts
// before clamping.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - Headroom)
}

// Write stores one sample at the cursor.
func (d *Line) Write(sample float64) {
	d.buffer[d.cursor] = sample
}

// Advance moves the cursor one slot forward, wrapping at Len().
func (d *Line) Advance() {
	d.cursor++
	if d.cursor >= len(d.buffer) {
		d.cursor = 0
	}
}

// At returns the raw slot value at index i modulo Len().
func (d *Line) At(i int) float64 {
	return d.buffer[d.wrap(i)]
}

// Taps resolves a fractional delay into the two slots read by
// ReadFractional and the interpolation weight applied to the first.
//
// wholeDelay is ceil(delay) and frac is delay-floor(delay), so an exact
// integer delay k yields frac 0 and selects tapB, the slot written k-1
// samples ago.
func (d *Line) Taps(delay float64) (tapA, tapB int, frac float64) {
	delay = d.clampDelay(delay)
	whole := int(math.Ceil(delay))
	frac = delay - math.Floor(delay)

	tapA = d.wrap(d.cursor - whole)
	tapB = tapA + 1
	if tapB >= len(d.buffer) {
		tapB = 0
	}
	return tapA, tapB, frac
}

// ReadFractional reads the line at a fractional delay in samples using
// linear interpolation between the two taps returned by Taps.
// The delay is clamped to [0, MaxDelay()].
func (d *Line) ReadFractional(delay float64) float64 {
	tapA, tapB, frac := d.Taps(delay)
	return core.Convex(d.buffer[tapA], d.buffer[tapB], frac)
}

// Reset zeroes the buffer and rewinds the cursor.
func (d *Line) Reset() {
	core.Zero(d.buffer)
	d.cursor = 0
}

func (d *Line) clampDelay(delay float64) float64 {
	// NaN compares false against both bounds; treat it as no delay.
	if !(delay > 0) {
		return 0
	}
	if maxDelay := d.MaxDelay(); delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (d *Line) wrap(i int) int {
	size := len(d.buffer)
	i %= size
	if i < 0 {
		i += size
	}
	return i
}
