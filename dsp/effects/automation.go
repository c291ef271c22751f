package effects

import "fmt"

// Automation holds one block of per-sample control values.
//
// Dry, Wet and Feedback are linear gains (already converted from dB); Delay
// is the delay time in microseconds. All four slices must be at least as long
// as the block being processed. The inversion switches apply to the whole
// block: hosts change switch values only between blocks, so a per-block
// value is the instantaneous value for every sample in it.
type Automation struct {
	Dry      []float64
	Wet      []float64
	Feedback []float64
	Delay    []float64

	InvertWet      bool
	InvertFeedback bool
}

// NewAutomation allocates automation storage for blocks of up to maxBlock
// samples. The slices start at full length.
func NewAutomation(maxBlock int) *Automation {
	if maxBlock < 0 {
		maxBlock = 0
	}
	backing := make([]float64, 4*maxBlock)
	return &Automation{
		Dry:      backing[0*maxBlock : 1*maxBlock : 1*maxBlock],
		Wet:      backing[1*maxBlock : 2*maxBlock : 2*maxBlock],
		Feedback: backing[2*maxBlock : 3*maxBlock : 3*maxBlock],
		Delay:    backing[3*maxBlock : 4*maxBlock : 4*maxBlock],
	}
}

// Len returns the shortest slice length, i.e. the longest block the
// automation can drive.
func (a *Automation) Len() int {
	n := len(a.Dry)
	for _, s := range [][]float64{a.Wet, a.Feedback, a.Delay} {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}

// Resize reslices all four arrays to n samples without allocating.
func (a *Automation) Resize(n int) error {
	if n < 0 || n > cap(a.Dry) || n > cap(a.Wet) || n > cap(a.Feedback) || n > cap(a.Delay) {
		return fmt.Errorf("%w: %d", ErrAutomationLength, n)
	}
	a.Dry = a.Dry[:n]
	a.Wet = a.Wet[:n]
	a.Feedback = a.Feedback[:n]
	a.Delay = a.Delay[:n]
	return nil
}

// SetConstant fills every sample with fixed control values.
func (a *Automation) SetConstant(dry, wet, feedback, delayMicros float64) {
	fill(a.Dry, dry)
	fill(a.Wet, wet)
	fill(a.Feedback, feedback)
	fill(a.Delay, delayMicros)
}

func fill(buf []float64, v float64) {
	for i := range buf {
		buf[i] = v
	}
}
