package effects

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-microdelay/dsp/core"
	"github.com/cwbudde/algo-microdelay/dsp/delay"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultMaxDelayMicros = 100000.0
	defaultHeadroom       = 5
	microsPerSecond       = 1e6
)

var (
	// ErrInvalidChannels is returned for a zero channel count.
	ErrInvalidChannels = errors.New("microdelay: channel count must be > 0")
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("microdelay: sample rate must be > 0 and finite")
	// ErrInvalidBlockSize is returned for a non-positive maximum block size.
	ErrInvalidBlockSize = errors.New("microdelay: max block size must be > 0")
	// ErrChannelMismatch is returned when a block's channel count differs
	// from the engine's.
	ErrChannelMismatch = errors.New("microdelay: channel count mismatch")
	// ErrBlockTooLarge is returned for blocks longer than the configured
	// maximum or with ragged channel lengths.
	ErrBlockTooLarge = errors.New("microdelay: block length invalid")
	// ErrAutomationLength is returned when automation arrays are shorter
	// than the block.
	ErrAutomationLength = errors.New("microdelay: automation length invalid")
)

// Status reports how a Process call ended.
type Status int

const (
	// StatusNormal means the block was processed and processing continues.
	StatusNormal Status = iota
	// StatusError means the block was rejected and the engine state is unchanged.
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Option configures a MicroDelay at construction.
type Option func(*microDelayConfig) error

type microDelayConfig struct {
	maxDelayMicros float64
	headroom       int
}

// WithMaxDelayMicros sets the longest supported delay in microseconds.
func WithMaxDelayMicros(us float64) Option {
	return func(cfg *microDelayConfig) error {
		if us <= 0 || math.IsNaN(us) || math.IsInf(us, 0) {
			return fmt.Errorf("microdelay max delay must be > 0 and finite: %f", us)
		}
		cfg.maxDelayMicros = us
		return nil
	}
}

// WithHeadroom sets the number of spare ring slots beyond the longest delay.
func WithHeadroom(samples int) Option {
	return func(cfg *microDelayConfig) error {
		if samples < delay.Headroom {
			return fmt.Errorf("microdelay headroom must be >= %d: %d", delay.Headroom, samples)
		}
		cfg.headroom = samples
		return nil
	}
}

// Frame is the control snapshot for one sample index, shared by every channel.
type Frame struct {
	DelaySamples   float64
	Dry            float64
	Wet            float64
	Feedback       float64
	InvertWet      bool
	InvertFeedback bool
}

// MicroDelay is a single-tap delay with feedback and dry/wet mix whose
// controls vary per sample.
//
// One ring buffer is kept per channel; all channels share the per-sample
// control values. Process and Reset must not run concurrently.
type MicroDelay struct {
	sampleRate      float64
	maxDelayMicros  float64
	headroom        int
	maxBlock        int
	maxDelaySamples float64

	lines      []*delay.Line
	automation *Automation
	wet        []float64
}

// NewMicroDelay allocates all state for the given channel count, sample rate
// and maximum block size. No further allocation happens during processing.
func NewMicroDelay(channels int, sampleRate float64, maxBlock int, opts ...Option) (*MicroDelay, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}
	if maxBlock <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBlockSize, maxBlock)
	}

	cfg := microDelayConfig{
		maxDelayMicros: defaultMaxDelayMicros,
		headroom:       defaultHeadroom,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	capacity := int(math.Ceil(sampleRate*cfg.maxDelayMicros/microsPerSecond)) + cfg.headroom

	m := &MicroDelay{
		sampleRate:      sampleRate,
		maxDelayMicros:  cfg.maxDelayMicros,
		headroom:        cfg.headroom,
		maxBlock:        maxBlock,
		maxDelaySamples: float64(capacity - cfg.headroom),
		lines:           make([]*delay.Line, channels),
		automation:      NewAutomation(maxBlock),
		wet:             make([]float64, maxBlock),
	}
	for c := range m.lines {
		line, err := delay.New(capacity)
		if err != nil {
			return nil, err
		}
		m.lines[c] = line
	}
	return m, nil
}

// Channels returns the channel count.
func (m *MicroDelay) Channels() int { return len(m.lines) }

// SampleRate returns the sample rate in Hz.
func (m *MicroDelay) SampleRate() float64 { return m.sampleRate }

// MaxBlock returns the longest block Process accepts.
func (m *MicroDelay) MaxBlock() int { return m.maxBlock }

// Capacity returns the per-channel ring length in samples.
func (m *MicroDelay) Capacity() int { return m.lines[0].Len() }

// Headroom returns the spare ring slots beyond the longest delay.
func (m *MicroDelay) Headroom() int { return m.headroom }

// MaxDelayMicros returns the longest supported delay in microseconds.
func (m *MicroDelay) MaxDelayMicros() float64 { return m.maxDelayMicros }

// MaxDelaySamples returns the clamp bound applied to every delay, equal to
// Capacity()-Headroom().
func (m *MicroDelay) MaxDelaySamples() float64 { return m.maxDelaySamples }

// Cursor returns the write position of channel ch.
func (m *MicroDelay) Cursor(ch int) int { return m.lines[ch].Cursor() }

// DelaySamples converts a delay in microseconds to fractional samples,
// clamped to [0, MaxDelaySamples()].
func (m *MicroDelay) DelaySamples(micros float64) float64 {
	return core.Clamp(m.sampleRate*micros/microsPerSecond, 0, m.maxDelaySamples)
}

// Automation returns the engine-owned automation storage resliced to n
// samples (capped at MaxBlock). Callers fill it and pass it to Process.
func (m *MicroDelay) Automation(n int) *Automation {
	if n > m.maxBlock {
		n = m.maxBlock
	}
	if n < 0 {
		n = 0
	}
	_ = m.automation.Resize(n)
	return m.automation
}

// Reset zeroes every channel buffer and cursor. Configuration is kept.
func (m *MicroDelay) Reset() {
	for _, line := range m.lines {
		line.Reset()
	}
}

// ProcessFrame runs one sample of channel ch through the signal path:
// read the tap, write input plus feedback, mix dry and wet, advance.
func (m *MicroDelay) ProcessFrame(ch int, input float64, f Frame) float64 {
	delaySamples := core.Clamp(f.DelaySamples, 0, m.maxDelaySamples)
	tap := step(m.lines[ch], input, delaySamples, f.Feedback*core.FactorSign(f.InvertFeedback))
	return input*f.Dry + tap*f.Wet*core.FactorSign(f.InvertWet)
}

// Process runs a block in place. block holds one slice per channel, all of
// the same length n <= MaxBlock(); auto must cover at least n samples.
// On error nothing is modified.
func (m *MicroDelay) Process(block [][]float64, auto *Automation) (Status, error) {
	n, err := m.validate(block, auto)
	if err != nil {
		return StatusError, err
	}
	if n == 0 {
		return StatusNormal, nil
	}

	delayUs := auto.Delay[:n]
	feedback := auto.Feedback[:n]
	fbSign := core.FactorSign(auto.InvertFeedback)
	wet := m.wet[:n]

	for c, samples := range block {
		line := m.lines[c]
		for i, x := range samples {
			delaySamples := core.Clamp(m.sampleRate*delayUs[i]/microsPerSecond, 0, m.maxDelaySamples)
			wet[i] = step(line, x, delaySamples, feedback[i]*fbSign)
		}

		// The ring is already up to date; mixing is independent per sample.
		vecmath.MulBlock(wet, wet, auto.Wet[:n])
		if auto.InvertWet {
			vecmath.ScaleBlockInPlace(wet, -1)
		}
		vecmath.MulAddBlock(samples, samples, auto.Dry[:n], wet)
	}
	return StatusNormal, nil
}

// step reads the tap for this sample, writes input plus feedback at the
// cursor, advances, and returns the tap. The read must precede the write.
func step(line *delay.Line, input, delaySamples, feedback float64) float64 {
	tap := line.ReadFractional(delaySamples)
	line.Write(input + core.FlushDenormals(tap*feedback))
	line.Advance()
	return tap
}

func (m *MicroDelay) validate(block [][]float64, auto *Automation) (int, error) {
	if len(block) != len(m.lines) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(block), len(m.lines))
	}
	n := len(block[0])
	for c, samples := range block {
		if len(samples) != n {
			return 0, fmt.Errorf("%w: channel %d has %d samples, want %d", ErrBlockTooLarge, c, len(samples), n)
		}
	}
	if n > m.maxBlock {
		return 0, fmt.Errorf("%w: %d > max %d", ErrBlockTooLarge, n, m.maxBlock)
	}
	if auto == nil || auto.Len() < n {
		have := 0
		if auto != nil {
			have = auto.Len()
		}
		return 0, fmt.Errorf("%w: have %d, need %d", ErrAutomationLength, have, n)
	}
	return n, nil
}
