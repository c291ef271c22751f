package effects

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-microdelay/internal/testutil"
)

func newTestDelay(t *testing.T, channels int, sampleRate float64, maxBlock int, opts ...Option) *MicroDelay {
	t.Helper()
	m, err := NewMicroDelay(channels, sampleRate, maxBlock, opts...)
	if err != nil {
		t.Fatalf("NewMicroDelay() error = %v", err)
	}
	return m
}

func mustProcess(t *testing.T, m *MicroDelay, block [][]float64, auto *Automation) {
	t.Helper()
	status, err := m.Process(block, auto)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if status != StatusNormal {
		t.Fatalf("Process() status = %v, want normal", status)
	}
}

func TestNewMicroDelayValidation(t *testing.T) {
	tests := []struct {
		name       string
		channels   int
		sampleRate float64
		maxBlock   int
		opts       []Option
		want       error
	}{
		{name: "zero channels", channels: 0, sampleRate: 48000, maxBlock: 64, want: ErrInvalidChannels},
		{name: "negative channels", channels: -2, sampleRate: 48000, maxBlock: 64, want: ErrInvalidChannels},
		{name: "zero rate", channels: 2, sampleRate: 0, maxBlock: 64, want: ErrInvalidSampleRate},
		{name: "negative rate", channels: 2, sampleRate: -44100, maxBlock: 64, want: ErrInvalidSampleRate},
		{name: "nan rate", channels: 2, sampleRate: math.NaN(), maxBlock: 64, want: ErrInvalidSampleRate},
		{name: "inf rate", channels: 2, sampleRate: math.Inf(1), maxBlock: 64, want: ErrInvalidSampleRate},
		{name: "zero block", channels: 2, sampleRate: 48000, maxBlock: 0, want: ErrInvalidBlockSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMicroDelay(tt.channels, tt.sampleRate, tt.maxBlock, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if m != nil {
				t.Fatal("expected nil engine on error")
			}
		})
	}

	if _, err := NewMicroDelay(1, 48000, 64, WithHeadroom(1)); err == nil {
		t.Fatal("expected error for headroom < 2")
	}
	if _, err := NewMicroDelay(1, 48000, 64, WithMaxDelayMicros(-5)); err == nil {
		t.Fatal("expected error for negative max delay")
	}
}

func TestMicroDelayCapacity(t *testing.T) {
	m := newTestDelay(t, 2, 48000, 256)
	if m.Capacity() != 4805 {
		t.Fatalf("Capacity = %d, want 4805", m.Capacity())
	}
	if m.MaxDelaySamples() != 4800 {
		t.Fatalf("MaxDelaySamples = %v, want 4800", m.MaxDelaySamples())
	}
	if m.Channels() != 2 || m.MaxBlock() != 256 || m.SampleRate() != 48000 {
		t.Fatalf("unexpected config: channels=%d block=%d rate=%v", m.Channels(), m.MaxBlock(), m.SampleRate())
	}

	m = newTestDelay(t, 1, 44100, 64, WithMaxDelayMicros(1000), WithHeadroom(2))
	// ceil(44.1) + 2
	if m.Capacity() != 47 {
		t.Fatalf("Capacity = %d, want 47", m.Capacity())
	}
	if got := m.Capacity() - int(m.MaxDelaySamples()); got != m.Headroom() {
		t.Fatalf("capacity - max delay = %d, want headroom %d", got, m.Headroom())
	}
}

func TestMicroDelayDelaySamples(t *testing.T) {
	m := newTestDelay(t, 1, 48000, 64)

	if got := m.DelaySamples(1000); got != 48 {
		t.Fatalf("DelaySamples(1000) = %v, want 48", got)
	}
	if got := m.DelaySamples(25); !nearlyEqual(got, 1.2) {
		t.Fatalf("DelaySamples(25) = %v, want 1.2", got)
	}
	if got := m.DelaySamples(1e9); got != m.MaxDelaySamples() {
		t.Fatalf("DelaySamples(1e9) = %v, want clamp %v", got, m.MaxDelaySamples())
	}
	if got := m.DelaySamples(-10); got != 0 {
		t.Fatalf("DelaySamples(-10) = %v, want 0", got)
	}
}

func nearlyEqual(a, b float64) bool { return math.Abs(a-b) < 1e-12 }

func TestMicroDelayImpulseEcho(t *testing.T) {
	const (
		sampleRate = 48000
		n          = 128
	)
	m := newTestDelay(t, 1, sampleRate, n)

	auto := m.Automation(n)
	auto.SetConstant(1, 1, 0, 1000)

	buf := testutil.Impulse(n, 0)
	mustProcess(t, m, [][]float64{buf}, auto)

	// 1000 us at 48 kHz is exactly 48 samples; an exact integer delay reads
	// the slot written one sample later, so the echo lands at 47.
	const echoAt = 47
	for i, v := range buf {
		want := 0.0
		switch i {
		case 0, echoAt:
			want = 1
		}
		if v != want {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMicroDelayFractionalEcho(t *testing.T) {
	const n = 64
	m := newTestDelay(t, 1, 1000, n)

	auto := m.Automation(n)
	// 10.25 samples: ceil=11, frac=0.25 -> taps 11 and 10 samples back.
	auto.SetConstant(0, 1, 0, 10250)

	buf := testutil.Impulse(n, 0)
	mustProcess(t, m, [][]float64{buf}, auto)

	for i, v := range buf {
		want := 0.0
		switch i {
		case 10:
			want = 0.75
		case 11:
			want = 0.25
		}
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMicroDelayFeedbackDecay(t *testing.T) {
	const (
		n      = 200
		g      = 0.5
		period = 9 // 10-sample integer delay reads 9 samples back
	)
	m := newTestDelay(t, 1, 1000, n)

	auto := m.Automation(n)
	auto.SetConstant(0, 1, g, 10000)

	buf := testutil.Impulse(n, 0)
	mustProcess(t, m, [][]float64{buf}, auto)

	for i, v := range buf {
		want := 0.0
		if i > 0 && i%period == 0 {
			want = math.Pow(g, float64(i/period-1))
		}
		if math.Abs(v-want) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestMicroDelayFeedbackInjectedIntoRing(t *testing.T) {
	const (
		g      = 0.6
		period = 9
		cycles = 5
		n      = period*cycles + 1
	)
	m := newTestDelay(t, 1, 1000, 64)

	auto := m.Automation(n)
	auto.SetConstant(0, 0, g, 10000)

	buf := testutil.Impulse(n, 0)
	mustProcess(t, m, [][]float64{buf}, auto)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want silence with dry and wet at 0", i, v)
		}
	}

	line := m.lines[0]
	for k := 1; k <= cycles; k++ {
		got := line.At(k * period)
		want := math.Pow(g, float64(k))
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("cycle %d: ring peak = %v, want %v", k, got, want)
		}
	}
}

func TestMicroDelayInversion(t *testing.T) {
	const n = 40
	m := newTestDelay(t, 1, 1000, n)

	auto := m.Automation(n)
	auto.SetConstant(0, 1, 0.5, 10000)
	auto.InvertWet = true
	auto.InvertFeedback = true

	buf := testutil.Impulse(n, 0)
	mustProcess(t, m, [][]float64{buf}, auto)

	// Wet inversion negates every echo; feedback inversion alternates them.
	want := map[int]float64{9: -1, 18: 0.5, 27: -0.25, 36: 0.125}
	for i, v := range buf {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Fatalf("out[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestMicroDelayCursorWrap(t *testing.T) {
	m := newTestDelay(t, 2, 1000, 32, WithMaxDelayMicros(20000), WithHeadroom(2))
	capacity := m.Capacity() // 22

	auto := m.Automation(1)
	auto.SetConstant(1, 0, 0, 5000)
	for i := 0; i < capacity; i++ {
		mustProcess(t, m, [][]float64{{0}, {0}}, auto)
		if i < capacity-1 && m.Cursor(0) != i+1 {
			t.Fatalf("cursor after %d samples = %d", i+1, m.Cursor(0))
		}
	}
	for c := 0; c < m.Channels(); c++ {
		if m.Cursor(c) != 0 {
			t.Fatalf("channel %d cursor = %d after %d samples, want 0", c, m.Cursor(c), capacity)
		}
	}
}

func TestMicroDelayReset(t *testing.T) {
	const n = 256
	m := newTestDelay(t, 2, 8000, n)

	auto := m.Automation(n)
	auto.SetConstant(1, 1, 0.7, 5000)
	block := [][]float64{
		testutil.DeterministicNoise(1, 1, n),
		testutil.DeterministicNoise(2, 1, n),
	}
	mustProcess(t, m, block, auto)

	m.Reset()

	for c := 0; c < m.Channels(); c++ {
		if m.Cursor(c) != 0 {
			t.Fatalf("channel %d cursor = %d after reset", c, m.Cursor(c))
		}
		for delay := 0.0; delay <= m.MaxDelaySamples(); delay += 7.3 {
			if got := m.lines[c].ReadFractional(delay); got != 0 {
				t.Fatalf("channel %d read at %v = %v after reset", c, delay, got)
			}
		}
	}

	// Silence in must give silence out until new samples are written.
	silent := [][]float64{make([]float64, n), make([]float64, n)}
	mustProcess(t, m, silent, auto)
	for c := range silent {
		for i, v := range silent[c] {
			if v != 0 {
				t.Fatalf("channel %d out[%d] = %v after reset", c, i, v)
			}
		}
	}
}

func TestMicroDelayChannelsIndependent(t *testing.T) {
	const n = 64
	m := newTestDelay(t, 2, 1000, n)

	auto := m.Automation(n)
	auto.SetConstant(1, 1, 0.5, 10000)

	left := testutil.Impulse(n, 3)
	right := make([]float64, n)
	mustProcess(t, m, [][]float64{left, right}, auto)

	for i, v := range right {
		if v != 0 {
			t.Fatalf("right[%d] = %v, want 0", i, v)
		}
	}
	if left[3] != 1 || left[12] != 1 || left[21] != 0.5 {
		t.Fatalf("unexpected left echoes: %v %v %v", left[3], left[12], left[21])
	}
}

// processByFrame runs the literal per-sample signal path for reference.
func processByFrame(m *MicroDelay, block [][]float64, auto *Automation) {
	for c, samples := range block {
		for i, x := range samples {
			samples[i] = m.ProcessFrame(c, x, Frame{
				DelaySamples:   m.DelaySamples(auto.Delay[i]),
				Dry:            auto.Dry[i],
				Wet:            auto.Wet[i],
				Feedback:       auto.Feedback[i],
				InvertWet:      auto.InvertWet,
				InvertFeedback: auto.InvertFeedback,
			})
		}
	}
}

func TestMicroDelayBlockMatchesFrame(t *testing.T) {
	const n = 512
	blockEngine := newTestDelay(t, 2, 44100, n)
	frameEngine := newTestDelay(t, 2, 44100, n)

	auto := NewAutomation(n)
	for i := 0; i < n; i++ {
		x := float64(i) / n
		auto.Dry[i] = 1 - 0.5*x
		auto.Wet[i] = 0.2 + 0.6*x
		auto.Feedback[i] = 0.3 + 0.4*x
		auto.Delay[i] = 25 + 4000*x // sweeps through fractional delays
	}

	for _, flags := range [][2]bool{{false, false}, {true, false}, {false, true}, {true, true}} {
		auto.InvertWet, auto.InvertFeedback = flags[0], flags[1]

		left := testutil.DeterministicNoise(11, 0.8, n)
		right := testutil.DeterministicSine(440, 44100, 0.5, n)
		refLeft := append([]float64(nil), left...)
		refRight := append([]float64(nil), right...)

		mustProcess(t, blockEngine, [][]float64{left, right}, auto)
		processByFrame(frameEngine, [][]float64{refLeft, refRight}, auto)

		testutil.RequireSliceNearlyEqual(t, left, refLeft, 1e-12)
		testutil.RequireSliceNearlyEqual(t, right, refRight, 1e-12)
	}
}

func TestMicroDelayBlockSplitInvariant(t *testing.T) {
	const (
		total = 480
		split = 96
	)
	whole := newTestDelay(t, 1, 48000, total)
	parts := newTestDelay(t, 1, 48000, split)

	full := NewAutomation(total)
	for i := 0; i < total; i++ {
		full.Dry[i] = 0.5
		full.Wet[i] = 1
		full.Feedback[i] = 0.8
		full.Delay[i] = 1000 + 3*float64(i)
	}

	in := testutil.DeterministicNoise(3, 1, total)
	want := append([]float64(nil), in...)
	mustProcess(t, whole, [][]float64{want}, full)

	got := append([]float64(nil), in...)
	for start := 0; start < total; start += split {
		auto := parts.Automation(split)
		copy(auto.Dry, full.Dry[start:])
		copy(auto.Wet, full.Wet[start:])
		copy(auto.Feedback, full.Feedback[start:])
		copy(auto.Delay, full.Delay[start:])
		mustProcess(t, parts, [][]float64{got[start : start+split]}, auto)
	}

	testutil.RequireSliceNearlyEqual(t, got, want, 1e-12)
}

func TestMicroDelayClampsExcessiveDelay(t *testing.T) {
	const n = 64
	m := newTestDelay(t, 1, 1000, n, WithMaxDelayMicros(10000), WithHeadroom(2))
	ref := newTestDelay(t, 1, 1000, n, WithMaxDelayMicros(10000), WithHeadroom(2))

	auto := m.Automation(n)
	auto.SetConstant(0, 1, 0, 1e12)
	refAuto := ref.Automation(n)
	refAuto.SetConstant(0, 1, 0, 10000) // exactly the max delay

	in := testutil.DeterministicNoise(5, 1, n)
	got := append([]float64(nil), in...)
	want := append([]float64(nil), in...)
	mustProcess(t, m, [][]float64{got}, auto)
	mustProcess(t, ref, [][]float64{want}, refAuto)

	testutil.RequireSliceNearlyEqual(t, got, want, 0)
	testutil.RequireFinite(t, got)
}

func TestMicroDelayProcessErrors(t *testing.T) {
	m := newTestDelay(t, 2, 48000, 16)
	auto := NewAutomation(16)

	tests := []struct {
		name  string
		block [][]float64
		auto  *Automation
		want  error
	}{
		{name: "too few channels", block: [][]float64{make([]float64, 8)}, auto: auto, want: ErrChannelMismatch},
		{name: "ragged", block: [][]float64{make([]float64, 8), make([]float64, 7)}, auto: auto, want: ErrBlockTooLarge},
		{name: "too long", block: [][]float64{make([]float64, 17), make([]float64, 17)}, auto: NewAutomation(32), want: ErrBlockTooLarge},
		{name: "short automation", block: [][]float64{make([]float64, 8), make([]float64, 8)}, auto: NewAutomation(4), want: ErrAutomationLength},
		{name: "nil automation", block: [][]float64{make([]float64, 8), make([]float64, 8)}, auto: nil, want: ErrAutomationLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := m.Process(tt.block, tt.auto)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if status != StatusError {
				t.Fatalf("status = %v, want error", status)
			}
			if m.Cursor(0) != 0 || m.Cursor(1) != 0 {
				t.Fatal("engine state changed on rejected block")
			}
		})
	}

	status, err := m.Process([][]float64{{}, {}}, auto)
	if err != nil || status != StatusNormal {
		t.Fatalf("empty block: status=%v err=%v", status, err)
	}
}

func TestAutomationResize(t *testing.T) {
	a := NewAutomation(8)
	if a.Len() != 8 {
		t.Fatalf("Len = %d, want 8", a.Len())
	}
	if err := a.Resize(3); err != nil || a.Len() != 3 {
		t.Fatalf("Resize(3): len=%d err=%v", a.Len(), err)
	}
	if err := a.Resize(8); err != nil || a.Len() != 8 {
		t.Fatalf("Resize(8): len=%d err=%v", a.Len(), err)
	}
	if err := a.Resize(9); !errors.Is(err, ErrAutomationLength) {
		t.Fatalf("Resize(9) error = %v", err)
	}

	m := newTestDelay(t, 1, 48000, 32)
	if got := m.Automation(100).Len(); got != 32 {
		t.Fatalf("Automation(100).Len() = %d, want 32", got)
	}
}

func TestMicroDelayProcessDoesNotAllocate(t *testing.T) {
	const n = 256
	m := newTestDelay(t, 2, 48000, n)
	auto := m.Automation(n)
	auto.SetConstant(1, 0.5, 0.5, 2500)
	block := [][]float64{
		testutil.DeterministicNoise(1, 1, n),
		testutil.DeterministicNoise(2, 1, n),
	}

	allocs := testing.AllocsPerRun(50, func() {
		_, _ = m.Process(block, auto)
	})
	if allocs != 0 {
		t.Fatalf("allocs per block = %v, want 0", allocs)
	}
}

func TestStatusString(t *testing.T) {
	if StatusNormal.String() != "normal" || StatusError.String() != "error" || Status(7).String() != "Status(7)" {
		t.Fatal("unexpected status names")
	}
}
