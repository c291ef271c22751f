package response

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-microdelay/dsp/core"
	"github.com/cwbudde/algo-microdelay/dsp/effects"
)

const renderBlock = 1024

var (
	// ErrEmptyResponse is returned for zero-length inputs.
	ErrEmptyResponse = errors.New("response: empty impulse response")
	// ErrInvalidFFTSize is returned for FFT sizes that are not a power of two
	// or are shorter than the response.
	ErrInvalidFFTSize = errors.New("response: invalid FFT size")
)

// Config holds constant control values for an impulse measurement.
// Levels are in dB and use the same silence floor as the plugin.
type Config struct {
	SampleRate     float64
	DryDB          float64
	WetDB          float64
	FeedbackDB     float64
	DelayMicros    float64
	InvertWet      bool
	InvertFeedback bool
}

// Echo is one peak of the echo train.
type Echo struct {
	Index     int
	Seconds   float64
	Amplitude float64
}

// ImpulseResponse renders length samples of the delay's response to a unit
// impulse at sample 0.
func ImpulseResponse(cfg Config, length int) ([]float64, error) {
	if length <= 0 {
		return nil, ErrEmptyResponse
	}
	engine, err := effects.NewMicroDelay(1, cfg.SampleRate, renderBlock)
	if err != nil {
		return nil, fmt.Errorf("impulse response: %w", err)
	}

	out := make([]float64, length)
	out[0] = 1
	for start := 0; start < length; start += renderBlock {
		end := min(start+renderBlock, length)
		auto := engine.Automation(end - start)
		auto.SetConstant(core.DBToGain(cfg.DryDB), core.DBToGain(cfg.WetDB), core.DBToGain(cfg.FeedbackDB), cfg.DelayMicros)
		auto.InvertWet = cfg.InvertWet
		auto.InvertFeedback = cfg.InvertFeedback
		if _, err := engine.Process([][]float64{out[start:end]}, auto); err != nil {
			return nil, fmt.Errorf("impulse response: %w", err)
		}
	}
	return out, nil
}

// Echoes returns the local magnitude peaks of ir after index 0 that lie
// within thresholdDB of the largest one. sampleRate may be 0 to leave
// Seconds unset.
func Echoes(ir []float64, thresholdDB, sampleRate float64) []Echo {
	if len(ir) < 2 {
		return nil
	}
	peak := vecmath.MaxAbs(ir[1:])
	if peak == 0 {
		return nil
	}
	floor := peak * core.DBToLinear(-math.Abs(thresholdDB))

	var echoes []Echo
	for i := 1; i < len(ir); i++ {
		m := math.Abs(ir[i])
		if m < floor {
			continue
		}
		if m < math.Abs(ir[i-1]) || (i+1 < len(ir) && m <= math.Abs(ir[i+1])) {
			continue
		}
		e := Echo{Index: i, Amplitude: ir[i]}
		if sampleRate > 0 {
			e.Seconds = float64(i) / sampleRate
		}
		echoes = append(echoes, e)
	}
	return echoes
}

// DecayTime fits a log-linear decay through the echo amplitudes and returns
// the time, in seconds, for the train to fall by 60 dB. It returns +Inf for
// fewer than two echoes or a non-decaying train.
func DecayTime(echoes []Echo, sampleRate float64) float64 {
	if len(echoes) < 2 || sampleRate <= 0 {
		return math.Inf(1)
	}

	// Least squares of level (dB) against time (samples).
	var sumX, sumY, sumXY, sumXX float64
	for _, e := range echoes {
		x := float64(e.Index)
		y := core.LinearToDB(math.Abs(e.Amplitude))
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	n := float64(len(echoes))
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return math.Inf(1)
	}
	slope := (n*sumXY - sumX*sumY) / den // dB per sample
	if slope >= 0 {
		return math.Inf(1)
	}
	return -60 / slope / sampleRate
}

// ExpectedDecayTime returns the 60 dB decay time of an echo train repeating
// every period samples with feedback gain feedbackDB per repeat.
func ExpectedDecayTime(feedbackDB float64, periodSamples, sampleRate float64) float64 {
	if feedbackDB >= 0 || periodSamples <= 0 || sampleRate <= 0 {
		return math.Inf(1)
	}
	if feedbackDB <= core.SilenceFloorDB {
		return 0
	}
	return 60 / -feedbackDB * periodSamples / sampleRate
}

// MagnitudeDB returns the magnitude response of ir in dB for bins
// 0..fftSize/2. ir is zero-padded to fftSize, which must be a power of two
// not shorter than ir.
func MagnitudeDB(ir []float64, fftSize int) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyResponse
	}
	if fftSize < len(ir) || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d for %d samples", ErrInvalidFFTSize, fftSize, len(ir))
	}

	in := make([]complex128, fftSize)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	spectrum := make([]complex128, fftSize)
	if err := plan.Forward(spectrum, in); err != nil {
		return nil, fmt.Errorf("fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := 0; k < bins; k++ {
		re[k] = real(spectrum[k])
		im[k] = imag(spectrum[k])
	}
	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)
	for k, m := range mag {
		mag[k] = core.LinearToDB(m)
	}
	return mag, nil
}

// EchoPeriod returns the spacing, in samples, between echoes for a delay of
// delaySamples. Whole-sample delays read the slot written one sample later
// than the nominal tap, so the train repeats every delaySamples-1; fractional
// delays interpolate and repeat every delaySamples.
func EchoPeriod(delaySamples float64) float64 {
	if delaySamples <= 0 {
		return 0
	}
	if delaySamples == math.Floor(delaySamples) {
		return delaySamples - 1
	}
	return delaySamples
}

// BinFrequency returns the centre frequency of bin k for an fftSize-point
// transform.
func BinFrequency(k, fftSize int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(fftSize)
}

// CombNotches returns the notch frequencies up to Nyquist of the
// feed-forward comb 1 + g*z^-period. With a positive wet gain the notches sit
// at odd multiples of sampleRate/(2*period); inverting the wet signal moves
// them to multiples of sampleRate/period, including DC.
func CombNotches(periodSamples, sampleRate float64, invertWet bool) []float64 {
	if periodSamples <= 0 || sampleRate <= 0 {
		return nil
	}
	spacing := sampleRate / periodSamples
	offset := spacing / 2
	if invertWet {
		offset = 0
	}
	var notches []float64
	for f := offset; f <= sampleRate/2; f += spacing {
		notches = append(notches, f)
	}
	return notches
}
