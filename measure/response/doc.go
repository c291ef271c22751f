// Package response characterises the delay by its impulse response.
//
// The package renders the engine's response to a unit impulse with constant
// controls and derives:
//
//   - Echoes: discrete peaks of the echo train with their amplitudes
//   - DecayTime: time for the echo train to fall by 60 dB
//   - MagnitudeDB: magnitude response via FFT, showing the comb pattern
//   - CombNotches: analytic notch frequencies of the feed-forward comb
//
// # Usage
//
//	ir, err := response.ImpulseResponse(response.Config{
//		SampleRate: 48000, DryDB: 0, WetDB: 0, FeedbackDB: -6, DelayMicros: 1000,
//	}, 4800)
//	echoes := response.Echoes(ir, -60)
package response
