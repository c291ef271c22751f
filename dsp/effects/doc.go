// Package effects provides the MicroDelay engine: a single-tap delay with
// feedback and sample-accurate automation.
//
// Each channel owns a [delay.Line] sized for the longest configured delay
// plus a few samples of headroom. Per sample the engine reads the
// interpolated tap, writes input plus fed-back tap at the cursor, mixes dry
// and wet, and advances the cursor. Delay time, dry, wet and feedback gain
// are supplied per sample through an [Automation] block; the inversion
// switches apply to the whole block.
//
// Two processing paths exist:
//   - ProcessFrame: one sample of one channel, the reference signal path.
//   - Process: a block of all channels in place, with the mix stage
//     vectorised. Both produce the same output.
//
// Process does not allocate and is safe to call from a real-time audio
// goroutine. Construction and Reset are not.
package effects
