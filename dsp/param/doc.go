// Package param declares the MicroDelay controls and turns their values into
// per-sample automation arrays.
//
// Parameter targets are stored in atomics so a UI, preset loader, or file
// watcher may set them from any goroutine while the audio goroutine reads a
// torn-free snapshot once per block. Smoothing state is owned by the audio
// goroutine: NextBlock and Reset must only be called from it.
//
// # Usage
//
//	set := param.NewSet()
//	set.SetSampleRate(48000)
//	set.Dry.Set(-6)            // any goroutine
//	set.Dry.NextBlockGain(dry) // audio goroutine, dry is len(block)
package param
