// Package playback streams processed audio to the default output device.
package playback

import (
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/cwbudde/algo-microdelay/dsp/core"
)

// Renderer produces stereo audio into dst (two channels of equal length).
// It returns the number of frames written and whether the stream has ended.
type Renderer interface {
	Render(dst [][]float64) (frames int, done bool)
}

// StreamReader adapts a Renderer to the 32-bit float, stereo, little-endian
// byte stream expected by the audio player.
type StreamReader struct {
	mu       sync.Mutex
	renderer Renderer
	block    [][]float64
	view     [][]float64
	packed   []float32
	done     bool
}

// NewStreamReader returns a reader pulling audio from renderer.
func NewStreamReader(renderer Renderer) *StreamReader {
	return &StreamReader{
		renderer: renderer,
		block:    make([][]float64, 2),
		view:     make([][]float64, 2),
	}
}

// Read implements io.Reader.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}

	for c := range r.block {
		r.block[c] = core.EnsureLen(r.block[c], frames)
	}
	if cap(r.packed) < 2*frames {
		r.packed = make([]float32, 2*frames)
	}
	r.packed = r.packed[:2*frames]

	n, done := r.renderer.Render(r.block)
	for c := range r.view {
		r.view[c] = r.block[c][:n]
	}
	written := core.Interleave(r.packed, r.view)
	for i, v := range r.packed[:2*written] {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	if done {
		r.done = true
		if written == 0 {
			return 0, io.EOF
		}
	}
	return written * 8, nil
}

// Close implements io.Closer.
func (r *StreamReader) Close() error { return nil }
