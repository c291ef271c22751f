package playback

import (
	"github.com/cwbudde/algo-microdelay/internal/plugin"
)

// EffectRenderer plays a fixed clip through a plugin. Without looping the
// clip is followed by tailFrames of silence so echoes can ring out. Mono
// plugin output is sent to both speakers.
type EffectRenderer struct {
	plugin *plugin.Plugin
	clip   [][]float64
	pos    int
	loop   bool
	tail   int
	work   [][]float64
}

// NewEffectRenderer returns a renderer for clip, which must have as many
// channels as the plugin's negotiated layout.
func NewEffectRenderer(p *plugin.Plugin, clip [][]float64, loop bool, tailFrames int) *EffectRenderer {
	return &EffectRenderer{
		plugin: p,
		clip:   clip,
		loop:   loop,
		tail:   max(tailFrames, 0),
		work:   make([][]float64, len(clip)),
	}
}

func (e *EffectRenderer) clipLen() int {
	if len(e.clip) == 0 {
		return 0
	}
	return len(e.clip[0])
}

// Render implements Renderer.
func (e *EffectRenderer) Render(dst [][]float64) (int, bool) {
	if len(e.work) == 0 {
		return 0, true
	}
	length := e.clipLen()
	want := len(dst[0])

	n := 0
	for c := range e.work {
		if cap(e.work[c]) < want {
			e.work[c] = make([]float64, want)
		}
		e.work[c] = e.work[c][:want]
	}
	for n < want {
		if e.pos >= length {
			if !e.loop || length == 0 {
				break
			}
			e.pos = 0
		}
		chunk := min(want-n, length-e.pos)
		for c := range e.work {
			copy(e.work[c][n:n+chunk], e.clip[c][e.pos:e.pos+chunk])
		}
		e.pos += chunk
		n += chunk
	}

	if n < want {
		silent := min(want-n, e.tail)
		for c := range e.work {
			for i := n; i < n+silent; i++ {
				e.work[c][i] = 0
			}
		}
		e.tail -= silent
		n += silent
	}

	for c := range e.work {
		e.work[c] = e.work[c][:n]
	}
	if _, err := e.plugin.Process(e.work); err != nil {
		return 0, true
	}
	for c := range dst {
		copy(dst[c], e.work[min(c, len(e.work)-1)])
	}
	return n, n < want
}
