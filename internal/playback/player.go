package playback

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Player plays a Renderer on the default output device.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

// NewPlayer opens the output at sampleRate. Only one sample rate may be used
// per process.
func NewPlayer(sampleRate int, renderer Renderer) (*Player, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(renderer)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	pl.SetBufferSize(50 * time.Millisecond)
	return &Player{player: pl, reader: reader}, nil
}

// Play starts or resumes playback.
func (p *Player) Play() { p.player.Play() }

// IsPlaying reports whether audio is still being output.
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position returns the current playback position.
func (p *Player) Position() time.Duration { return p.player.Position() }

// Stop halts playback and releases the player.
func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
