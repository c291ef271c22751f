// Package wavio reads and writes RIFF/WAVE files as de-interleaved float64
// channels for offline rendering.
package wavio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Format selects the sample encoding written by Write.
type Format int

const (
	// PCM16 is 16-bit signed integer PCM.
	PCM16 Format = iota
	// Float32 is 32-bit IEEE float.
	Float32
)

const (
	formatTagPCM        = 1
	formatTagFloat      = 3
	formatTagExtensible = 0xFFFE
)

var (
	// ErrNotWave is returned for input that is not a RIFF/WAVE stream.
	ErrNotWave = errors.New("wavio: not a RIFF/WAVE stream")
	// ErrUnsupported is returned for encodings other than 16/24-bit PCM and
	// 32-bit float.
	ErrUnsupported = errors.New("wavio: unsupported sample format")
)

// Audio is decoded audio: one slice per channel.
type Audio struct {
	SampleRate int
	Channels   [][]float64
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

type fmtChunk struct {
	tag        uint16
	channels   uint16
	sampleRate uint32
	bits       uint16
}

// Read decodes a whole WAVE stream.
func Read(r io.Reader) (*Audio, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWave, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, ErrNotWave
	}

	var (
		format  *fmtChunk
		payload []byte
	)
	for payload == nil {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, fmt.Errorf("%w: missing data chunk: %v", ErrNotWave, err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: truncated %q chunk: %v", ErrNotWave, id, err)
		}
		if size%2 == 1 {
			// Chunks are word aligned.
			_, _ = io.CopyN(io.Discard, r, 1)
		}

		switch id {
		case "fmt ":
			f, err := parseFmt(body)
			if err != nil {
				return nil, err
			}
			format = f
		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWave)
			}
			payload = body
		}
	}
	return decode(format, payload)
}

func parseFmt(body []byte) (*fmtChunk, error) {
	if len(body) < 16 {
		return nil, fmt.Errorf("%w: short fmt chunk", ErrNotWave)
	}
	f := &fmtChunk{
		tag:        binary.LittleEndian.Uint16(body[0:2]),
		channels:   binary.LittleEndian.Uint16(body[2:4]),
		sampleRate: binary.LittleEndian.Uint32(body[4:8]),
		bits:       binary.LittleEndian.Uint16(body[14:16]),
	}
	if f.tag == formatTagExtensible && len(body) >= 26 {
		// The sub-format GUID starts with the plain format tag.
		f.tag = binary.LittleEndian.Uint16(body[24:26])
	}
	if f.channels == 0 || f.sampleRate == 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupported, f.channels, f.sampleRate)
	}
	switch {
	case f.tag == formatTagPCM && (f.bits == 16 || f.bits == 24):
	case f.tag == formatTagFloat && f.bits == 32:
	default:
		return nil, fmt.Errorf("%w: tag %d, %d bits", ErrUnsupported, f.tag, f.bits)
	}
	return f, nil
}

func decode(f *fmtChunk, payload []byte) (*Audio, error) {
	channels := int(f.channels)
	width := int(f.bits) / 8
	frames := len(payload) / (width * channels)

	out := &Audio{SampleRate: int(f.sampleRate), Channels: make([][]float64, channels)}
	for c := range out.Channels {
		out.Channels[c] = make([]float64, frames)
	}

	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			s := payload[(i*channels+c)*width:]
			var v float64
			switch {
			case f.tag == formatTagFloat:
				v = float64(math.Float32frombits(binary.LittleEndian.Uint32(s)))
			case width == 2:
				v = float64(int16(binary.LittleEndian.Uint16(s))) / 32768
			default:
				raw := int32(uint32(s[0])<<8|uint32(s[1])<<16|uint32(s[2])<<24) >> 8
				v = float64(raw) / 8388608
			}
			out.Channels[c][i] = v
		}
	}
	return out, nil
}

// Write encodes audio as a WAVE stream. All channels must share one length.
func Write(w io.Writer, audio *Audio, format Format) error {
	channels := len(audio.Channels)
	if channels == 0 {
		return fmt.Errorf("%w: no channels", ErrUnsupported)
	}
	if audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupported, audio.SampleRate)
	}
	frames := audio.Frames()
	for c, ch := range audio.Channels {
		if len(ch) != frames {
			return fmt.Errorf("wavio: channel %d has %d frames, want %d", c, len(ch), frames)
		}
	}

	var (
		tag   uint16
		width int
	)
	switch format {
	case PCM16:
		tag, width = formatTagPCM, 2
	case Float32:
		tag, width = formatTagFloat, 4
	default:
		return fmt.Errorf("%w: format %d", ErrUnsupported, format)
	}

	dataSize := frames * channels * width
	blockAlign := channels * width
	byteRate := audio.SampleRate * blockAlign

	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+dataSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], tag)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(audio.SampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], uint16(width*8))
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))

	pos := 44
	for i := 0; i < frames; i++ {
		for _, ch := range audio.Channels {
			switch format {
			case PCM16:
				binary.LittleEndian.PutUint16(out[pos:], uint16(quantize16(ch[i])))
			case Float32:
				binary.LittleEndian.PutUint32(out[pos:], math.Float32bits(float32(ch[i])))
			}
			pos += width
		}
	}

	_, err := io.Copy(w, bytes.NewReader(out))
	return err
}

func quantize16(x float64) int16 {
	v := math.Round(x * 32767)
	if v > 32767 {
		v = 32767
	}
	if v < -32768 {
		v = -32768
	}
	return int16(v)
}
