package preset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-microdelay/dsp/param"
)

func TestCaptureApplyRoundTrip(t *testing.T) {
	src := param.NewSet()
	src.Dry.Set(-3)
	src.Wet.Set(-9.5)
	src.Feedback.Set(-12)
	src.Delay.Set(1500)
	src.InvertWet.Set(true)

	p := Capture("slapback", src)
	assert.Equal(t, FormatVersion, p.FormatVersion)
	assert.Equal(t, 1500.0, p.Params[param.IDDelay])
	assert.True(t, p.Switches[param.IDInvertWet])

	dst := param.NewSet()
	require.NoError(t, p.Apply(dst))
	assert.Equal(t, -3.0, dst.Dry.Value())
	assert.Equal(t, -9.5, dst.Wet.Value())
	assert.Equal(t, -12.0, dst.Feedback.Value())
	assert.Equal(t, 1500.0, dst.Delay.Value())
	assert.True(t, dst.InvertWet.Value())
	assert.False(t, dst.InvertFeedback.Value())
}

func TestSaveLoad(t *testing.T) {
	set := param.NewSet()
	set.Delay.Set(250)
	path := filepath.Join(t.TempDir(), "p.json")

	require.NoError(t, Save(path, Capture("short", set)))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "short", loaded.Name)
	assert.Equal(t, 250.0, loaded.Params[param.IDDelay])
}

func TestEncodeIsReadable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, &Preset{FormatVersion: FormatVersion, Name: "x", Params: map[string]float64{"dry_level": -1}}))
	assert.Contains(t, buf.String(), "\"format_version\": \"1.0.0\"")
	assert.Contains(t, buf.String(), "\"dry_level\": -1")
}

func TestDecodeFormatVersions(t *testing.T) {
	tests := []struct {
		name    string
		version string
		ok      bool
	}{
		{name: "current", version: "1.0.0", ok: true},
		{name: "minor bump", version: "1.4.2", ok: true},
		{name: "short form", version: "1.1", ok: true},
		{name: "next major", version: "2.0.0", ok: false},
		{name: "old major", version: "0.9.0", ok: false},
		{name: "garbage", version: "latest", ok: false},
		{name: "missing", version: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"format_version": "` + tt.version + `", "name": "n", "params": {}}`
			_, err := Decode(strings.NewReader(doc))
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrUnsupportedFormat)
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"format_version": "1.0.0", "colour": "red"}`))
	require.Error(t, err)
}

func TestApplyRejectsUnknownParameter(t *testing.T) {
	set := param.NewSet()
	p := &Preset{
		FormatVersion: FormatVersion,
		Params:        map[string]float64{param.IDDry: -20, "pitch": 3},
	}
	require.ErrorIs(t, p.Apply(set), ErrUnknownParameter)
	assert.Equal(t, 0.0, set.Dry.Value(), "no values applied on error")

	p = &Preset{FormatVersion: FormatVersion, Switches: map[string]bool{"bypass": true}}
	require.ErrorIs(t, p.Apply(set), ErrUnknownParameter)
}

func TestApplyClampsValues(t *testing.T) {
	set := param.NewSet()
	p := &Preset{
		FormatVersion: FormatVersion,
		Params:        map[string]float64{param.IDFeedback: 12, param.IDDelay: 1},
	}
	require.NoError(t, p.Apply(set))
	assert.Equal(t, param.MaxFeedbackGainDB, set.Feedback.Value())
	assert.Equal(t, param.MinDelayMicros, set.Delay.Value())
}
