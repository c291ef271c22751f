// Package preset stores MicroDelay parameter snapshots as versioned JSON and
// keeps a live parameter set in sync with a preset file on disk.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/cwbudde/algo-microdelay/dsp/param"
)

// FormatVersion is the preset format written by this package.
const FormatVersion = "1.0.0"

// supportedFormats accepts every 1.x preset.
const supportedFormats = "^1.0.0"

var (
	// ErrUnsupportedFormat is returned for presets outside the supported
	// format range.
	ErrUnsupportedFormat = errors.New("preset: unsupported format version")
	// ErrUnknownParameter is returned when a preset names a parameter the set
	// does not declare.
	ErrUnknownParameter = errors.New("preset: unknown parameter")
)

// Preset is a named snapshot of parameter values.
type Preset struct {
	FormatVersion string             `json:"format_version"`
	Name          string             `json:"name"`
	Params        map[string]float64 `json:"params"`
	Switches      map[string]bool    `json:"switches,omitempty"`
}

// Capture snapshots the current values of set.
func Capture(name string, set *param.Set) *Preset {
	p := &Preset{
		FormatVersion: FormatVersion,
		Name:          name,
		Params:        make(map[string]float64, len(set.Floats())),
		Switches:      make(map[string]bool, len(set.Bools())),
	}
	for _, f := range set.Floats() {
		p.Params[f.ID()] = f.Value()
	}
	for _, b := range set.Bools() {
		p.Switches[b.ID()] = b.Value()
	}
	return p
}

// Validate checks the format version and that every id is known to set.
func (p *Preset) Validate(set *param.Set) error {
	if err := checkFormat(p.FormatVersion); err != nil {
		return err
	}
	for _, id := range sortedKeys(p.Params) {
		if _, ok := set.FloatByID(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
		}
	}
	for id := range p.Switches {
		if _, ok := set.BoolByID(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
		}
	}
	return nil
}

// Apply validates the preset and publishes its values to set. Values are
// clamped to each parameter's range. Parameters the preset omits keep their
// current value.
func (p *Preset) Apply(set *param.Set) error {
	if err := p.Validate(set); err != nil {
		return err
	}
	for id, v := range p.Params {
		f, _ := set.FloatByID(id)
		f.Set(v)
	}
	for id, v := range p.Switches {
		b, _ := set.BoolByID(id)
		b.Set(v)
	}
	return nil
}

// Decode reads a preset from r and checks its format version.
func Decode(r io.Reader) (*Preset, error) {
	var p Preset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	if err := checkFormat(p.FormatVersion); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode writes p to w as indented JSON.
func Encode(w io.Writer, p *Preset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	return nil
}

// Load reads a preset file.
func Load(path string) (*Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preset: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Save writes a preset file, replacing any existing one.
func Save(path string, p *Preset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preset: %w", err)
	}
	if err := Encode(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func checkFormat(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedFormat, version, err)
	}
	c, err := semver.NewConstraint(supportedFormats)
	if err != nil {
		return fmt.Errorf("preset constraint %q: %w", supportedFormats, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedFormat, v, supportedFormats)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
