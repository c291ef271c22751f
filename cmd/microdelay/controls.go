package main

import (
	"flag"
	"fmt"

	"github.com/cwbudde/algo-microdelay/dsp/param"
	"github.com/cwbudde/algo-microdelay/internal/preset"
)

// controls are the parameter flags shared by every processing command.
// Flags left unset keep the preset's value, or the parameter default.
type controls struct {
	fs *flag.FlagSet

	preset   string
	dry      float64
	wet      float64
	feedback float64
	delay    float64
	invWet   bool
	invFb    bool
}

func addControls(fs *flag.FlagSet) *controls {
	c := &controls{fs: fs}
	fs.StringVar(&c.preset, "preset", "", "JSON preset to load before applying flags")
	fs.Float64Var(&c.dry, "dry", 0, "dry level in dB")
	fs.Float64Var(&c.wet, "wet", 0, "delay line level in dB")
	fs.Float64Var(&c.feedback, "feedback", -6, "feedback gain in dB")
	fs.Float64Var(&c.delay, "delay", 1000, "delay time in microseconds")
	fs.BoolVar(&c.invWet, "invert-wet", false, "invert the delay line signal")
	fs.BoolVar(&c.invFb, "invert-feedback", false, "invert the feedback signal")
	return c
}

// apply loads the preset, if any, then overrides it with explicitly set
// flags. Without a preset every flag applies, so flag defaults take effect.
func (c *controls) apply(set *param.Set) error {
	explicit := map[string]bool{}
	if c.preset != "" {
		p, err := preset.Load(c.preset)
		if err != nil {
			return err
		}
		if err := p.Apply(set); err != nil {
			return fmt.Errorf("apply preset %s: %w", c.preset, err)
		}
		c.fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	}
	use := func(name string) bool { return c.preset == "" || explicit[name] }

	if use("dry") {
		set.Dry.Set(c.dry)
	}
	if use("wet") {
		set.Wet.Set(c.wet)
	}
	if use("feedback") {
		set.Feedback.Set(c.feedback)
	}
	if use("delay") {
		set.Delay.Set(c.delay)
	}
	if use("invert-wet") {
		set.InvertWet.Set(c.invWet)
	}
	if use("invert-feedback") {
		set.InvertFeedback.Set(c.invFb)
	}
	return nil
}
