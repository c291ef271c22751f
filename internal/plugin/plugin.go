// Package plugin wires the MicroDelay parameter set to the delay engine the
// way an audio host would: negotiate a layout, initialise, reset, and process
// blocks with sample-accurate automation.
package plugin

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-microdelay/dsp/core"
	"github.com/cwbudde/algo-microdelay/dsp/effects"
	"github.com/cwbudde/algo-microdelay/dsp/param"
)

// Info describes the effect to hosts and users.
type Info struct {
	Name    string
	Vendor  string
	URL     string
	Email   string
	Version string
}

// DefaultInfo is the metadata reported by MicroDelay.
var DefaultInfo = Info{
	Name:    "MicroDelay",
	Vendor:  "Gema",
	URL:     "https://example.com/micro-delay",
	Email:   "None",
	Version: "0.1.0",
}

// Layout is a main input/output channel configuration.
type Layout struct {
	InputChannels  int
	OutputChannels int
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	return fmt.Sprintf("%din/%dout", l.InputChannels, l.OutputChannels)
}

// SupportedLayouts lists the layouts the effect accepts: mono and stereo.
var SupportedLayouts = []Layout{
	{InputChannels: 1, OutputChannels: 1},
	{InputChannels: 2, OutputChannels: 2},
}

// BufferConfig carries the host's negotiated audio settings.
type BufferConfig struct {
	SampleRate   float64
	MaxBlockSize int
}

// FromProcessorConfig returns the symmetric layout and buffer configuration
// described by cfg.
func FromProcessorConfig(cfg core.ProcessorConfig) (Layout, BufferConfig) {
	return Layout{InputChannels: cfg.Channels, OutputChannels: cfg.Channels},
		BufferConfig{SampleRate: cfg.SampleRate, MaxBlockSize: cfg.BlockSize}
}

var (
	// ErrUnsupportedLayout is returned by Initialize for layouts outside
	// SupportedLayouts.
	ErrUnsupportedLayout = errors.New("plugin: unsupported channel layout")
	// ErrNotInitialized is returned by Process before a successful Initialize.
	ErrNotInitialized = errors.New("plugin: not initialized")
)

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger routes lifecycle logging to logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Plugin) {
		if logger != nil {
			p.log = logrus.NewEntry(logger)
		}
	}
}

// WithEngineOptions forwards options to every engine the plugin creates.
func WithEngineOptions(opts ...effects.Option) Option {
	return func(p *Plugin) {
		p.engineOpts = append(p.engineOpts, opts...)
	}
}

// Plugin owns the parameter set and, once initialised, a delay engine.
type Plugin struct {
	params     *param.Set
	engine     *effects.MicroDelay
	engineOpts []effects.Option
	layout     Layout
	config     BufferConfig
	chunk      [][]float64
	sources    automationSources
	log        *logrus.Entry
}

// automationSources feed the per-sample automation lanes. Gain sources
// produce dB, delay produces microseconds.
type automationSources struct {
	dry      param.Source
	wet      param.Source
	feedback param.Source
	delay    param.Source
}

func sourcesFor(params *param.Set) automationSources {
	return automationSources{
		dry:      params.Dry,
		wet:      params.Wet,
		feedback: params.Feedback,
		delay:    params.Delay,
	}
}

// New returns an uninitialised plugin driven by params. A nil params gets a
// fresh default set.
func New(params *param.Set, opts ...Option) *Plugin {
	if params == nil {
		params = param.NewSet()
	}
	p := &Plugin{
		params:  params,
		sources: sourcesFor(params),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Info returns the effect metadata.
func (p *Plugin) Info() Info { return DefaultInfo }

// Params returns the live parameter set.
func (p *Plugin) Params() *param.Set { return p.params }

// Engine returns the current engine, or nil before Initialize.
func (p *Plugin) Engine() *effects.MicroDelay { return p.engine }

// Layout returns the negotiated layout.
func (p *Plugin) Layout() Layout { return p.layout }

// Config returns the negotiated buffer configuration.
func (p *Plugin) Config() BufferConfig { return p.config }

// Initialize allocates a new engine for layout and cfg. On failure the
// previous engine, if any, is discarded and the plugin is unusable until the
// next successful Initialize.
func (p *Plugin) Initialize(layout Layout, cfg BufferConfig) error {
	fields := logrus.Fields{
		"function":    "Initialize",
		"layout":      layout.String(),
		"sample_rate": cfg.SampleRate,
		"max_block":   cfg.MaxBlockSize,
	}
	p.engine = nil

	if !supported(layout) {
		p.log.WithFields(fields).Warn("Rejecting channel layout")
		return fmt.Errorf("%w: %s", ErrUnsupportedLayout, layout)
	}

	engine, err := effects.NewMicroDelay(layout.OutputChannels, cfg.SampleRate, cfg.MaxBlockSize, p.engineOpts...)
	if err != nil {
		p.log.WithFields(fields).WithError(err).Error("Failed to create delay engine")
		return fmt.Errorf("initialize: %w", err)
	}

	p.engine = engine
	p.chunk = make([][]float64, layout.OutputChannels)
	p.layout = layout
	p.config = cfg
	p.params.SetSampleRate(cfg.SampleRate)
	p.params.Reset()

	p.log.WithFields(fields).WithFields(logrus.Fields{
		"capacity":          engine.Capacity(),
		"max_delay_samples": engine.MaxDelaySamples(),
	}).Info("Delay engine initialized")
	return nil
}

// Reset clears the delay buffers and snaps all smoothers to their targets.
// It must not be called while Process is running.
func (p *Plugin) Reset() {
	if p.engine == nil {
		return
	}
	p.engine.Reset()
	p.params.Reset()
	p.log.WithField("function", "Reset").Debug("Delay state cleared")
}

// Process renders block in place. Blocks longer than the negotiated maximum
// are processed in consecutive chunks. Parameter targets are sampled once
// per chunk; gains and delay are smoothed per sample.
func (p *Plugin) Process(block [][]float64) (effects.Status, error) {
	if p.engine == nil {
		return effects.StatusError, ErrNotInitialized
	}
	if len(block) != p.engine.Channels() {
		return effects.StatusError, fmt.Errorf("%w: got %d, want %d",
			effects.ErrChannelMismatch, len(block), p.engine.Channels())
	}

	total := len(block[0])
	for c := range block {
		if len(block[c]) != total {
			return effects.StatusError, fmt.Errorf("%w: channel %d has %d samples, want %d",
				effects.ErrBlockTooLarge, c, len(block[c]), total)
		}
	}

	maxBlock := p.engine.MaxBlock()
	chunk := p.chunk
	for start := 0; start < total; start += maxBlock {
		end := start + maxBlock
		if end > total {
			end = total
		}
		for c := range block {
			chunk[c] = block[c][start:end]
		}

		auto := p.engine.Automation(end - start)
		p.fillAutomation(auto)
		if status, err := p.engine.Process(chunk, auto); err != nil {
			return status, err
		}
	}
	return effects.StatusNormal, nil
}

func (p *Plugin) fillAutomation(auto *effects.Automation) {
	param.NextGainBlock(p.sources.dry, auto.Dry)
	param.NextGainBlock(p.sources.wet, auto.Wet)
	param.NextGainBlock(p.sources.feedback, auto.Feedback)
	p.sources.delay.NextBlock(auto.Delay)
	// Switches are sampled per chunk; the host only changes them between blocks.
	auto.InvertWet = p.params.InvertWet.Value()
	auto.InvertFeedback = p.params.InvertFeedback.Value()
}

func supported(layout Layout) bool {
	for _, l := range SupportedLayouts {
		if l == layout {
			return true
		}
	}
	return false
}
