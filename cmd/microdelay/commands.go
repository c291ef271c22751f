package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-microdelay/dsp/core"
	"github.com/cwbudde/algo-microdelay/dsp/effects"
	"github.com/cwbudde/algo-microdelay/dsp/param"
	"github.com/cwbudde/algo-microdelay/internal/playback"
	"github.com/cwbudde/algo-microdelay/internal/plugin"
	"github.com/cwbudde/algo-microdelay/internal/preset"
	"github.com/cwbudde/algo-microdelay/internal/wavio"
	"github.com/cwbudde/algo-microdelay/measure/response"
)

var defaults = core.DefaultProcessorConfig()

func newFlagSet(e *env, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: microdelay %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse returns errUsage for bad flags and flag.ErrHelp for -h.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return errUsage
	}
	return nil
}

func helpOK(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// newPlugin initialises a plugin for audio; unset options keep the
// processor defaults.
func newPlugin(e *env, set *param.Set, opts ...core.ProcessorOption) (*plugin.Plugin, error) {
	p := plugin.New(set, plugin.WithLogger(e.log))
	layout, cfg := plugin.FromProcessorConfig(core.ApplyProcessorOptions(opts...))
	if err := p.Initialize(layout, cfg); err != nil {
		return nil, err
	}
	return p, nil
}

func audioOptions(audio *wavio.Audio) []core.ProcessorOption {
	return []core.ProcessorOption{
		core.WithChannels(len(audio.Channels)),
		core.WithSampleRate(float64(audio.SampleRate)),
	}
}

func readWave(path string) (*wavio.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	audio, err := wavio.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return audio, nil
}

func writeWave(path string, audio *wavio.Audio, format wavio.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wavio.Write(f, audio, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func parseFormat(name string) (wavio.Format, error) {
	switch name {
	case "pcm16":
		return wavio.PCM16, nil
	case "float32":
		return wavio.Float32, nil
	default:
		return 0, fmt.Errorf("unknown sample format %q (want pcm16 or float32)", name)
	}
}

func runRender(e *env, args []string) error {
	fs := newFlagSet(e, "render", "-in file.wav -out file.wav [flags]")
	ctl := addControls(fs)
	in := fs.String("in", "", "input WAV file")
	out := fs.String("out", "", "output WAV file")
	formatName := fs.String("format", "float32", "output sample format: pcm16 or float32")
	tailMs := fs.Float64("tail", 500, "silence appended so echoes can ring out, in milliseconds")
	block := fs.Int("block", defaults.BlockSize, "processing block size in samples")
	balance := fs.Float64("balance", -1, "pan a mono result to stereo, 0 = left, 1 = right; negative keeps mono")
	if err := parse(fs, args); err != nil {
		return helpOK(err)
	}
	if *in == "" || *out == "" {
		fs.Usage()
		return errUsage
	}
	format, err := parseFormat(*formatName)
	if err != nil {
		return err
	}

	audio, err := readWave(*in)
	if err != nil {
		return err
	}
	set := param.NewSet()
	if err := ctl.apply(set); err != nil {
		return err
	}
	p, err := newPlugin(e, set, append(audioOptions(audio), core.WithBlockSize(*block))...)
	if err != nil {
		return err
	}

	tail := int(math.Ceil(math.Max(*tailMs, 0) * float64(audio.SampleRate) / 1000))
	for c := range audio.Channels {
		audio.Channels[c] = append(audio.Channels[c], make([]float64, tail)...)
	}
	if _, err := p.Process(audio.Channels); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	if *balance >= 0 && len(audio.Channels) == 1 {
		audio.Channels = panMono(audio.Channels[0], *balance)
	}

	if err := writeWave(*out, audio, format); err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"function": "render",
		"in":       *in,
		"out":      *out,
		"frames":   audio.Frames(),
		"channels": len(audio.Channels),
	}).Info("Rendered")
	return nil
}

func panMono(mono []float64, balance float64) [][]float64 {
	left, right := core.BalanceToStereo(balance)
	l := make([]float64, len(mono))
	r := make([]float64, len(mono))
	for i, x := range mono {
		l[i] = x * left
		r[i] = x * right
	}
	return [][]float64{l, r}
}

func responseConfig(set *param.Set, sampleRate float64) response.Config {
	return response.Config{
		SampleRate:     sampleRate,
		DryDB:          set.Dry.Value(),
		WetDB:          set.Wet.Value(),
		FeedbackDB:     set.Feedback.Value(),
		DelayMicros:    set.Delay.Value(),
		InvertWet:      set.InvertWet.Value(),
		InvertFeedback: set.InvertFeedback.Value(),
	}
}

// delaySamples converts the configured delay the same way the engine does,
// including its clamp.
func delaySamples(cfg response.Config) (float64, error) {
	engine, err := effects.NewMicroDelay(1, cfg.SampleRate, 1)
	if err != nil {
		return 0, err
	}
	return engine.DelaySamples(cfg.DelayMicros), nil
}

func runIR(e *env, args []string) error {
	fs := newFlagSet(e, "ir", "[flags]")
	ctl := addControls(fs)
	sampleRate := fs.Float64("sr", defaults.SampleRate, "sample rate in Hz")
	lengthMs := fs.Float64("length", 500, "response length in milliseconds")
	threshold := fs.Float64("threshold", 60, "list echoes within this many dB of the loudest")
	out := fs.String("out", "", "optionally write the impulse response to this WAV file")
	if err := parse(fs, args); err != nil {
		return helpOK(err)
	}

	set := param.NewSet()
	if err := ctl.apply(set); err != nil {
		return err
	}
	cfg := responseConfig(set, *sampleRate)
	d, err := delaySamples(cfg)
	if err != nil {
		return err
	}
	length := int(math.Ceil(*lengthMs * *sampleRate / 1000))
	ir, err := response.ImpulseResponse(cfg, length)
	if err != nil {
		return err
	}
	if *out != "" {
		audio := &wavio.Audio{SampleRate: int(*sampleRate), Channels: [][]float64{ir}}
		if err := writeWave(*out, audio, wavio.Float32); err != nil {
			return err
		}
	}

	echoes := response.Echoes(ir, *threshold, *sampleRate)
	fmt.Fprintf(e.stdout, "delay: %s (%.2f samples, echo period %.2f)\n",
		set.Delay.String(), d, response.EchoPeriod(d))

	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Index\tTime [ms]\tAmplitude\tLevel [dB]\n")
	fmt.Fprintf(tw, "-----\t---------\t---------\t----------\n")
	for _, echo := range echoes {
		fmt.Fprintf(tw, "%d\t%.3f\t%.6f\t%.2f\n",
			echo.Index, echo.Seconds*1000, echo.Amplitude, core.LinearToDB(math.Abs(echo.Amplitude)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	measured := response.DecayTime(echoes, *sampleRate)
	expected := response.ExpectedDecayTime(cfg.FeedbackDB, response.EchoPeriod(d), *sampleRate)
	fmt.Fprintf(e.stdout, "decay time (60 dB): measured %s, expected %s\n", formatSeconds(measured), formatSeconds(expected))
	return nil
}

func formatSeconds(s float64) string {
	if math.IsInf(s, 1) {
		return "infinite"
	}
	return fmt.Sprintf("%.1f ms", s*1000)
}

func runResponse(e *env, args []string) error {
	fs := newFlagSet(e, "response", "[flags]")
	ctl := addControls(fs)
	sampleRate := fs.Float64("sr", defaults.SampleRate, "sample rate in Hz")
	fftSize := fs.Int("fft", 8192, "FFT size, a power of two")
	maxRows := fs.Int("notches", 16, "maximum number of notches to list")
	if err := parse(fs, args); err != nil {
		return helpOK(err)
	}

	set := param.NewSet()
	if err := ctl.apply(set); err != nil {
		return err
	}
	cfg := responseConfig(set, *sampleRate)
	d, err := delaySamples(cfg)
	if err != nil {
		return err
	}
	ir, err := response.ImpulseResponse(cfg, *fftSize)
	if err != nil {
		return err
	}
	mag, err := response.MagnitudeDB(ir, *fftSize)
	if err != nil {
		return err
	}

	peak, trough := math.Inf(-1), math.Inf(1)
	for _, m := range mag {
		peak = math.Max(peak, m)
		trough = math.Min(trough, m)
	}
	fmt.Fprintf(e.stdout, "delay: %s (%.2f samples), FFT %d points\n", set.Delay.String(), d, *fftSize)
	fmt.Fprintf(e.stdout, "magnitude: max %.2f dB, min %.2f dB\n", peak, trough)

	notches := response.CombNotches(response.EchoPeriod(d), *sampleRate, cfg.InvertWet)
	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Notch [Hz]\tBin\tMagnitude [dB]\n")
	fmt.Fprintf(tw, "----------\t---\t--------------\n")
	for i, f := range notches {
		if i >= *maxRows {
			fmt.Fprintf(tw, "...\t\t\n")
			break
		}
		k := int(math.Round(f * float64(*fftSize) / *sampleRate))
		if k >= len(mag) {
			break
		}
		fmt.Fprintf(tw, "%.1f\t%d\t%.2f\n", f, k, mag[k])
	}
	return tw.Flush()
}

func runParams(e *env, args []string) error {
	fs := newFlagSet(e, "params", "[-preset file.json]")
	presetPath := fs.String("preset", "", "show the values stored in this preset")
	if err := parse(fs, args); err != nil {
		return helpOK(err)
	}

	set := param.NewSet()
	if *presetPath != "" {
		p, err := preset.Load(*presetPath)
		if err != nil {
			return err
		}
		if err := p.Apply(set); err != nil {
			return err
		}
	}

	info := plugin.DefaultInfo
	fmt.Fprintf(e.stdout, "%s %s by %s\n\n", info.Name, info.Version, info.Vendor)

	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tName\tMin\tMax\tDefault\tValue\n")
	fmt.Fprintf(tw, "--\t----\t---\t---\t-------\t-----\n")
	for _, p := range set.Floats() {
		lo, hi := p.Range()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID(), p.Name(), p.Format(lo), p.Format(hi), p.Format(p.Default()), p.String())
	}
	for _, b := range set.Bools() {
		def := "off"
		if b.Default() {
			def = "on"
		}
		fmt.Fprintf(tw, "%s\t%s\toff\ton\t%s\t%s\n", b.ID(), b.Name(), def, b.String())
	}
	return tw.Flush()
}

func runPlay(e *env, args []string) error {
	fs := newFlagSet(e, "play", "-in file.wav [flags]")
	ctl := addControls(fs)
	in := fs.String("in", "", "input WAV file")
	loop := fs.Bool("loop", false, "loop the input until interrupted")
	watch := fs.String("watch", "", "preset file to apply live whenever it changes")
	tailMs := fs.Float64("tail", 1000, "silence played after the input so echoes ring out, in milliseconds")
	if err := parse(fs, args); err != nil {
		return helpOK(err)
	}
	if *in == "" {
		fs.Usage()
		return errUsage
	}

	audio, err := readWave(*in)
	if err != nil {
		return err
	}
	set := param.NewSet()
	if err := ctl.apply(set); err != nil {
		return err
	}
	p, err := newPlugin(e, set, audioOptions(audio)...)
	if err != nil {
		return err
	}

	tail := int(math.Ceil(math.Max(*tailMs, 0) * float64(audio.SampleRate) / 1000))
	renderer := playback.NewEffectRenderer(p, audio.Channels, *loop, tail)
	player, err := playback.NewPlayer(audio.SampleRate, renderer)
	if err != nil {
		return err
	}
	defer func() {
		if err := player.Stop(); err != nil {
			e.log.WithError(err).Warn("Failed to stop player")
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if *watch != "" {
		w, err := preset.NewWatcher(*watch, set, preset.WithWatchLogger(e.log))
		if err != nil {
			return err
		}
		defer w.Close()
		if _, err := os.Stat(w.Path()); err == nil {
			_, _ = w.Reload()
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	e.log.WithFields(logrus.Fields{
		"function":    "play",
		"in":          *in,
		"sample_rate": audio.SampleRate,
		"loop":        *loop,
	}).Info("Playing")
	player.Play()

	g.Go(func() error {
		defer cancel()
		return waitForPlayer(ctx, player)
	})
	return g.Wait()
}

func waitForPlayer(ctx context.Context, player *playback.Player) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !player.IsPlaying() {
				return nil
			}
		}
	}
}
