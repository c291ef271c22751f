package preset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-microdelay/dsp/param"
)

// Watcher re-applies a preset file to a live parameter set whenever the file
// changes. The parameter set's atomics carry the new values to the audio
// goroutine; the watcher never touches engine state.
type Watcher struct {
	path    string
	set     *param.Set
	w       *fsnotify.Watcher
	log     *logrus.Entry
	onApply func(*Preset, error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchLogger routes watcher logging to logger.
func WithWatchLogger(logger *logrus.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.log = logrus.NewEntry(logger)
		}
	}
}

// OnApply registers a callback invoked after every reload attempt with the
// loaded preset or the error that prevented it.
func OnApply(fn func(*Preset, error)) WatcherOption {
	return func(w *Watcher) {
		w.onApply = fn
	}
}

// NewWatcher starts watching path. The containing directory is watched so
// editors that replace files by rename are followed.
func NewWatcher(path string, set *param.Set, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("preset watcher: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("preset watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("preset watcher: %w", err)
	}

	w := &Watcher{
		path: abs,
		set:  set,
		w:    fw,
		log:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.log = w.log.WithField("preset", abs)
	return w, nil
}

// Path returns the watched preset file.
func (w *Watcher) Path() string { return w.path }

// Reload loads and applies the preset file once.
func (w *Watcher) Reload() (*Preset, error) {
	p, err := Load(w.path)
	if err == nil {
		err = p.Apply(w.set)
	}
	if err != nil {
		w.log.WithError(err).Warn("Preset reload failed")
	} else {
		w.log.WithField("name", p.Name).Info("Preset applied")
	}
	if w.onApply != nil {
		w.onApply(p, err)
	}
	return p, err
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			_, _ = w.Reload()
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("Preset watch error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.w.Close()
}
