// Package engine assembles the correction pipeline from a configuration and
// runs it against a keyboard.
//
// The pipeline is built once: lexicons and the layout are loaded, an
// injector is wrapped in a loopback so its keystrokes are seen again, and a
// segmenter feeds every completed word through the classifier and the
// history window. Only the settings listed in ApplyConfig change while the
// engine runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/classify"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/config"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/lexicon"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/logging"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/metrics"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/segmenter"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/window"
)

// Options replaces parts of the engine that are otherwise built from the
// configuration.
type Options struct {
	// Hook captures keystrokes. Defaults to a platform hook on
	// cfg.Keyboard.Device that decodes keys through the layout XKB reports.
	Hook keyboard.Hook

	// Injector types corrections. Defaults to cfg.Keyboard.Injector.
	Injector keyboard.Injector

	// LogWriter, when set, receives every log record.
	LogWriter io.Writer

	// CrashDir is where crash reports are written. Defaults to
	// logging.DefaultCrashDir().
	CrashDir string

	// Version is recorded in crash reports.
	Version string
}

// Engine is a running or runnable correction pipeline.
type Engine struct {
	cfg *config.Config
	log *logging.Logger

	mapper layout.Mapper
	target lexicon.Set
	source lexicon.Set

	hook       keyboard.Hook
	loopback   *keyboard.Loopback
	sup        *correction.Suppressor
	emitter    *correction.Emitter
	classifier *classify.Classifier
	window     *window.Window
	seg        *segmenter.Segmenter

	metrics  *metrics.Metrics
	exporter *metrics.Exporter
	journal  *logging.Journal
	crash    *logging.CrashHandler

	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
}

// New builds an engine from cfg. Missing word lists are reported and
// replaced by empty ones; every other problem is an error.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	log, err := newLogger(cfg, opts.LogWriter)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	e := &Engine{
		cfg:     cfg.Clone(),
		log:     log,
		metrics: metrics.New(),
		ready:   make(chan struct{}),
	}
	if err := e.build(opts); err != nil {
		log.Close()
		return nil, err
	}
	return e, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
		RedactText: cfg.Logging.RedactText,
		Component:  "smartkbd",
		Writer:     w,
	})
}

func (e *Engine) build(opts Options) error {
	cfg := e.cfg

	mapper, err := layout.Lookup(cfg.Layout.Name)
	if err != nil {
		return err
	}
	e.mapper = mapper
	e.target = e.loadLexicon("target", cfg.Lexicon.TargetPath)
	e.source = e.loadLexicon("source", cfg.Lexicon.SourcePath)

	inj := opts.Injector
	if inj == nil {
		delay := time.Duration(cfg.Correction.KeyDelayMs) * time.Millisecond
		if inj, err = keyboard.NewInjector(cfg.Keyboard.Injector, delay); err != nil {
			return err
		}
	}
	e.hook = opts.Hook
	if e.hook == nil {
		e.hook = keyboard.NewHook(keyboard.HookConfig{
			Device: cfg.Keyboard.Device,
			Target: mapper,
			Active: ActiveLayout(cfg.Keyboard),
		})
	}

	if cfg.Journal.Enabled {
		e.journal, err = logging.NewJournal(logging.JournalConfig{
			FilePath:   cfg.Journal.Path,
			MaxSize:    int64(cfg.Logging.MaxSizeMB),
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
			RedactText: cfg.Logging.RedactText,
		})
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
	}
	if cfg.Metrics.Enabled {
		e.exporter = metrics.NewExporter(
			cfg.Metrics.TextfilePath,
			e.metrics.Registry(),
			time.Duration(cfg.Metrics.FlushIntervalSec)*time.Second,
			e.log.WithComponent("metrics").Logger,
		)
	}

	crashDir := opts.CrashDir
	if crashDir == "" {
		crashDir = logging.DefaultCrashDir()
	}
	e.crash = logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir:  crashDir,
		Version:   opts.Version,
		Component: "smartkbd",
		Logger:    e.log.Logger,
	})

	e.sup = &correction.Suppressor{}
	e.loopback = keyboard.NewLoopback(inj)
	e.emitter = correction.NewEmitter(e.loopback, e.sup, e.log.WithComponent("correction").Logger)
	e.emitter.Observe(e.metrics.CorrectionEmitted)
	if e.journal != nil {
		e.emitter.Observe(e.journal.Record)
	}

	e.classifier = classify.New(mapper, e.target, e.source, e.emitter, e.log.WithComponent("classify").Logger)
	e.window = window.New(mapper, e.target, e.emitter, e.log.WithComponent("window").Logger)
	e.window.SetContext(cfg.Correction.Context)

	e.seg = segmenter.New(e.classifier, e.window, e.sup, e.log.WithComponent("segmenter").Logger)
	e.seg.SetEchoes(e.loopback)
	e.seg.Observe(e.metrics)
	e.seg.OnPanic(e.recovered)
	e.seg.SetEnabled(cfg.Correction.Enabled)

	return nil
}

// ActiveLayout returns the query that tells capture which layout the OS
// applies to key presses.
func ActiveLayout(k config.KeyboardConfig) keyboard.ActiveLayout {
	if k.LayoutQuery == "" {
		return keyboard.FixedLayout(false)
	}
	return keyboard.NewXkbQuery(k.LayoutQuery, k.TargetGroup)
}

func (e *Engine) loadLexicon(name, path string) lexicon.Set {
	set, err := lexicon.LoadFile(path)
	if err != nil {
		if errors.Is(err, lexicon.ErrMissingResource) {
			e.log.Warn("dictionary not found", "lexicon", name, "path", path)
		} else {
			e.log.Warn("dictionary partially loaded", "lexicon", name, "path", path, "error", err)
		}
	}
	e.metrics.SetLexiconSize(name, set.Len())
	return set
}

func (e *Engine) recovered(ev keyboard.Event, v any) {
	e.metrics.PanicRecovered()
	e.crash.HandlePanic(v, map[string]string{
		"event":     ev.Kind.String(),
		"synthetic": fmt.Sprint(ev.Synthetic),
	})
}

// Run captures keystrokes and corrects them until ctx is cancelled or the
// capture source fails. Cancellation is a clean shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	events, err := e.hook.Start(ctx)
	if err != nil {
		return fmt.Errorf("start keyboard capture: %w", err)
	}
	defer e.hook.Stop()

	var wg sync.WaitGroup
	exportCtx, stopExport := context.WithCancel(ctx)
	if e.exporter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.exporter.Run(exportCtx)
		}()
	}

	e.log.Info("ready",
		"layout", e.mapper.Name(),
		"target_words", e.target.Len(),
		"source_words", e.source.Len(),
		"correction", e.seg.Enabled(),
		"context", e.window.ContextEnabled(),
	)
	e.readyOnce.Do(func() { close(e.ready) })

	err = e.seg.Run(ctx, events)

	stopExport()
	wg.Wait()

	// Capture closes its channel on cancellation too, so the loop may report
	// either error.
	if ctx.Err() != nil {
		e.log.Info("stopped")
		return nil
	}
	e.log.Error("keyboard capture stopped", "error", err)
	return fmt.Errorf("event loop: %w", err)
}

// Ready is closed once Run has started capturing.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// ApplyConfig applies the hot-reloadable settings of cfg: the log level,
// correction on/off and contextual correction on/off. Other changes are
// reported and ignored until restart. It has the signature of a
// config.Loader callback.
func (e *Engine) ApplyConfig(old, cfg *config.Config) {
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil && level != e.log.Level() {
		e.log.SetLevel(level)
		e.log.Info("log level changed", "level", logging.LevelString(level))
	}
	e.seg.SetEnabled(cfg.Correction.Enabled)
	if cfg.Correction.Context != e.window.ContextEnabled() {
		e.window.SetContext(cfg.Correction.Context)
		e.log.Info("context correction toggled", "enabled", cfg.Correction.Context)
	}

	if keys := config.RestartKeys(config.Diff(old, cfg)); len(keys) > 0 {
		e.log.Warn("configuration changed; restart to apply", "keys", keys)
	}
}

// Watch applies every valid change loader reports. Invalid files are logged
// and the running configuration is kept.
func (e *Engine) Watch(ctx context.Context, loader *config.Loader) error {
	loader.OnChange(e.ApplyConfig)
	if err := loader.Watch(); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-loader.Errors():
				if !ok {
					return
				}
				e.log.Error("config reload rejected", "error", err)
			}
		}
	}()
	return nil
}

// Check runs words through a fresh classifier and history window against the
// engine's lexicons and returns the corrections that typing them would
// produce. Nothing is injected.
func (e *Engine) Check(words []string) []correction.Correction {
	var out []correction.Correction
	sink := correction.SinkFunc(func(c correction.Correction) {
		out = append(out, c)
	})

	log := e.log.WithComponent("check").Logger
	c := classify.New(e.mapper, e.target, e.source, sink, log)
	w := window.New(e.mapper, e.target, sink, log)
	w.SetContext(e.window.ContextEnabled())

	for _, word := range words {
		if tok, ok := c.Classify(word); ok {
			w.Push(tok)
		}
	}
	return out
}

// Segmenter returns the engine's segmenter.
func (e *Engine) Segmenter() *segmenter.Segmenter {
	return e.seg
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *logging.Logger {
	return e.log
}

// Close flushes metrics and closes the journal and log files.
func (e *Engine) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		if e.exporter != nil {
			errs = append(errs, e.exporter.Flush())
		}
		if e.journal != nil {
			errs = append(errs, e.journal.Close())
		}
		errs = append(errs, e.log.Close())
	})
	return errors.Join(errs...)
}
