// Package segmenter turns a stream of key-down events into completed words
// and drives classification and contextual correction at every word
// boundary.
//
// A Segmenter owns the in-progress buffer, the history window and the view
// on the suppression counter. Events are handled one at a time, each to
// completion; Handle must not be called concurrently.
package segmenter

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"unicode"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/classify"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/window"
)

// ErrSourceClosed is returned by Run when the event source closes.
var ErrSourceClosed = errors.New("event source closed")

// Observer is notified of what the segmenter does with each event.
type Observer interface {
	// EventHandled is called for every event, before it is processed.
	EventHandled(ev keyboard.Event, suppressed bool)

	// WordCompleted is called for every classified word, before it enters
	// the history window.
	WordCompleted(tok classify.Token, verdict classify.Verdict)
}

// EchoSource yields injected events that did not come through the capture
// device. keyboard.Loopback implements it.
type EchoSource interface {
	Next() (keyboard.Event, bool)
}

// Segmenter is the word-boundary state machine.
type Segmenter struct {
	classifier *classify.Classifier
	window     *window.Window
	sup        *correction.Suppressor
	echoes     EchoSource
	observers  []Observer
	log        *slog.Logger

	buf     []rune
	enabled atomic.Bool
	onPanic func(ev keyboard.Event, v any)
}

// New creates an idle Segmenter.
func New(c *classify.Classifier, w *window.Window, sup *correction.Suppressor, log *slog.Logger) *Segmenter {
	if log == nil {
		log = slog.Default()
	}
	s := &Segmenter{
		classifier: c,
		window:     w,
		sup:        sup,
		log:        log,
	}
	s.enabled.Store(true)
	return s
}

// SetEchoes makes Run drain src before every read from the event channel.
func (s *Segmenter) SetEchoes(src EchoSource) {
	s.echoes = src
}

// Observe registers o.
func (s *Segmenter) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// OnPanic sets the function Run calls after recovering from a panic raised
// while handling ev. The segmenter is reset to its idle state before fn is
// called.
func (s *Segmenter) OnPanic(fn func(ev keyboard.Event, v any)) {
	s.onPanic = fn
}

// SetEnabled pauses or resumes correction. While paused, every event passes
// through untouched and nothing is buffered. Safe to call from any goroutine.
func (s *Segmenter) SetEnabled(on bool) {
	if s.enabled.Swap(on) != on {
		s.log.Info("correction toggled", "enabled", on)
	}
}

// Enabled reports whether correction is on.
func (s *Segmenter) Enabled() bool {
	return s.enabled.Load()
}

// Buffer returns the word currently being typed.
func (s *Segmenter) Buffer() string {
	return string(s.buf)
}

// Window returns the history window.
func (s *Segmenter) Window() *window.Window {
	return s.window
}

// Handle processes one event.
func (s *Segmenter) Handle(ev keyboard.Event) {
	// Injected keystrokes must never reach the buffer.
	if s.sup.Consume() {
		s.notify(ev, true)
		return
	}
	s.notify(ev, false)

	if !s.enabled.Load() {
		if len(s.buf) > 0 || s.window.Len() > 0 {
			s.buf = s.buf[:0]
			s.window.Reset()
		}
		return
	}

	switch ev.Kind {
	case keyboard.KindSpace:
		if len(s.buf) == 0 {
			return
		}
		s.boundary(string(s.buf))
		s.buf = s.buf[:0]
	case keyboard.KindBackspace:
		if len(s.buf) > 0 {
			s.buf = s.buf[:len(s.buf)-1]
		}
	case keyboard.KindChar:
		if r, ok := ev.Char(); ok {
			s.buf = append(s.buf, unicode.ToLower(r))
		}
	}
}

func (s *Segmenter) boundary(word string) {
	tok, verdict := s.classifier.ClassifyVerdict(word)
	if tok.Clean == "" {
		return
	}
	for _, o := range s.observers {
		o.WordCompleted(tok, verdict)
	}
	s.window.Push(tok)
}

func (s *Segmenter) notify(ev keyboard.Event, suppressed bool) {
	for _, o := range s.observers {
		o.EventHandled(ev, suppressed)
	}
}

// Run handles events until ctx is cancelled or events is closed. Pending
// echoes are handled before each new event is read, so an injected keystroke
// is always seen before the keystroke typed after it.
func (s *Segmenter) Run(ctx context.Context, events <-chan keyboard.Event) error {
	for {
		s.drainEchoes()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				s.drainEchoes()
				return ErrSourceClosed
			}
			s.safeHandle(ev)
		}
	}
}

// safeHandle keeps the loop alive when handling an event panics.
func (s *Segmenter) safeHandle(ev keyboard.Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.reset()
		if s.onPanic != nil {
			s.onPanic(ev, r)
			return
		}
		s.log.Error("recovered from panic", "panic", r, "event", ev.Kind.String())
	}()
	s.Handle(ev)
}

// reset returns to the idle state. Echoes of a correction interrupted by a
// panic are dropped together with the suppression count.
func (s *Segmenter) reset() {
	s.buf = s.buf[:0]
	s.window.Reset()
	s.sup.Reset()
	if s.echoes == nil {
		return
	}
	for {
		if _, ok := s.echoes.Next(); !ok {
			return
		}
	}
}

func (s *Segmenter) drainEchoes() {
	if s.echoes == nil {
		return
	}
	for {
		ev, ok := s.echoes.Next()
		if !ok {
			return
		}
		s.safeHandle(ev)
	}
}
