// Package correction replaces mistyped text on screen by injecting
// backspaces followed by the corrected text.
//
// Injected keystrokes come back through the capture side like any other
// keystrokes. The Suppressor counts how many of them are still outstanding
// so the segmenter can skip them instead of classifying its own output.
package correction

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/keyboard"
)

// Kind tells which stage produced a correction.
type Kind int

const (
	KindWord    Kind = iota // a single word typed on the wrong layout
	KindContext             // the middle word of a three-word window
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if k == KindContext {
		return "context"
	}
	return "word"
}

// Correction describes one on-screen replacement.
type Correction struct {
	Kind Kind

	// OldText is what is currently on screen, including trailing spaces.
	// Every character of it is deleted.
	OldText string

	// NewText is typed in place of OldText.
	NewText string

	// Word and Replacement are the word being fixed and its fix, for
	// diagnostics only.
	Word        string
	Replacement string
}

// DeleteCount is the number of backspaces the correction needs.
func (c Correction) DeleteCount() int {
	return utf8.RuneCountInString(c.OldText)
}

// TypeCount is the number of characters the correction types.
func (c Correction) TypeCount() int {
	return utf8.RuneCountInString(c.NewText)
}

// Sink receives corrections.
type Sink interface {
	Emit(c Correction)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Correction)

// Emit calls f(c).
func (f SinkFunc) Emit(c Correction) { f(c) }

// Suppressor counts injected keystrokes that have not been observed yet.
type Suppressor struct {
	mu sync.Mutex
	n  int
}

// Arm adds n keystrokes to suppress.
func (s *Suppressor) Arm(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.n += n
	s.mu.Unlock()
}

// Disarm withdraws up to n keystrokes that will never arrive.
func (s *Suppressor) Disarm(n int) {
	s.mu.Lock()
	s.n -= n
	if s.n < 0 {
		s.n = 0
	}
	s.mu.Unlock()
}

// Consume reports whether the next event must be ignored, and debits the
// counter if so.
func (s *Suppressor) Consume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n > 0 {
		s.n--
		return true
	}
	return false
}

// Pending returns the number of keystrokes still to be ignored.
func (s *Suppressor) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Reset forgets every outstanding keystroke.
func (s *Suppressor) Reset() {
	s.mu.Lock()
	s.n = 0
	s.mu.Unlock()
}

// Emitter performs corrections through an Injector.
type Emitter struct {
	inj       keyboard.Injector
	sup       *Suppressor
	log       *slog.Logger
	observers []func(Correction, error)
}

// NewEmitter creates an Emitter that arms sup before injecting through inj.
func NewEmitter(inj keyboard.Injector, sup *Suppressor, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{inj: inj, sup: sup, log: log}
}

// Observe registers fn to be called after every correction attempt, with
// the injection error if there was one.
func (e *Emitter) Observe(fn func(Correction, error)) {
	e.observers = append(e.observers, fn)
}

// Emit deletes c.OldText and types c.NewText.
//
// The Suppressor is armed for every keystroke before the first one is
// injected. Arming adds to the outstanding count rather than replacing it, so
// a word correction and a context correction emitted at the same word
// boundary are both suppressed. If the injector fails, the keystrokes that
// were not injected are withdrawn again; text already deleted is not restored.
func (e *Emitter) Emit(c Correction) {
	deletes, types := c.DeleteCount(), c.TypeCount()
	e.sup.Arm(deletes + types)

	err := e.inj.Backspace(deletes)
	if err != nil {
		e.sup.Disarm(deletes + types)
	} else if err = e.inj.Type(c.NewText); err != nil {
		e.sup.Disarm(types)
	}

	if err != nil {
		e.log.Error("injection failed",
			"kind", c.Kind.String(),
			"word", c.Word,
			"error", err,
		)
	}
	for _, fn := range e.observers {
		fn(c, err)
	}
}
