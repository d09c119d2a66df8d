// Package window keeps the most recent completed words and retroactively
// corrects a middle word that sits between two target-language words.
package window

import (
	"log/slog"
	"sync/atomic"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/classify"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/lexicon"
)

// Size is the number of words the window holds.
const Size = 3

// Window is the history of recently completed words, oldest first.
// It is not safe for concurrent use, except for SetContext.
type Window struct {
	tokens  []classify.Token
	mapper  layout.Mapper
	target  lexicon.Set
	sink    correction.Sink
	log     *slog.Logger
	context atomic.Bool
}

// New creates an empty window. Contextual corrections are translated with
// mapper, validated against target and sent to sink.
func New(mapper layout.Mapper, target lexicon.Set, sink correction.Sink, log *slog.Logger) *Window {
	if log == nil {
		log = slog.Default()
	}
	w := &Window{
		tokens: make([]classify.Token, 0, Size+1),
		mapper: mapper,
		target: target,
		sink:   sink,
		log:    log,
	}
	w.context.Store(true)
	return w
}

// SetContext turns contextual correction on or off. The window keeps
// recording words either way.
func (w *Window) SetContext(on bool) {
	w.context.Store(on)
}

// ContextEnabled reports whether contextual correction is on.
func (w *Window) ContextEnabled() bool {
	return w.context.Load()
}

// Push appends tok, evicting the oldest word when the window is full, and
// then checks the window for a correctable middle word. It reports whether a
// contextual correction was emitted.
func (w *Window) Push(tok classify.Token) bool {
	w.tokens = append(w.tokens, tok)
	if len(w.tokens) > Size {
		copy(w.tokens, w.tokens[1:])
		w.tokens = w.tokens[:Size]
	}
	if len(w.tokens) < Size || !w.context.Load() {
		return false
	}
	return w.check()
}

func (w *Window) check() bool {
	w1, w2, w3 := w.tokens[0], w.tokens[1], w.tokens[2]
	if !w1.IsTarget || w2.IsTarget || !w3.IsTarget {
		return false
	}

	translated := w.mapper.Translate(w2.Clean)
	if !w.target.Contains(translated) {
		return false
	}

	w.log.Info("context corrected", "word", w2.Raw, "replacement", translated)
	w.sink.Emit(correction.Correction{
		Kind:        correction.KindContext,
		OldText:     w1.Raw + " " + w2.Raw + " " + w3.Raw + " ",
		NewText:     w1.Raw + " " + translated + " " + w3.Raw + " ",
		Word:        w2.Raw,
		Replacement: translated,
	})

	w.tokens[1] = classify.Token{Raw: translated, Clean: translated, IsTarget: true}
	return true
}

// Tokens returns a copy of the window, oldest first.
func (w *Window) Tokens() []classify.Token {
	return append([]classify.Token(nil), w.tokens...)
}

// Len returns the number of words held.
func (w *Window) Len() int {
	return len(w.tokens)
}

// Reset empties the window.
func (w *Window) Reset() {
	w.tokens = w.tokens[:0]
}
