// Package classify decides, for one typed word, whether it is already valid
// in the target language, valid in the source language, or a word typed on
// the wrong keyboard layout.
package classify

import (
	"log/slog"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/correction"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/layout"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/lexicon"
	"github.com/shiraBarShalom/Smart-Keyboard/internal/normalize"
)

// Token is one completed word and its verdict.
type Token struct {
	Raw      string // as typed, lowercased, punctuation included
	Clean    string // Raw without leading/trailing punctuation
	IsTarget bool   // valid in the target language
}

// Verdict explains how a Token was classified.
type Verdict int

const (
	VerdictUnknown   Verdict = iota // in neither dictionary, no translation found
	VerdictTarget                   // already a target-language word
	VerdictSource                   // a source-language word, left alone
	VerdictCorrected                // translated to a target-language word
)

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictTarget:
		return "target"
	case VerdictSource:
		return "source"
	case VerdictCorrected:
		return "corrected"
	default:
		return "unknown"
	}
}

// Classifier classifies words against a pair of lexicons.
type Classifier struct {
	mapper layout.Mapper
	target lexicon.Set
	source lexicon.Set
	sink   correction.Sink
	log    *slog.Logger
}

// New creates a Classifier. Corrections are sent to sink.
func New(mapper layout.Mapper, target, source lexicon.Set, sink correction.Sink, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{
		mapper: mapper,
		target: target,
		source: source,
		sink:   sink,
		log:    log,
	}
}

// Classify classifies the word typed as raw. ok is false when nothing is left
// after stripping punctuation; the caller must skip the word.
func (c *Classifier) Classify(raw string) (tok Token, ok bool) {
	tok, _ = c.ClassifyVerdict(raw)
	return tok, tok.Clean != ""
}

// ClassifyVerdict is Classify with the reason for the result.
func (c *Classifier) ClassifyVerdict(raw string) (Token, Verdict) {
	raw = normalize.Lower(raw)
	clean := normalize.StripPunctuation(raw)
	tok := Token{Raw: raw, Clean: clean}
	if clean == "" {
		return tok, VerdictUnknown
	}

	if c.target.Contains(clean) {
		tok.IsTarget = true
		return tok, VerdictTarget
	}

	// A valid source-language word is assumed to be intended, even when its
	// translation is also a target-language word.
	if c.source.Contains(clean) {
		return tok, VerdictSource
	}

	translated := c.mapper.Translate(clean)
	if !c.target.Contains(translated) {
		translated = normalize.CollapseRepeats(translated, c.target)
	}
	if !c.target.Contains(translated) {
		return tok, VerdictUnknown
	}

	c.log.Info("word corrected", "word", raw, "replacement", translated)
	c.sink.Emit(correction.Correction{
		Kind:        correction.KindWord,
		OldText:     raw + " ",
		NewText:     translated + " ",
		Word:        raw,
		Replacement: translated,
	})

	return Token{Raw: translated, Clean: translated, IsTarget: true}, VerdictCorrected
}
