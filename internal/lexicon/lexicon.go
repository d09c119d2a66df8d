// Package lexicon loads word lists into immutable membership sets.
//
// Word lists are UTF-8, one word per line. Each word is trimmed, case-folded
// and stripped of Hebrew cantillation and vowel points (U+0591..U+05C7)
// before insertion. Blank lines are skipped and duplicates collapse.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/shiraBarShalom/Smart-Keyboard/internal/normalize"
)

// ErrMissingResource is wrapped by LoadFile when the word list does not exist.
var ErrMissingResource = errors.New("lexicon source not found")

// Niqqud is the code-point range removed from every entry.
var Niqqud = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0591, Hi: 0x05C7, Stride: 1}},
}

var stripNiqqud = runes.Remove(runes.In(Niqqud))

// Set is a read-only set of normalized words. It is safe for concurrent
// reads once built.
type Set struct {
	words map[string]struct{}
}

// New builds a Set from already-typed words, normalizing each one.
func New(words ...string) Set {
	s := Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if n := Normalize(w); n != "" {
			s.words[n] = struct{}{}
		}
	}
	return s
}

// Contains reports whether word is in the set. word must already be
// normalized the way the classifier does it (lowercase, no niqqud).
func (s Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of distinct words.
func (s Set) Len() int {
	return len(s.words)
}

// Normalize trims, case-folds and removes niqqud from a single entry.
func Normalize(word string) string {
	word = normalize.Lower(strings.TrimSpace(word))
	out, _, err := transform.String(stripNiqqud, word)
	if err != nil {
		return word
	}
	return out
}

// Read builds a Set from a newline-delimited word list.
func Read(r io.Reader) (Set, error) {
	s := Set{words: make(map[string]struct{})}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\uFEFF")
		}
		if w := Normalize(line); w != "" {
			s.words[w] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return s, fmt.Errorf("read word list line %d: %w", lineNum+1, err)
	}
	return s, nil
}

// LoadFile reads the word list at path.
//
// A missing or unreadable file is not fatal: the returned Set is empty but
// usable, and the error wraps ErrMissingResource so the caller can report it
// and carry on.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path) //nolint:gosec // word list path comes from config
	if err != nil {
		empty := Set{words: map[string]struct{}{}}
		if errors.Is(err, os.ErrNotExist) {
			return empty, fmt.Errorf("%w: %s", ErrMissingResource, path)
		}
		return empty, fmt.Errorf("%w: %v", ErrMissingResource, err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
