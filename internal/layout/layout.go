// Package layout maps characters typed on one keyboard layout to the
// characters the same physical keys produce on another layout.
//
// A Mapper is a partial key-position table. Characters absent from the table
// pass through unchanged, so mapping never fails.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownLayout is returned by Lookup for names that are not registered.
var ErrUnknownLayout = errors.New("unknown layout")

// DefaultName is the layout pair used when none is configured.
const DefaultName = "en-he"

// Mapper translates characters from a source layout to a target layout.
// The zero value maps every character to itself.
type Mapper struct {
	name  string
	table map[rune]rune
}

// New creates a Mapper from a source->target key table.
// The table is copied; later changes to it do not affect the Mapper.
func New(name string, table map[rune]rune) Mapper {
	t := make(map[rune]rune, len(table))
	for k, v := range table {
		t[k] = v
	}
	return Mapper{name: name, table: t}
}

// Name returns the registered name of the layout pair.
func (m Mapper) Name() string {
	return m.name
}

// Map returns the counterpart of r, or r itself if r has no entry.
func (m Mapper) Map(r rune) rune {
	if mapped, ok := m.table[r]; ok {
		return mapped
	}
	return r
}

// Translate maps every character of word.
func (m Mapper) Translate(word string) string {
	if len(m.table) == 0 {
		return word
	}
	var b strings.Builder
	b.Grow(len(word) * 2)
	for _, r := range word {
		b.WriteRune(m.Map(r))
	}
	return b.String()
}

// Len returns the number of table entries.
func (m Mapper) Len() int {
	return len(m.table)
}

// Inverse returns the target->source table.
//
// The inverse is only a true inverse on characters that appear as table
// values. A character that passes through the forward table unchanged may
// still be a value of some other key, in which case Inverse maps it back to
// that key: Inverse().Translate(Translate(w)) == w does not hold in general.
// When two keys share a value the lexically smallest key wins.
func (m Mapper) Inverse() Mapper {
	keys := make([]rune, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })

	inv := make(map[rune]rune, len(m.table))
	for _, k := range keys {
		inv[m.table[k]] = k
	}
	return Mapper{name: m.name + "-inverse", table: inv}
}

// EnglishToHebrew is the standard Israeli (SI-1452) layout as seen from a US
// QWERTY keyboard: the key that types 'e' in English types 'ק' in Hebrew.
var EnglishToHebrew = map[rune]rune{
	'q': '/', 'w': '\'', 'e': 'ק', 'r': 'ר', 't': 'א', 'y': 'ט',
	'u': 'ו', 'i': 'ן', 'o': 'ם', 'p': 'פ',
	'a': 'ש', 's': 'ד', 'd': 'ג', 'f': 'כ', 'g': 'ע',
	'h': 'י', 'j': 'ח', 'k': 'ל', 'l': 'ך', ';': 'ף',
	'z': 'ז', 'x': 'ס', 'c': 'ב', 'v': 'ה',
	'b': 'נ', 'n': 'מ', 'm': 'צ',
	',': 'ת', '.': 'ץ', '/': '.',
}

var registry = map[string]map[rune]rune{
	DefaultName: EnglishToHebrew,
}

// Lookup returns the registered layout pair called name.
func Lookup(name string) (Mapper, error) {
	if name == "" {
		name = DefaultName
	}
	table, ok := registry[name]
	if !ok {
		return Mapper{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownLayout, name, strings.Join(Names(), ", "))
	}
	return New(name, table), nil
}

// Names lists the registered layout pairs in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
