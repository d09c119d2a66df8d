// Package normalize cleans up typed words before dictionary lookup.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Punctuation is the set of characters stripped from both ends of a word.
// Characters that are keys in a layout table (',', '.', '/', ';', '\'') are
// deliberately absent: they carry letters on the other layout.
const Punctuation = "!@#$%^&*()_+-=[]{}|:?<>"

var lower = cases.Lower(language.Und)

// Lower case-folds s for dictionary comparison.
func Lower(s string) string {
	return lower.String(s)
}

// StripPunctuation removes leading and trailing Punctuation from raw.
// Punctuation inside the word is kept.
func StripPunctuation(raw string) string {
	return strings.Trim(raw, Punctuation)
}

// Dictionary is the membership test CollapseRepeats consults.
type Dictionary interface {
	Contains(word string) bool
}

// CollapseRepeats drops trailing repeated characters from word until it is
// found in dict, its last two characters differ, or it is two characters long.
// A held-down key produces "שלוםםם"; this recovers "שלום".
func CollapseRepeats(word string, dict Dictionary) string {
	runes := []rune(word)
	for len(runes) > 2 && runes[len(runes)-1] == runes[len(runes)-2] && !dict.Contains(string(runes)) {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
