package normalize

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

type set map[string]bool

func (s set) Contains(w string) bool { return s[w] }

func TestStripPunctuation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"hello", "hello"},
		{"hello!", "hello"},
		{"(hello)", "hello"},
		{"!?hello?!", "hello"},
		{"he-llo", "he-llo"},
		{"-", ""},
		{"", ""},
		{"akuo,", "akuo,"},
		{"t.", "t."},
		{"[[x]]", "x"},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, StripPunctuation(tt.raw), "StripPunctuation(%q)", tt.raw)
	}
}

func TestLower(t *testing.T) {
	assert.Equal(t, "hello", Lower("HeLLo"))
	assert.Equal(t, "שלום", Lower("שלום"))
	assert.Equal(t, "", Lower(""))
}

func TestCollapseRepeats(t *testing.T) {
	dict := set{"שלום": true, "אלל": true}

	tests := []struct {
		word string
		want string
	}{
		{"שלוםםם", "שלום"},
		{"שלום", "שלום"},
		{"אללל", "אלל"},
		{"אלל", "אלל"},
		{"aa", "aa"},
		{"abbb", "ab"},
		{"aaaa", "aa"},
		{"a", "a"},
		{"", ""},
		{"abab", "abab"},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, CollapseRepeats(tt.word, dict), "CollapseRepeats(%q)", tt.word)
	}
}

func TestCollapseRepeatsIdempotent(t *testing.T) {
	dict := set{"שלום": true, "aab": true, "abb": true, "ccc": true}

	properties := gopter.NewProperties(nil)
	properties.Property("collapsing twice equals collapsing once", prop.ForAll(
		func(s string) bool {
			once := CollapseRepeats(s, dict)
			return CollapseRepeats(once, dict) == once
		},
		gen.AnyString(),
	))
	properties.Property("collapsing never lengthens a word", prop.ForAll(
		func(prefix string, r rune, n int) bool {
			word := prefix
			for i := 0; i < n; i++ {
				word += string(r)
			}
			out := CollapseRepeats(word, dict)
			return len([]rune(out)) <= len([]rune(word))
		},
		gen.AlphaString(),
		gen.RuneRange('a', 'c'),
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
