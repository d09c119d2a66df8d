package lexicon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNormalizes(t *testing.T) {
	input := "שָׁלוֹם\nHello\n\n   \n  World  \nhello\n"

	s, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("שלום"), "niqqud should be stripped")
	assert.True(t, s.Contains("hello"))
	assert.True(t, s.Contains("world"))
	assert.False(t, s.Contains("Hello"))
	assert.False(t, s.Contains(""))
}

func TestReadStripsBOM(t *testing.T) {
	s, err := Read(strings.NewReader("\uFEFFתודה\nבבקשה"))
	require.NoError(t, err)

	assert.True(t, s.Contains("תודה"))
	assert.True(t, s.Contains("בבקשה"))
}

func TestReadCRLF(t *testing.T) {
	s, err := Read(strings.NewReader("one\r\ntwo\r\n"))
	require.NoError(t, err)

	assert.True(t, s.Contains("one"))
	assert.True(t, s.Contains("two"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"בְּרֵאשִׁית", "בראשית"},
		{"ABC", "abc"},
		{"  x ", "x"},
		{"", ""},
		{"\u0591\u05C7", ""},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestNew(t *testing.T) {
	s := New("Shalom", "shalom", "", "שָׁלוֹם")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("shalom"))
	assert.True(t, s.Contains("שלום"))
}

func TestZeroSet(t *testing.T) {
	var s Set
	assert.False(t, s.Contains("anything"))
	assert.Equal(t, 0, s.Len())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "he.txt")
	require.NoError(t, os.WriteFile(path, []byte("שלום\nתודה\n"), 0600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestLoadFileMissingIsDegraded(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingResource))
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains("שלום"))
}

func TestLoadFileDirectoryIsDegraded(t *testing.T) {
	// Opening a directory succeeds on Linux but reading it fails.
	s, err := LoadFile(t.TempDir())

	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}
