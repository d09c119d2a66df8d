package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeConfig creates a config file pointing at fresh word lists.
func writeConfig(t *testing.T, target, source []string) string {
	t.Helper()
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "target.txt")
	sourcePath := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(targetPath, []byte(strings.Join(target, "\n")), 0o600))
	require.NoError(t, os.WriteFile(sourcePath, []byte(strings.Join(source, "\n")), 0o600))

	path := filepath.Join(dir, "config.toml")
	content := "version = 1\n\n[lexicon]\n" +
		"target_path = \"" + targetPath + "\"\n" +
		"source_path = \"" + sourcePath + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "smartkbd", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "check", "devices", "config"})
}

func TestRootCommandHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "wrong")
	assert.Contains(t, out, "Available Commands:")
}

func TestRootCommandVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestCheckCommand(t *testing.T) {
	path := writeConfig(t, []string{"שלום", "ספר"}, []string{"hello"})

	out, err := execute(t, "--config", path, "check", "hello", "akuo", "xpr")
	require.NoError(t, err)
	assert.Contains(t, out, `"akuo " -> "שלום "`)
	assert.Contains(t, out, `"xpr " -> "ספר "`)
	assert.NotContains(t, out, `"hello "`)
}

func TestCheckCommandNoCorrections(t *testing.T) {
	path := writeConfig(t, []string{"שלום"}, []string{"hello"})

	out, err := execute(t, "--config", path, "check", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "no corrections")
}

func TestCheckCommandMissingDictionary(t *testing.T) {
	path := writeConfig(t, []string{"שלום"}, nil)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(path), "source.txt")))

	out, err := execute(t, "--config", path, "check", "akuo")
	require.NoError(t, err)
	assert.Contains(t, out, "dictionary not found")
	assert.Contains(t, out, `"akuo " -> "שלום "`)
}

func TestCheckCommandRequiresWords(t *testing.T) {
	_, err := execute(t, "check")
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[layout]\nname = \"xx-yy\"\n"), 0o600))

	_, err := execute(t, "--config", path, "check", "akuo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layout.name")
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, []string{"שלום"}, nil)

	out, err := execute(t, "--config", path, "config", "show", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"target_path"`)
	assert.Contains(t, out, filepath.Dir(path))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartkbd", "config.toml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestDevicesCommand(t *testing.T) {
	path := writeConfig(t, nil, nil)

	out, err := execute(t, "--config", path, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "capture:")
	assert.Contains(t, out, "injection:")
	assert.Contains(t, out, "layout:")
}
