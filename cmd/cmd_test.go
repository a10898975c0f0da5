package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inputswitch/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigSetWritesFile(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "--config", path, "config", "set", "display", "2")
	require.NoError(t, err)
	_, err = execute(t, "--config", path, "config", "set", "main_input", "dp1")
	require.NoError(t, err)
	out, err := execute(t, "--config", path, "config", "set", "keybind", "alt+ctrl+s")
	require.NoError(t, err)
	assert.Contains(t, out, "keybind updated")
	assert.NotContains(t, out, "daemon reloaded")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.Display)
	assert.Equal(t, config.Input(0x0F), cfg.MainInput)
	assert.Equal(t, "Ctrl+Alt+S", cfg.Keybind)

	out, err = execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "main_input: DisplayPort-1")
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, err := execute(t, "--config", path, "config", "set", "main_input", "hdmi1")
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "config", "set", "second_input", "hdmi1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestListInputs(t *testing.T) {
	out, err := execute(t, "list", "--inputs")
	require.NoError(t, err)
	assert.Contains(t, out, "0x11  HDMI-1")
	assert.Contains(t, out, "0x0F  DisplayPort-1")
}

func TestSwitchRejectsUnknownInput(t *testing.T) {
	_, err := execute(t, "switch", "svideo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown input source")
}
