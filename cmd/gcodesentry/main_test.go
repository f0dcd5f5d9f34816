package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, withBlocklist bool) (string, string) {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
mount_base = %q
gcode_dir = %q
state_path = %q
log_level = "ERROR"
`, filepath.Join(dir, "media"), filepath.Join(dir, "gcodes"), filepath.Join(dir, "state.json"))
	if withBlocklist {
		body += fmt.Sprintf("blocklist_db = %q\n", filepath.Join(dir, "blocklist.db"))
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScanCommandWithoutMedia(t *testing.T) {
	cfg, dir := writeConfig(t, false)

	_, err := run(t, "--config", cfg, "scan")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
	assert.DirExists(t, filepath.Join(dir, "gcodes", "usb"))
}

func TestScanCommandBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("scan_interval = -2.0\n"), 0o644))

	_, err := run(t, "--config", path, "scan")
	assert.Error(t, err)
}

func TestBlocklistCommands(t *testing.T) {
	cfg, _ := writeConfig(t, true)

	out, err := run(t, "--config", cfg, "blocked")
	require.NoError(t, err)
	assert.Contains(t, out, "No blocked devices")

	out, err = run(t, "--config", cfg, "block", "USB1", "--reason", "firmware only")
	require.NoError(t, err)
	assert.Contains(t, out, "Blocked USB1")

	out, err = run(t, "--config", cfg, "blocked")
	require.NoError(t, err)
	assert.Contains(t, out, "USB1")
	assert.Contains(t, out, "firmware only")

	_, err = run(t, "--config", cfg, "unblock", "USB1")
	require.NoError(t, err)
	_, err = run(t, "--config", cfg, "unblock", "USB1")
	assert.Error(t, err)
}

func TestBlocklistCommandsNeedDatabase(t *testing.T) {
	cfg, _ := writeConfig(t, false)

	_, err := run(t, "--config", cfg, "block", "USB1")
	assert.ErrorIs(t, err, errNoBlocklist)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gcodesentry dev")
}

func TestExampleConfigLoads(t *testing.T) {
	settings, err := (&rootOptions{configPath: "ex.config.toml"}).loadSettings()
	require.NoError(t, err)
	assert.Equal(t, []string{".gcode", ".gco", ".g"}, settings.Extensions)
	assert.True(t, settings.RejectBinary)
}
