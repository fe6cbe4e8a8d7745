package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrop/internal/cli/output"
	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/marmos91/dittodrop/pkg/metrics"
)

func TestStatusTable(t *testing.T) {
	snap := metrics.Snapshot{ActiveConnections: 2, TotalConnections: 7, FileTransfers: 4}

	var buf bytes.Buffer
	require.NoError(t, output.PrintTable(&buf, statusTable(snap)))

	out := buf.String()
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "TRANSFERS")
	assert.Contains(t, out, "7")
}

func TestGetConfigSource(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	assert.Equal(t, "/etc/dittodrop.yaml", getConfigSource("/etc/dittodrop.yaml"))
	assert.Equal(t, "defaults", getConfigSource(""))

	require.NoError(t, config.SaveConfig(config.GetDefaultConfig(), config.GetDefaultConfigPath()))
	assert.Equal(t, config.GetDefaultConfigPath(), getConfigSource(""))
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = ""
		initForce = false
	})

	require.NoError(t, runInit(initCmd, nil))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)

	assert.Error(t, runInit(initCmd, nil), "existing file needs --force")

	initForce = true
	assert.NoError(t, runInit(initCmd, nil))
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"start", "init", "status", "logs", "user", "config", "version"} {
		assert.True(t, names[want], want)
	}
}
