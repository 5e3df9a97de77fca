package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (*Config, RunOptions, error) {
	t.Helper()
	var (
		got  *Config
		opts RunOptions
	)
	cmd := CreateCommand(func(ctx context.Context, cfg *Config, o RunOptions) error {
		got, opts = cfg, o
		return nil
	})
	err := cmd.Run(context.Background(), append([]string{"sniffguard"}, args...))
	return got, opts, err
}

func TestCreateCommand_Flags(t *testing.T) {
	tcs := []struct {
		name   string
		args   []string
		assert func(t *testing.T, cfg *Config, opts RunOptions)
	}{
		{
			name: "interface only",
			args: []string{"eth0"},
			assert: func(t *testing.T, cfg *Config, opts RunOptions) {
				assert.Equal(t, "eth0", cfg.Network.Interface)
				assert.Equal(t, 25, cfg.Pool.Workers)
				assert.False(t, opts.Verbose)
				assert.Empty(t, opts.ReplayPath)
			},
		},
		{
			name: "verbose short flag",
			args: []string{"-v", "wlan0"},
			assert: func(t *testing.T, cfg *Config, opts RunOptions) {
				assert.Equal(t, "wlan0", cfg.Network.Interface)
				assert.True(t, opts.Verbose)
			},
		},
		{
			name: "workers and log level",
			args: []string{"--workers", "4", "--log-level", "debug", "eth1"},
			assert: func(t *testing.T, cfg *Config, opts RunOptions) {
				assert.Equal(t, 4, cfg.Pool.Workers)
				assert.Equal(t, "debug", cfg.System.LogLevel)
			},
		},
		{
			name: "replay needs no interface",
			args: []string{"--read", "trace.pcap"},
			assert: func(t *testing.T, cfg *Config, opts RunOptions) {
				assert.Empty(t, cfg.Network.Interface)
				assert.Equal(t, "trace.pcap", opts.ReplayPath)
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg, opts, err := runCommand(t, tc.args...)
			require.NoError(t, err)
			require.NotNil(t, cfg, "run function was not called")
			tc.assert(t, cfg, opts)
		})
	}
}

func TestCreateCommand_MissingInterface(t *testing.T) {
	cfg, _, err := runCommand(t)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Nil(t, cfg)
}

func TestCreateCommand_InvalidWorkers(t *testing.T) {
	cfg, _, err := runCommand(t, "--workers", "0", "eth0")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestCreateCommand_OverrideTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniffguard.toml")
	content := `
[network]
interface = "eth9"
snaplen = 2048

[pool]
workers = 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, _, err := runCommand(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "eth9", cfg.Network.Interface)
	assert.Equal(t, 2048, cfg.Network.SnapLen)
	assert.Equal(t, 8, cfg.Pool.Workers)

	cfg, _, err = runCommand(t, "-c", path, "--workers", "2", "eth0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", cfg.Network.Interface)
	assert.Equal(t, 2, cfg.Pool.Workers)
	assert.Equal(t, 2048, cfg.Network.SnapLen)
}

func TestCreateCommand_BadConfigFile(t *testing.T) {
	_, _, err := runCommand(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "eth0")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
