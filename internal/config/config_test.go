package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "green.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	r := require.New(t)

	cfg, err := Load("")
	r.NoError(err)
	r.Equal(Default(), cfg)
	r.Equal(ModeCoop, cfg.Scheduler.Mode)
	r.Equal(50*time.Millisecond, cfg.Scheduler.PollTimeout())
	r.Equal(5*time.Millisecond, cfg.Demo.Latency())
}

func TestLoadOverridesDefaults(t *testing.T) {
	r := require.New(t)

	cfg, err := Load(write(t, `
[log]
level = "debug"
file = "log/green.log"

[scheduler]
mode = "select"
batch_size = 8

[metrics]
listen = "127.0.0.1:9102"

[demo]
clients = 32
latency_ms = 1
`))
	r.NoError(err)

	r.Equal("debug", cfg.Log.Level)
	r.Equal("log/green.log", cfg.Log.File)
	r.Equal(50, cfg.Log.MaxSizeMB)
	r.Equal(ModeSelect, cfg.Scheduler.Mode)
	r.Equal(8, cfg.Scheduler.BatchSize)
	r.Equal(128, cfg.Scheduler.Concurrency)
	r.Equal("127.0.0.1:9102", cfg.Metrics.Listen)
	r.Equal(32, cfg.Demo.Clients)
	r.Equal(4, cfg.Demo.Connections)
	r.Equal(time.Millisecond, cfg.Demo.Latency())
}

func TestLoadRejectsInvalid(t *testing.T) {
	r := require.New(t)

	_, err := Load(write(t, `
[log]
level = "loud"

[scheduler]
mode = "threads"
concurrency = 0

[demo]
clients = 0
`))
	r.Error(err)
	r.ErrorContains(err, "log.level")
	r.ErrorContains(err, `unknown mode "threads"`)
	r.ErrorContains(err, "scheduler.concurrency")
	r.ErrorContains(err, "demo.clients")
}

func TestLoadMalformed(t *testing.T) {
	r := require.New(t)

	_, err := Load(write(t, "[scheduler\nmode = 1"))
	r.Error(err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	r.ErrorIs(err, os.ErrNotExist)
}
