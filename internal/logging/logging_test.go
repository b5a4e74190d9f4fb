package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webriots/green/internal/config"
	"go.uber.org/zap"
)

func TestNewWritesRotatedFile(t *testing.T) {
	r := require.New(t)

	file := filepath.Join(t.TempDir(), "log", "green.log")
	cfg := config.Default().Log
	cfg.File = file

	log, err := New(cfg)
	r.NoError(err)
	log.Info("wait handler installed", zap.Bool("replaced", false))
	log.Debug("not written at info level")
	_ = log.Sync()

	b, err := os.ReadFile(file)
	r.NoError(err)

	var entry map[string]any
	r.NoError(json.Unmarshal(b, &entry))
	r.Equal("wait handler installed", entry["msg"])
	r.Equal(false, entry["replaced"])
	r.Equal("info", entry["level"])
}

func TestNewRejectsLevel(t *testing.T) {
	cfg := config.Default().Log
	cfg.Level = "loud"
	_, err := New(cfg)
	require.Error(t, err)
}
