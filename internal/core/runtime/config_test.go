package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(`
log:
  level: debug
scheduler:
  catch_up_limit: 3
loop:
  max_delta: 100ms
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Scheduler.CatchUpLimit)
	assert.True(t, cfg.Scheduler.ReportLeaks, "unset keys keep their defaults")
	assert.Equal(t, 60, cfg.Loop.FrameRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Loop.MaxDelta)
}

func TestLoadYAMLEmptyDocument(t *testing.T) {
	cfg, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "scheduler:\n  catchup: 3\n",
		"zero limit":    "scheduler:\n  catch_up_limit: 0\n",
		"bad level":     "log:\n  level: loud\n",
		"bad frame":     "loop:\n  frame_rate: 0\n",
		"bad duration":  "loop:\n  max_delta: soon\n",
		"negative step": "loop:\n  max_delta: -1s\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadYAML(strings.NewReader("scheduler:\n  catch_up_limit: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.yaml")
	require.NoError(t, os.WriteFile(path, []byte("loop:\n  frame_rate: 30\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Loop.FrameRate)
	assert.Equal(t, time.Second/30, cfg.FrameInterval())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
