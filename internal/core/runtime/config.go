package runtime

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid runtime config")

type Config struct {
	Log       LogConfig       `json:"log" yaml:"log"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Loop      LoopConfig      `json:"loop" yaml:"loop"`
}

type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

type SchedulerConfig struct {
	// CatchUpLimit is the default per-tick invocation limit of component stores.
	CatchUpLimit int  `json:"catch_up_limit" yaml:"catch_up_limit"`
	ReportLeaks  bool `json:"report_leaks" yaml:"report_leaks"`
}

type LoopConfig struct {
	FrameRate int           `json:"frame_rate" yaml:"frame_rate"`
	MaxDelta  time.Duration `json:"max_delta" yaml:"max_delta"`
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Scheduler: SchedulerConfig{
			CatchUpLimit: component.DefaultCatchUp,
			ReportLeaks:  true,
		},
		Loop: LoopConfig{
			FrameRate: 60,
			MaxDelta:  250 * time.Millisecond,
		},
	}
}

// FrameInterval is the target wall time of one frame.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.Loop.FrameRate)
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Scheduler.CatchUpLimit < 1 {
		return fmt.Errorf("%w: scheduler.catch_up_limit must be at least 1, got %d", ErrInvalidConfig, c.Scheduler.CatchUpLimit)
	}
	if c.Loop.FrameRate < 1 {
		return fmt.Errorf("%w: loop.frame_rate must be positive, got %d", ErrInvalidConfig, c.Loop.FrameRate)
	}
	if c.Loop.MaxDelta <= 0 {
		return fmt.Errorf("%w: loop.max_delta must be positive, got %s", ErrInvalidConfig, c.Loop.MaxDelta)
	}
	return nil
}

// LoadYAML decodes a config over DefaultConfig. Unknown keys are rejected and
// an empty document yields the defaults.
func LoadYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode runtime config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open runtime config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
