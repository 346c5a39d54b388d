package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/runtime"
	"github.com/onart/YERM-sub001/internal/injector"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML runtime config")
		profMode   = flag.String("profile", "", "write a cpu or mem profile to the working directory")
		frames     = flag.Int("frames", 0, "stop after this many frames (0 runs until interrupted)")
		duration   = flag.Duration("duration", 0, "stop after this much wall time (0 runs until interrupted)")
		spawnEvery = flag.Duration("spawn-every", 200*time.Millisecond, "interval between spawned entities")
	)
	flag.Parse()

	if err := run(*configPath, *profMode, *frames, *duration, *spawnEvery); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, profMode string, frames int, duration, spawnEvery time.Duration) error {
	switch profMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", profMode)
	}

	cfg := runtime.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = runtime.LoadFile(configPath); err != nil {
			return err
		}
	}

	rt, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return err
	}
	logger := rt.Logger()
	if l, ok := logger.(*log.Logger); ok {
		defer func() { _ = l.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	events, err := watchEvents(rt.Bus(), logger)
	if err != nil {
		return err
	}

	w := newWorld(rt, spawnEvery)
	reports := make(chan frameReport, 1)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(reports)
		return loop(ctx, rt, w, frames, reports)
	})
	g.Go(func() error {
		for r := range reports {
			logger.Info("frame report",
				log.Uint64("frame", r.frame),
				log.Float64("fps", r.fps()),
				log.Int("alive", r.alive),
				log.Int64("live_cells", r.cells),
				log.Uint64("updates", r.stats.Updates),
				log.Uint64("catch_up_passes", r.stats.CatchUpPasses),
				log.Int("stores", r.stores),
				log.Int("populated_stores", r.populated),
			)
		}
		return nil
	})

	err = g.Wait()
	w.close()
	if leaked := rt.ShutdownAll(); leaked > 0 {
		logger.Warn("units leaked at shutdown", log.Int("count", leaked))
	}
	events.close()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
