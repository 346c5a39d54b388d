package main

import (
	"context"
	"time"

	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/runtime"
	"github.com/onart/YERM-sub001/internal/core/scheduler"
)

type frameReport struct {
	frame     uint64
	frames    uint64
	window    time.Duration
	alive     int
	cells     int64
	stores    int
	populated int
	stats     scheduler.Stats
}

// fps is the measured frame rate over the report window.
func (r frameReport) fps() float64 {
	if r.window <= 0 {
		return 0
	}
	return float64(r.frames) / r.window.Seconds()
}

// loop ticks rt once per frame interval until ctx ends or maxFrames frames
// ran. Wall deltas are clamped to the configured maximum so a stalled
// process does not flood fixed-period units with catch-up work.
func loop(ctx context.Context, rt *runtime.Runtime, w *world, maxFrames int, reports chan<- frameReport) error {
	cfg := rt.Config()
	ticker := time.NewTicker(cfg.FrameInterval())
	defer ticker.Stop()

	perReport := uint64(cfg.Loop.FrameRate)
	last := time.Now()
	windowStart := last
	var frame uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := min(now.Sub(last), cfg.Loop.MaxDelta)
			last = now

			rt.Tick(dt)
			frame++

			if frame%perReport == 0 {
				r := frameReport{
					frame:     frame,
					frames:    perReport,
					window:    now.Sub(windowStart),
					alive:     w.alive(),
					cells:     entity.LiveCells(),
					stores:    rt.Components().Len(),
					populated: rt.Components().Count(populated),
					stats:     rt.Scheduler().Stats(),
				}
				windowStart = now
				select {
				case reports <- r:
				default:
				}
			}
			if maxFrames > 0 && frame >= uint64(maxFrames) {
				return nil
			}
		}
	}
}

func populated(i component.StoreInfo) bool {
	return i.Rows > 0
}
