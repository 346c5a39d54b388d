package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/runtime"
)

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	cfg := runtime.DefaultConfig()
	cfg.Loop.FrameRate = 200
	rt, err := runtime.New(cfg, runtime.WithLogger(log.NewNop()))
	require.NoError(t, err)
	return rt
}

func TestWorldSpawnsAndExpires(t *testing.T) {
	rt := newTestRuntime(t)
	before := entity.LiveCells()
	w := newWorld(rt, 50*time.Millisecond)

	for range 20 {
		rt.Tick(25 * time.Millisecond)
	}
	assert.Positive(t, w.alive())
	assert.NotEmpty(t, w.handles)

	w.close()
	// entities die with their handles; their rows go on the next pass
	rt.Tick(25 * time.Millisecond)
	assert.Zero(t, w.alive())
	assert.Zero(t, rt.ShutdownAll())
	assert.Equal(t, before, entity.LiveCells())
}

func TestLoopStopsAfterFrames(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(rt, time.Hour)
	defer w.close()

	reports := make(chan frameReport, 1)
	err := loop(context.Background(), rt, w, 5, reports)
	require.NoError(t, err)
	assert.EqualValues(t, 5, rt.Scheduler().Stats().Ticks)
}

func TestLoopHonoursContext(t *testing.T) {
	rt := newTestRuntime(t)
	w := newWorld(rt, time.Hour)
	defer w.close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := loop(ctx, rt, w, 0, make(chan frameReport, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
