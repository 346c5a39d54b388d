package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/onart/YERM-sub001/internal/core/component"
	"github.com/onart/YERM-sub001/internal/core/entity"
	"github.com/onart/YERM-sub001/internal/core/events/bus"
	"github.com/onart/YERM-sub001/internal/core/observability/log"
	"github.com/onart/YERM-sub001/internal/core/runtime"
)

func TestEventLogFollowsStoreLifecycle(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := log.FromZap(zap.New(core), log.LevelDebug)
	rt, err := runtime.New(runtime.DefaultConfig(), runtime.WithLogger(log.NewNop()))
	require.NoError(t, err)

	events, err := watchEvents(rt.Bus(), logger)
	require.NoError(t, err)

	e := entity.New()
	component.Add[motion](rt.Components(), e)
	rt.Tick(time.Millisecond)
	e.Destroy()
	e.Reset()
	rt.Tick(time.Millisecond)

	seen := logs.FilterMessage("lifecycle event").All()
	require.Len(t, seen, 2)
	assert.Equal(t, runtime.EventStoreCreated, seen[0].ContextMap()["type"])
	assert.Equal(t, runtime.EventStoreRetired, seen[1].ContextMap()["type"])

	_, err = rt.Bus().Subscribe(runtime.EventStoreCreated, func(bus.Event) error {
		return errors.New("sink full")
	})
	require.NoError(t, err)
	other := entity.New()
	defer other.Reset()
	component.Add[motion](rt.Components(), other)
	failed := logs.FilterMessage("lifecycle delivery failed").All()
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].ContextMap()["delivery_error"], "sink full")

	events.close()
	summary := logs.FilterMessage("lifecycle events").All()
	require.Len(t, summary, 1)
	// created, admitted, retired, created again
	assert.EqualValues(t, 4, summary[0].ContextMap()["published"])
	assert.EqualValues(t, 1, summary[0].ContextMap()["errors"])
	rt.ShutdownAll()
}

func TestFrameReportRate(t *testing.T) {
	assert.InDelta(t, 60.0, frameReport{frames: 60, window: time.Second}.fps(), 1e-9)
	assert.Zero(t, frameReport{frames: 60}.fps())
}
