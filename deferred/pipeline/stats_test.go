package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameTimerAveragesOverPeriod(t *testing.T) {
	timer := NewFrameTimer()
	assert.Equal(t, 0.0, timer.FPS())

	for i := 0; i < 3; i++ {
		assert.False(t, timer.Tick(0.25))
	}
	assert.True(t, timer.Tick(0.25))
	assert.InDelta(t, 0.25, timer.FrameTime(), 1e-12)
	assert.InDelta(t, 4, timer.FPS(), 1e-9)

	// The window restarts after each report.
	assert.False(t, timer.Tick(0.5))
	assert.True(t, timer.Tick(0.5))
	assert.InDelta(t, 0.5, timer.FrameTime(), 1e-12)
}

func TestFrameTimerManySmallFrames(t *testing.T) {
	timer := NewFrameTimer()
	updated := false
	for i := 0; i < 32; i++ {
		assert.False(t, updated, "no average before a full period")
		updated = timer.Tick(1.0 / 32)
	}
	require.True(t, updated)
	assert.Equal(t, 1.0/32, timer.FrameTime())
	assert.Equal(t, 32.0, timer.FPS())
	assert.Equal(t, "Deferred Rendering - Lights: 12, Frame Time: 31.25 ms, FPS: 32", StatusLine(Deferred, 12, timer))
}

func TestStatusLine(t *testing.T) {
	timer := &FrameTimer{Period: 1}
	timer.Tick(0.02)
	timer.Period = 0.01
	timer.Tick(0.02)

	assert.Equal(t, "Deferred Rendering - Lights: 7, Frame Time: 20.00 ms, FPS: 50", StatusLine(Deferred, 7, timer))
	assert.Contains(t, StatusLine(Forward, 0, timer), "Forward Rendering - Lights: 0")
}
