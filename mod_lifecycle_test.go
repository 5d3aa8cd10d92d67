package lumen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLifetime_Expired(t *testing.T) {
	lt := &Lifetime{}
	assert.False(t, lt.Expired(time.Hour), "no limits never expire")

	lt = &Lifetime{MaxFrames: 2, frames: 2}
	assert.True(t, lt.Expired(0))

	lt = &Lifetime{MaxDuration: time.Second}
	assert.False(t, lt.Expired(999*time.Millisecond))
	assert.True(t, lt.Expired(time.Second))
}

func TestLifecycleModule_StopsRun(t *testing.T) {
	app := NewAppBuilder().
		UseStates(StateRunning, StateExiting).
		UseModule(
			TimeModule{FixedStep: 100 * time.Millisecond},
			LifecycleModule{MaxFrames: 5},
		).
		Build()
	app.Run()
	assert.Equal(t, uint64(5), app.Frames())

	app = NewAppBuilder().
		UseStates(StateRunning, StateExiting).
		UseModule(
			TimeModule{FixedStep: 100 * time.Millisecond},
			LifecycleModule{MaxDuration: 350 * time.Millisecond},
		).
		Build()
	app.Run()
	assert.Equal(t, uint64(4), app.Frames())
}
