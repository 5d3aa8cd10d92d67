package lumen

import (
	"time"
)

// Lifetime tracks how long the app has left to run.
type Lifetime struct {
	MaxFrames   uint64
	MaxDuration time.Duration
	frames      uint64
}

// Expired reports whether either limit has been reached.
func (lt *Lifetime) Expired(elapsed time.Duration) bool {
	if lt.MaxFrames > 0 && lt.frames >= lt.MaxFrames {
		return true
	}
	return lt.MaxDuration > 0 && elapsed >= lt.MaxDuration
}

// LifecycleModule stops a stateful app after a number of frames or a span
// of (possibly simulated) time. Zero limits run until something else exits.
type LifecycleModule struct {
	MaxFrames   uint64
	MaxDuration time.Duration
}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Lifetime{MaxFrames: mod.MaxFrames, MaxDuration: mod.MaxDuration})
	app.UseSystem(
		System(lifetimeSystem).
			InStage(Finale).
			RunAlways(),
	)
}

func lifetimeSystem(time *Time, lt *Lifetime, cmd *Commands) {
	lt.frames++
	if lt.Expired(time.Elapsed) {
		cmd.Logger().Debugf("lifecycle: limit reached after %d frames", lt.frames)
		cmd.Exit()
	}
}
