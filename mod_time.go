package lumen

import (
	"time"
)

// Time is advanced once per frame in Prelude.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64

	fixed time.Duration
	now   func() time.Time
}

// Seconds returns Dt in seconds.
func (t *Time) Seconds() float64 { return t.Dt.Seconds() }

// TimeModule provides the Time resource. With FixedStep set every frame
// advances by exactly that much, which makes headless runs reproducible.
type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:  time.Now(),
		fixed: mod.FixedStep,
		now:   time.Now,
	})
	cmd.UseSystem(System(timeSystem).InStage(Prelude).RunAlways())
}

func timeSystem(timeResource *Time) {
	var now time.Time
	if timeResource.fixed > 0 {
		now = timeResource.Time.Add(timeResource.fixed)
	} else {
		now = timeResource.now()
	}

	timeResource.Dt = now.Sub(timeResource.Time)
	timeResource.Time = now
	timeResource.Elapsed += timeResource.Dt
	timeResource.Frame++
}
