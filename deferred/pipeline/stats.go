package pipeline

import "fmt"

// FrameTimer averages frame times over a fixed period.
type FrameTimer struct {
	Period float64 // seconds

	elapsed   float64
	frames    int
	frameTime float64 // average seconds per frame over the last period
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{Period: 1}
}

// Tick records one frame of dt seconds and reports whether a new average
// became available.
func (t *FrameTimer) Tick(dt float64) bool {
	t.elapsed += dt
	t.frames++
	if t.elapsed < t.Period {
		return false
	}
	t.frameTime = t.elapsed / float64(t.frames)
	t.elapsed = 0
	t.frames = 0
	return true
}

// FrameTime is the averaged frame time in seconds.
func (t *FrameTimer) FrameTime() float64 { return t.frameTime }

func (t *FrameTimer) FPS() float64 {
	if t.frameTime <= 0 {
		return 0
	}
	return 1 / t.frameTime
}

// StatusLine is the one-line summary shown in the window title or HUD.
func StatusLine(mode Mode, lights int, t *FrameTimer) string {
	title := "Deferred Rendering"
	if mode == Forward {
		title = "Forward Rendering"
	}
	return fmt.Sprintf("%s - Lights: %d, Frame Time: %.2f ms, FPS: %.0f", title, lights, t.FrameTime()*1000, t.FPS())
}
