package pipeline

import (
	"fmt"

	"github.com/gekko3d/lumen/deferred/core"
)

type Mode int

const (
	Deferred Mode = iota
	Forward
)

func (m Mode) String() string {
	switch m {
	case Deferred:
		return "deferred"
	case Forward:
		return "forward"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "deferred", "":
		return Deferred, nil
	case "forward":
		return Forward, nil
	}
	return Deferred, fmt.Errorf("unknown render mode %q", s)
}

// Logger is the subset of the application logger the render code uses.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

// Frame is the per-frame input shared by all passes. Lights is the mirror
// synced from the light store before rendering began.
type Frame struct {
	Index  uint64
	Camera *core.Camera
	Scene  *core.Scene
	Lights *core.LightBuffer
}

// Device executes individual passes. Implementations own their render
// targets; the Sequencer owns the order in which passes run.
type Device interface {
	ClearDepth()

	// Deferred
	BindGBufferTargets()
	DrawSurfaces(f *Frame)
	BindOutputTarget()
	BindGBufferInputs()
	DrawAmbient(f *Frame)
	DrawPointLights(f *Frame)
	UnbindGBufferInputs()

	// Forward
	DrawForward(f *Frame)

	// Both
	DrawSky(f *Frame)
	DrawBillboards(f *Frame)
	Present() error
}
