package lumen

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// FlyCamera holds the keyboard fly-camera tuning.
type FlyCamera struct {
	MoveSpeed   float32 // world units per second
	RotateSpeed float32 // radians per second
}

// CameraModule steers the core.Camera resource from the keyboard: arrow
// keys turn, WASD moves along the view direction.
type CameraModule struct {
	MoveSpeed   float32
	RotateSpeed float32
}

func (m CameraModule) Install(app *App, cmd *Commands) {
	fly := &FlyCamera{MoveSpeed: m.MoveSpeed, RotateSpeed: m.RotateSpeed}
	if fly.MoveSpeed == 0 {
		fly.MoveSpeed = 120
	}
	if fly.RotateSpeed == 0 {
		fly.RotateSpeed = 1.3
	}
	cmd.AddResources(fly)
	app.UseSystem(
		System(flyCameraSystem).
			InStage(Update).
			RunAlways(),
	)
}

const maxPitch = 89 * math.Pi / 180

func flyCameraSystem(input *Input, time *Time, cam *core.Camera, fly *FlyCamera) {
	dt := float32(time.Seconds())
	if dt <= 0 {
		return
	}
	steerCamera(cam, fly, input, dt)
}

// steerCamera applies one frame of keyboard input to cam.
func steerCamera(cam *core.Camera, fly *FlyCamera, input *Input, dt float32) {
	axis := func(pos, neg int) float32 {
		var v float32
		if input.Pressed[pos] {
			v++
		}
		if input.Pressed[neg] {
			v--
		}
		return v
	}

	cam.Yaw += axis(KeyRight, KeyLeft) * fly.RotateSpeed * dt
	cam.Pitch += axis(KeyDown, KeyUp) * fly.RotateSpeed * dt
	cam.Pitch = mgl32.Clamp(cam.Pitch, -maxPitch, maxPitch)

	move := cam.GetForward().Mul(axis(KeyW, KeyS)).Add(cam.GetRight().Mul(axis(KeyD, KeyA)))
	if move.Len() > 0 {
		cam.Position = cam.Position.Add(move.Normalize().Mul(fly.MoveSpeed * dt))
	}
}
