package lumen

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyW int = iota
	KeyA
	KeyS
	KeyD
	KeyRight
	KeyLeft
	KeyDown
	KeyUp
	KeyBackspace
	KeyEscape
	keyCount
)

type InputModule struct{}

// Input holds key state sampled once per frame.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	WindowWidth, WindowHeight int
}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
	app.UseSystem(
		System(inputSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
	app.UseSystem(System(exitOnEscapeSystem).InStage(PreUpdate).RunAlways())
}

func exitOnEscapeSystem(input *Input, cmd *Commands) {
	if input.JustPressed[KeyEscape] {
		cmd.Exit()
	}
}

// setKey records one sample for key and derives the edge flags.
func (input *Input) setKey(key int, down bool) {
	input.JustPressed[key] = down && !input.Pressed[key]
	input.JustReleased[key] = !down && input.Pressed[key]
	input.Pressed[key] = down
}

func inputSystem(s *WindowState, input *Input) {
	glfw.PollEvents()

	for key, glfwKey := range keyToGlfw {
		input.setKey(key, s.windowGlfw.GetKey(glfwKey) == glfw.Press)
	}

	input.WindowWidth, input.WindowHeight = s.windowGlfw.GetFramebufferSize()
}

var keyToGlfw = map[int]glfw.Key{
	KeyW:         glfw.KeyW,
	KeyA:         glfw.KeyA,
	KeyS:         glfw.KeyS,
	KeyD:         glfw.KeyD,
	KeyRight:     glfw.KeyRight,
	KeyLeft:      glfw.KeyLeft,
	KeyDown:      glfw.KeyDown,
	KeyUp:        glfw.KeyUp,
	KeyBackspace: glfw.KeyBackspace,
	KeyEscape:    glfw.KeyEscape,
}
