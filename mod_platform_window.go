package lumen

// WindowModule opens the glfw window and brings up wgpu on it, providing
// the WindowState and GpuState resources. Install is idempotent: an
// existing WindowState is reused.
type WindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewWindowModule fills in defaults for zero values.
func NewWindowModule(width, height int, title string) *WindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "lumen"
	}
	return &WindowModule{
		Width:  width,
		Height: height,
		Title:  title,
	}
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[WindowState](app); ok {
		return
	}
	mod := NewWindowModule(m.Width, m.Height, m.Title)

	ws, err := createWindowState(mod.Width, mod.Height, mod.Title)
	if err != nil {
		app.reportStartupError("window", err)
		return
	}
	gs, err := createGpuState(ws)
	if err != nil {
		ws.destroy()
		app.reportStartupError("gpu", err)
		return
	}
	app.addResources(ws, gs)
	app.Logger().Infof("window %dx%d '%s' ready", mod.Width, mod.Height, mod.Title)

	app.UseSystem(System(windowCloseSystem).InStage(PostUpdate).RunAlways())
	if app.stateful {
		app.UseSystem(System(windowShutdownSystem).InStage(Finale).InState(OnEnter(app.finalState)))
	}
}

func windowCloseSystem(ws *WindowState, cmd *Commands) {
	if ws.ShouldClose() {
		cmd.Exit()
	}
}

func windowShutdownSystem(ws *WindowState, gs *GpuState) {
	gs.release()
	ws.destroy()
}
