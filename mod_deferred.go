package lumen

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/gekko3d/lumen/deferred/core"
	"github.com/gekko3d/lumen/deferred/gpu"
	"github.com/gekko3d/lumen/deferred/pipeline"
	"github.com/gekko3d/lumen/deferred/raster"
)

// Renderer is the resource the render systems share.
type Renderer struct {
	Sequencer *pipeline.Sequencer
	Timer     *pipeline.FrameTimer
	Status    string

	// Exactly one of these is set.
	Software *pipeline.SoftwareDevice
	GPU      *gpu.Device

	// LastErr is the most recent RenderFrame failure, cleared on success.
	LastErr error

	text   *pipeline.TextRenderer
	logger Logger
}

// DeferredModule installs a render device and the sequencer that drives
// it once per frame in the Render stage.
type DeferredModule struct {
	Device RendererName
	Mode   pipeline.Mode
	// Width and Height size the software device. The wgpu device follows
	// the window's framebuffer.
	Width, Height int
	Billboards    bool
	// HUD draws the status line onto the software image. The wgpu
	// renderer shows it in the window title instead.
	HUD bool
}

func (m DeferredModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderer(app, m.Device)
	logger := app.Logger()
	r := &Renderer{Timer: pipeline.NewFrameTimer(), logger: logger}

	var device pipeline.Device
	switch m.Device {
	case RendererSoftware:
		width, height := m.Width, m.Height
		if width <= 0 || height <= 0 {
			width, height = 640, 360
		}
		sw := pipeline.NewSoftwareDevice(width, height, logger)
		sw.Billboards = m.Billboards
		if m.HUD {
			tr, err := pipeline.NewDefaultTextRenderer(14)
			if err != nil {
				logger.Warnf("hud disabled: %v", err)
			} else {
				r.text = tr
				sw.Overlay = r.drawHUD
			}
		}
		r.Software, device = sw, sw
	case RendererWGPU:
		gs, ok := Resource[GpuState](app)
		if !ok {
			app.reportStartupError("renderer", errors.New("wgpu renderer needs a window, install WindowModule first"))
			return
		}
		d, err := gpu.NewDevice(gs.Context(), logger)
		if err != nil {
			app.reportStartupError("renderer", err)
			return
		}
		d.Billboards = m.Billboards
		r.GPU, device = d, d
	default:
		panic(fmt.Sprintf("unknown renderer %q", m.Device))
	}

	r.Sequencer = pipeline.NewSequencer(device, m.Mode, logger)
	r.Status = pipeline.StatusLine(m.Mode, 0, r.Timer)
	cmd.AddResources(r)
	logger.Infof("renderer: %s, %v", m.Device, m.Mode)

	if _, ok := Resource[Input](app); ok {
		app.UseSystem(System(renderModeToggleSystem).InStage(Update).RunAlways())
	}
	if r.GPU != nil {
		app.UseSystem(System(gpuResizeSystem).InStage(PostUpdate).RunAlways())
		app.UseSystem(System(windowTitleSystem).InStage(PostRender).RunAlways())
	}
	app.UseSystem(System(renderSystem).InStage(Render).RunAlways())
	if app.stateful {
		app.UseSystem(System(rendererShutdownSystem).InStage(PostRender).InState(OnEnter(app.finalState)))
	}
}

func (r *Renderer) drawHUD(img *raster.Image) {
	if r.text == nil {
		return
	}
	r.text.Draw(img, []pipeline.TextItem{{
		Text:     r.Status,
		Position: [2]int{8, 6},
		Color:    color.White,
	}})
}

func renderModeToggleSystem(input *Input, r *Renderer) {
	r.Sequencer.Toggle(input.Pressed[KeyBackspace])
}

func renderSystem(r *Renderer, time *Time, cam *core.Camera, scene *core.Scene, lights *core.LightBuffer) {
	frame := &pipeline.Frame{
		Index:  r.Sequencer.Frames(),
		Camera: cam,
		Scene:  scene,
		Lights: lights,
	}
	// Status is refreshed before rendering so the HUD overlay shows it.
	if r.Timer.Tick(time.Seconds()) {
		r.Status = pipeline.StatusLine(r.Sequencer.Mode, lights.Count, r.Timer)
		r.logger.Debugf("%s", r.Status)
	}
	if err := r.Sequencer.RenderFrame(frame); err != nil {
		if r.LastErr == nil {
			r.logger.Errorf("render: %v", err)
		}
		r.LastErr = err
		return
	}
	r.LastErr = nil
}

func gpuResizeSystem(ws *WindowState, r *Renderer, cam *core.Camera) {
	w, h := ws.windowGlfw.GetFramebufferSize()
	if w <= 0 || h <= 0 {
		return
	}
	if err := r.GPU.Resize(w, h); err != nil {
		return
	}
	ws.WindowWidth, ws.WindowHeight = w, h
	cam.Aspect = float32(w) / float32(h)
}

func windowTitleSystem(ws *WindowState, r *Renderer) {
	ws.SetTitle(r.Status)
}

func rendererShutdownSystem(r *Renderer) {
	if r.GPU != nil {
		r.GPU.Release()
	}
}
