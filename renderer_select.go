package lumen

import (
	"github.com/gekko3d/lumen/deferred/pipeline"
)

// RendererName identifies a render device.
type RendererName string

const (
	RendererSoftware RendererName = "software"
	RendererWGPU     RendererName = "wgpu"
)

// UseSoftware installs the CPU renderer drawing into a width×height image.
func (app *App) UseSoftware(width, height int, mode pipeline.Mode) *App {
	return app.UseModules(DeferredModule{
		Device:     RendererSoftware,
		Mode:       mode,
		Width:      width,
		Height:     height,
		Billboards: true,
		HUD:        true,
	})
}

// UseWGPU opens a window and installs the wgpu renderer on it.
func (app *App) UseWGPU(width, height int, title string, mode pipeline.Mode) *App {
	return app.UseModules(
		WindowModule{Width: width, Height: height, Title: title},
		DeferredModule{Device: RendererWGPU, Mode: mode, Billboards: true},
	)
}
