package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/gekko3d/lumen"
)

func init() {
	// glfw must be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file, defaults are used when empty")
	headless := flag.Bool("headless", false, "Render with the software device, no window")
	frames := flag.Uint64("frames", 0, "Stop after this many frames (0 runs until the window closes)")
	dt := flag.Duration("dt", 0, "Fixed time step per frame, e.g. 16ms (0 uses the wall clock)")
	mode := flag.String("mode", "", "Lighting path: deferred or forward")
	width := flag.Int("width", 0, "Viewport width")
	height := flag.Int("height", 0, "Viewport height")
	out := flag.String("out", "", "Write the last software frame to this PNG")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := lumen.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = lumen.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Window.Headless = *headless
		case "frames":
			cfg.Render.Frames = *frames
		case "dt":
			cfg.Render.FixedDt = *dt
		case "mode":
			cfg.Render.Mode = *mode
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "out":
			cfg.Render.Output = *out
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app, err := build(cfg, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	app.Run()

	if c, ok := lumen.Resource[lumen.Capture](app); ok && c.Err != nil {
		os.Exit(1)
	}
}

func build(cfg lumen.Config, debug bool) (*lumen.App, error) {
	scene, err := lumen.BuildScene(cfg.Scene)
	if err != nil {
		return nil, err
	}
	w, h := cfg.Window.Width, cfg.Window.Height

	builder := lumen.NewAppBuilder().
		UseStates(lumen.StateRunning, lumen.StateExiting).
		UseModule(
			lumen.LoggingModule{Prefix: "lumen", Debug: debug},
			lumen.TimeModule{FixedStep: cfg.Render.FixedDt},
		)
	if !cfg.Window.Headless {
		builder.UseModule(
			lumen.WindowModule{Width: w, Height: h, Title: cfg.Window.Title},
			lumen.InputModule{},
		)
	}
	builder.UseModule(
		lumen.SceneModule{Scene: scene, Camera: cfg.NewCamera(w, h)},
		lumen.LightsModule{Emitter: cfg.EmitterConfig()},
	)

	device := lumen.RendererWGPU
	if cfg.Window.Headless {
		device = lumen.RendererSoftware
	} else {
		builder.UseModule(lumen.CameraModule{MoveSpeed: cfg.Camera.MoveSpeed, RotateSpeed: cfg.Camera.RotateSpeed})
	}
	builder.UseModule(
		lumen.DeferredModule{
			Device:     device,
			Mode:       cfg.RenderMode(),
			Width:      w,
			Height:     h,
			Billboards: cfg.Render.Billboards,
			HUD:        cfg.Render.HUD,
		},
		lumen.LifecycleModule{MaxFrames: cfg.Render.Frames},
	)
	if cfg.Window.Headless {
		builder.UseModule(lumen.CaptureModule{Path: cfg.Render.Output})
	} else if cfg.Render.Output != "" {
		fmt.Fprintln(os.Stderr, "-out is only honoured with -headless, ignoring")
	}

	app := builder.Build()
	return app, app.StartupError()
}
