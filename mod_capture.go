package lumen

import (
	"errors"
	"fmt"
	"image/png"
	"os"
)

// Capture records where the last image went and whether writing it failed.
type Capture struct {
	Path string
	Err  error
}

// CaptureModule writes the software device's final image as a PNG when
// the app exits.
type CaptureModule struct {
	Path string
}

func (m CaptureModule) Install(app *App, cmd *Commands) {
	if m.Path == "" {
		return
	}
	if !app.stateful {
		app.reportStartupError("capture", errors.New("capture needs a stateful app to know when to write"))
		return
	}
	cmd.AddResources(&Capture{Path: m.Path})
	app.UseSystem(System(captureSystem).InStage(PostRender).InState(OnEnter(app.finalState)))
}

func captureSystem(r *Renderer, c *Capture, cmd *Commands) {
	c.Err = writeCapture(r, c.Path)
	if c.Err != nil {
		cmd.Logger().Errorf("capture: %v", c.Err)
		return
	}
	cmd.Logger().Infof("capture: wrote %s", c.Path)
}

func writeCapture(r *Renderer, path string) error {
	if r.Software == nil {
		return errors.New("only the software renderer can be captured")
	}
	img := r.Software.Output()
	if img == nil {
		return errors.New("no frame has been rendered")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img.ToRGBA()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
