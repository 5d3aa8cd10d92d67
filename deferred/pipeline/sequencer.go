package pipeline

import (
	"fmt"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCleared
	PhaseEncoding  // G-buffer bound as targets
	PhaseLighting  // G-buffer bound as inputs
	PhaseComposite // output bound, G-buffer released
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCleared:
		return "cleared"
	case PhaseEncoding:
		return "encoding"
	case PhaseLighting:
		return "lighting"
	case PhaseComposite:
		return "composite"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Sequencer runs one of two fixed pass orders per frame against a Device.
type Sequencer struct {
	Mode Mode

	device     Device
	logger     Logger
	phase      Phase
	toggleHeld bool
	frames     uint64
}

func NewSequencer(device Device, mode Mode, logger Logger) *Sequencer {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Sequencer{Mode: mode, device: device, logger: logger}
}

func (s *Sequencer) Phase() Phase   { return s.phase }
func (s *Sequencer) Frames() uint64 { return s.frames }
func (s *Sequencer) Device() Device { return s.device }

// Toggle flips the mode on the rising edge of pressed and reports whether
// it did.
func (s *Sequencer) Toggle(pressed bool) bool {
	rising := pressed && !s.toggleHeld
	s.toggleHeld = pressed
	if !rising {
		return false
	}
	if s.Mode == Deferred {
		s.Mode = Forward
	} else {
		s.Mode = Deferred
	}
	s.logger.Infof("render mode: %v", s.Mode)
	return true
}

func (s *Sequencer) advance(from, to Phase, step string) {
	if s.phase != from {
		panic(fmt.Sprintf("sequencer: %s requires phase %v, current phase is %v", step, from, s.phase))
	}
	s.phase = to
}

func (s *Sequencer) expect(p Phase, step string) {
	if s.phase != p {
		panic(fmt.Sprintf("sequencer: %s requires phase %v, current phase is %v", step, p, s.phase))
	}
}

// RenderFrame issues every pass of one frame in order and presents it.
func (s *Sequencer) RenderFrame(f *Frame) error {
	s.advance(PhaseIdle, PhaseCleared, "clear depth")
	s.device.ClearDepth()

	if s.Mode == Deferred {
		s.renderDeferred(f)
	} else {
		s.renderForward(f)
	}

	s.expect(PhaseComposite, "sky")
	s.device.DrawSky(f)
	s.device.DrawBillboards(f)

	s.advance(PhaseComposite, PhaseIdle, "present")
	s.frames++
	if err := s.device.Present(); err != nil {
		return fmt.Errorf("present frame %d: %w", f.Index, err)
	}
	return nil
}

func (s *Sequencer) renderDeferred(f *Frame) {
	s.advance(PhaseCleared, PhaseEncoding, "bind gbuffer targets")
	s.device.BindGBufferTargets()
	s.device.DrawSurfaces(f)

	s.advance(PhaseEncoding, PhaseLighting, "bind gbuffer inputs")
	s.device.BindOutputTarget()
	s.device.BindGBufferInputs()
	s.device.DrawAmbient(f)
	s.device.DrawPointLights(f)

	s.advance(PhaseLighting, PhaseComposite, "unbind gbuffer inputs")
	s.device.UnbindGBufferInputs()
}

func (s *Sequencer) renderForward(f *Frame) {
	s.advance(PhaseCleared, PhaseComposite, "bind output")
	s.device.BindOutputTarget()
	s.device.DrawForward(f)
}
