package raster

import "fmt"

const (
	GBufferDiffuseSpecular = iota // albedo.rgb, specular intensity
	GBufferWorldPosition          // world position.xyz, specular power
	GBufferWorldNormal            // world normal.xyz
	GBufferTargetCount
)

var gbufferNames = [GBufferTargetCount]string{"DiffuseSpecular", "WorldPosition", "WorldNormal"}

// GBuffer holds the three full-screen surface attribute images.
type GBuffer struct {
	Width, Height int
	Targets       [GBufferTargetCount]*ImageResource
}

func NewGBuffer(width, height int) *GBuffer {
	g := &GBuffer{Width: width, Height: height}
	for i := range g.Targets {
		g.Targets[i] = NewImageResource(gbufferNames[i], width, height)
	}
	return g
}

// BindTargets binds all three images as render targets and clears them.
func (g *GBuffer) BindTargets() []*Image {
	out := make([]*Image, GBufferTargetCount)
	for i, t := range g.Targets {
		t.BindForWriting()
		out[i] = t.Target()
		out[i].Fill([4]float32{})
	}
	return out
}

// BindInputs binds all three images as shader inputs.
func (g *GBuffer) BindInputs() [GBufferTargetCount]*Image {
	var out [GBufferTargetCount]*Image
	for i, t := range g.Targets {
		t.BindForReading()
		out[i] = t.Input()
	}
	return out
}

func (g *GBuffer) Unbind() {
	for _, t := range g.Targets {
		t.Unbind()
	}
}

// Resize reallocates the images. Panics if any image is bound.
func (g *GBuffer) Resize(width, height int) {
	for _, t := range g.Targets {
		if t.State() != Unbound {
			panic(fmt.Sprintf("gbuffer: resize while %q is %v", t.Name, t.State()))
		}
	}
	*g = *NewGBuffer(width, height)
}
