package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
	"github.com/gekko3d/lumen/deferred/raster"
	"github.com/gekko3d/lumen/deferred/shading"
)

// DeviceStats counts work done by the passes of the last frame.
type DeviceStats struct {
	Batches      int
	LightQuads   int
	CulledLights int
	Fragments    int
}

// SoftwareDevice runs every pass on the CPU rasterizer.
type SoftwareDevice struct {
	Width, Height  int
	Billboards     bool
	BillboardScale float32

	// Overlay draws onto the finished image before it is handed to OnPresent.
	Overlay   func(img *raster.Image)
	OnPresent func(img *raster.Image) error

	Stats DeviceStats

	gbuffer *raster.GBuffer
	output  *raster.ImageResource
	depth   *raster.DepthBuffer
	rast    *raster.Rasterizer
	inputs  [raster.GBufferTargetCount]*raster.Image
	logger  Logger
}

func NewSoftwareDevice(width, height int, logger Logger) *SoftwareDevice {
	if logger == nil {
		logger = nopLogger{}
	}
	return &SoftwareDevice{
		Width:          width,
		Height:         height,
		Billboards:     true,
		BillboardScale: 0.2,
		gbuffer:        raster.NewGBuffer(width, height),
		output:         raster.NewImageResource("Output", width, height),
		depth:          raster.NewDepthBuffer(width, height),
		rast:           raster.NewRasterizer(width, height),
		logger:         logger,
	}
}

// Resize reallocates all targets. Only valid between frames.
func (d *SoftwareDevice) Resize(width, height int) {
	if width == d.Width && height == d.Height {
		return
	}
	d.gbuffer.Resize(width, height)
	*d = SoftwareDevice{
		Width:          width,
		Height:         height,
		Billboards:     d.Billboards,
		BillboardScale: d.BillboardScale,
		Overlay:        d.Overlay,
		OnPresent:      d.OnPresent,
		gbuffer:        d.gbuffer,
		output:         raster.NewImageResource("Output", width, height),
		depth:          raster.NewDepthBuffer(width, height),
		rast:           raster.NewRasterizer(width, height),
		logger:         d.logger,
	}
	d.logger.Debugf("software device resized to %dx%d", width, height)
}

// Output is the most recently presented image.
func (d *SoftwareDevice) Output() *raster.Image { return d.output.Peek() }

// GBuffer exposes the surface attribute images for inspection.
func (d *SoftwareDevice) GBuffer() *raster.GBuffer { return d.gbuffer }

func (d *SoftwareDevice) Depth() *raster.DepthBuffer { return d.depth }

func (d *SoftwareDevice) ClearDepth() {
	d.Stats = DeviceStats{}
	d.rast.ResetStats()
	d.depth.Clear(1)
}

func (d *SoftwareDevice) BindGBufferTargets() {
	d.gbuffer.BindTargets()
}

func (d *SoftwareDevice) BindOutputTarget() {
	// Surfaces are finished once the output is bound.
	for _, t := range d.gbuffer.Targets {
		if t.State() == raster.BoundForWriting {
			t.Unbind()
		}
	}
	d.output.BindForWriting()
	d.output.Target().Fill(mgl32.Vec4{0, 0, 0, 1})
}

func (d *SoftwareDevice) BindGBufferInputs() {
	d.inputs = d.gbuffer.BindInputs()
}

func (d *SoftwareDevice) UnbindGBufferInputs() {
	d.gbuffer.Unbind()
	d.inputs = [raster.GBufferTargetCount]*raster.Image{}
}

func vec3(v []float32) mgl32.Vec3 { return mgl32.Vec3{v[0], v[1], v[2]} }

// Surface varyings: world position, world normal, vertex colour.
const surfaceVaryings = 9

func (d *SoftwareDevice) transformBatch(b *core.DrawBatch, viewProj mgl32.Mat4) []raster.ClipVertex {
	model := b.Transform.ObjectToWorld()
	normalMat := b.Transform.NormalMatrix()
	mvp := viewProj.Mul4(model)

	verts := make([]raster.ClipVertex, len(b.Mesh.Vertices))
	varyings := make([]float32, len(b.Mesh.Vertices)*surfaceVaryings)
	for i, v := range b.Mesh.Vertices {
		wp := model.Mul4x1(v.Position.Vec4(1)).Vec3()
		wn := normalMat.Mul3x1(v.Normal)
		vs := varyings[i*surfaceVaryings : (i+1)*surfaceVaryings]
		copy(vs[0:3], wp[:])
		copy(vs[3:6], wn[:])
		copy(vs[6:9], v.Color[:])
		verts[i] = raster.ClipVertex{Position: mvp.Mul4x1(v.Position.Vec4(1)), Varyings: vs}
	}
	return verts
}

func (d *SoftwareDevice) drawScene(f *Frame, st *raster.State, shade func(rec shading.PixelRecord, out []mgl32.Vec4)) {
	viewProj := f.Camera.ViewProjectionMatrix()
	for _, b := range f.Scene.VisibleBatches {
		mat := b.Material
		verts := d.transformBatch(b, viewProj)
		d.rast.DrawIndexed(st, verts, b.Mesh.Indices, func(fr *raster.Fragment, out []mgl32.Vec4) bool {
			v := fr.Varyings
			shade(shading.SurfaceRecord(mat, vec3(v[6:9]), vec3(v[0:3]), vec3(v[3:6])), out)
			return true
		})
		d.Stats.Batches++
	}
	d.Stats.Fragments = d.rast.FragmentsRun
}

// DrawSurfaces writes pixel records for every visible batch.
func (d *SoftwareDevice) DrawSurfaces(f *Frame) {
	targets := make([]*raster.Image, raster.GBufferTargetCount)
	for i, t := range d.gbuffer.Targets {
		targets[i] = t.Target()
	}
	st := &raster.State{
		Targets:      targets,
		Depth:        d.depth,
		DepthCompare: raster.CompareLess,
		DepthWrite:   true,
		Blend:        raster.BlendOpaque,
		Cull:         raster.CullBack,
	}
	d.drawScene(f, st, func(rec shading.PixelRecord, out []mgl32.Vec4) {
		texels := shading.EncodeSurface(rec)
		copy(out, texels[:])
	})
}

func fullScreenStrip(z float32) []raster.ClipVertex {
	return []raster.ClipVertex{
		{Position: mgl32.Vec4{-1, -1, z, 1}, Varyings: []float32{-1, -1}},
		{Position: mgl32.Vec4{-1, 1, z, 1}, Varyings: []float32{-1, 1}},
		{Position: mgl32.Vec4{1, -1, z, 1}, Varyings: []float32{1, -1}},
		{Position: mgl32.Vec4{1, 1, z, 1}, Varyings: []float32{1, 1}},
	}
}

func (d *SoftwareDevice) uv(fr *raster.Fragment) mgl32.Vec2 {
	return mgl32.Vec2{fr.FragCoord.X() / float32(d.Width), fr.FragCoord.Y() / float32(d.Height)}
}

func (d *SoftwareDevice) sample(uv mgl32.Vec2) [raster.GBufferTargetCount]mgl32.Vec4 {
	var texels [raster.GBufferTargetCount]mgl32.Vec4
	for i, img := range d.inputs {
		texels[i] = img.SampleNearest(uv)
	}
	return texels
}

// DrawAmbient overwrites the output with albedo × ambient.
func (d *SoftwareDevice) DrawAmbient(f *Frame) {
	ambient := f.Scene.Ambient
	albedo := d.inputs[raster.GBufferDiffuseSpecular]
	st := &raster.State{Targets: []*raster.Image{d.output.Target()}, Blend: raster.BlendOpaque}
	d.rast.DrawStrip(st, fullScreenStrip(0), func(fr *raster.Fragment, out []mgl32.Vec4) bool {
		rec := shading.PixelRecord{Albedo: albedo.SampleNearest(d.uv(fr)).Vec3()}
		out[0] = shading.ShadeAmbient(rec, ambient).Vec4(1)
		return true
	})
}

// DrawPointLights draws one bounding quad per light and adds its lighting.
func (d *SoftwareDevice) DrawPointLights(f *Frame) {
	view, proj := f.Camera.ViewMatrix(), f.Camera.ProjectionMatrix()
	camPos := f.Camera.Position
	st := &raster.State{
		Targets:      []*raster.Image{d.output.Target()},
		Depth:        d.depth,
		DepthCompare: raster.CompareLessEqual,
		DepthWrite:   false,
		Blend:        raster.BlendAdditive,
		Cull:         raster.CullNone,
	}

	quad := make([]raster.ClipVertex, 4)
	lights := f.Lights.Lights()
	for li, l := range lights {
		q, ok := shading.ExpandLightVolume(l, view, proj, f.Camera.NearClip)
		if !ok {
			d.Stats.CulledLights++
			continue
		}
		q.Index = li
		light := lights[q.Index]
		for i, v := range q.Vertices {
			quad[i] = raster.ClipVertex{Position: v}
		}
		d.rast.DrawStrip(st, quad, func(fr *raster.Fragment, out []mgl32.Vec4) bool {
			rec := shading.DecodeSurface(d.sample(d.uv(fr)))
			c, lit := shading.ShadePointLight(rec, light, camPos)
			if !lit {
				return false
			}
			out[0] = c.Vec4(0)
			return true
		})
		d.Stats.LightQuads++
	}
	d.Stats.Fragments = d.rast.FragmentsRun
}

// DrawForward lights every surface fragment against the full light list.
func (d *SoftwareDevice) DrawForward(f *Frame) {
	lights := f.Lights.Lights()
	ambient := f.Scene.Ambient
	camPos := f.Camera.Position
	st := &raster.State{
		Targets:      []*raster.Image{d.output.Target()},
		Depth:        d.depth,
		DepthCompare: raster.CompareLess,
		DepthWrite:   true,
		Blend:        raster.BlendOpaque,
		Cull:         raster.CullBack,
	}
	d.drawScene(f, st, func(rec shading.PixelRecord, out []mgl32.Vec4) {
		out[0] = shading.ShadeForward(rec, lights, ambient, camPos).Vec4(1)
	})
}

// DrawSky fills pixels whose depth is still at the far plane.
func (d *SoftwareDevice) DrawSky(f *Frame) {
	sky := f.Scene.Sky
	invViewProj := f.Camera.ViewProjectionMatrix().Inv()
	camPos := f.Camera.Position
	st := &raster.State{
		Targets:      []*raster.Image{d.output.Target()},
		Depth:        d.depth,
		DepthCompare: raster.CompareLessEqual,
		Blend:        raster.BlendOpaque,
	}
	d.rast.DrawStrip(st, fullScreenStrip(1), func(fr *raster.Fragment, out []mgl32.Vec4) bool {
		p := invViewProj.Mul4x1(mgl32.Vec4{fr.Varyings[0], fr.Varyings[1], 1, 1})
		dir := p.Vec3().Mul(1 / p.W()).Sub(camPos).Normalize()
		out[0] = SkyColor(sky, dir).Vec4(1)
		return true
	})
}

// SkyColor blends from horizon to zenith with the elevation of dir.
func SkyColor(sky core.Sky, dir mgl32.Vec3) mgl32.Vec3 {
	t := mgl32.Clamp(dir.Y(), 0, 1)
	return sky.Horizon.Mul(1 - t).Add(sky.Zenith.Mul(t))
}

// DrawBillboards adds a camera-facing flare for every light.
func (d *SoftwareDevice) DrawBillboards(f *Frame) {
	if !d.Billboards || f.Lights == nil {
		return
	}
	viewProj := f.Camera.ViewProjectionMatrix()
	right := f.Camera.GetRight()
	up := right.Cross(f.Camera.GetForward())
	st := &raster.State{
		Targets:      []*raster.Image{d.output.Target()},
		Depth:        d.depth,
		DepthCompare: raster.CompareLess,
		Blend:        raster.BlendAdditive,
	}

	quad := make([]raster.ClipVertex, 4)
	corners := [4][2]float32{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	for _, light := range f.Lights.Lights() {
		size := light.Radius * d.BillboardScale
		for i, c := range corners {
			p := light.Position.Add(right.Mul(c[0] * size)).Add(up.Mul(c[1] * size))
			quad[i] = raster.ClipVertex{Position: viewProj.Mul4x1(p.Vec4(1)), Varyings: []float32{c[0], c[1]}}
		}
		color := light.Color
		d.rast.DrawStrip(st, quad, func(fr *raster.Fragment, out []mgl32.Vec4) bool {
			u, v := fr.Varyings[0], fr.Varyings[1]
			r2 := u*u + v*v
			if r2 >= 1 {
				return false
			}
			a := (1 - r2) * (1 - r2) * 0.6
			out[0] = color.Mul(a).Vec4(0)
			return true
		})
	}
}

// Present releases the output, runs the overlay and hands the image on.
func (d *SoftwareDevice) Present() error {
	d.output.Unbind()
	img := d.output.Peek()
	if d.Overlay != nil {
		d.Overlay(img)
	}
	if d.OnPresent != nil {
		return d.OnPresent(img)
	}
	return nil
}

var _ Device = (*SoftwareDevice)(nil)
