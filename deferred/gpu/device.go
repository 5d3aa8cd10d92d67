package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
	"github.com/gekko3d/lumen/deferred/pipeline"
	"github.com/gekko3d/lumen/deferred/shading"
)

// Batches that have not been drawn for this many frames give up their buffers.
const batchEvictFrames = 600

var errNoFrame = errors.New("no surface texture acquired for this frame")

// Context is the already initialised wgpu state the device renders with.
type Context struct {
	Adapter *wgpu.Adapter
	Device  *wgpu.Device
	Queue   *wgpu.Queue
	Surface *wgpu.Surface
	Config  *wgpu.SurfaceConfiguration
}

type batchBuffers struct {
	mesh         *core.Mesh
	vertex       *wgpu.Buffer
	index        *wgpu.Buffer
	uniform      *wgpu.Buffer
	indexCount   uint32
	surfaceGroup *wgpu.BindGroup
	forwardGroup *wgpu.BindGroup
	lastFrame    uint64
}

func (b *batchBuffers) release() {
	for _, g := range []*wgpu.BindGroup{b.surfaceGroup, b.forwardGroup} {
		if g != nil {
			g.Release()
		}
	}
	for _, buf := range []*wgpu.Buffer{b.vertex, b.index, b.uniform} {
		if buf != nil {
			buf.Release()
		}
	}
}

type frameState struct {
	index         uint64
	texture       *wgpu.Texture
	view          *wgpu.TextureView
	encoder       *wgpu.CommandEncoder
	pass          *wgpu.RenderPassEncoder
	depthCleared  bool
	inputsBound   bool
	cameraWritten bool
	err           error
}

// Device runs the passes on the GPU through wgpu. The pass order is owned
// by pipeline.Sequencer; each Bind call here starts a new render pass.
type Device struct {
	Billboards     bool
	BillboardScale float32
	Stats          pipeline.DeviceStats

	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	surface *wgpu.Surface
	config  *wgpu.SurfaceConfiguration
	logger  pipeline.Logger

	surfacePipeline   *wgpu.RenderPipeline
	ambientPipeline   *wgpu.RenderPipeline
	lightPipeline     *wgpu.RenderPipeline
	forwardPipeline   *wgpu.RenderPipeline
	skyPipeline       *wgpu.RenderPipeline
	billboardPipeline *wgpu.RenderPipeline

	gbuffer      [3]*wgpu.Texture
	gbufferViews [3]*wgpu.TextureView
	depth        *wgpu.Texture
	depthView    *wgpu.TextureView

	cameraBuf    *wgpu.Buffer
	lightBuf     *wgpu.Buffer
	quadVB       *wgpu.Buffer
	quadIB       *wgpu.Buffer
	billboardVB  *wgpu.Buffer
	quadCapacity int

	cameraGroups  map[*wgpu.RenderPipeline]*wgpu.BindGroup
	ambientInputs *wgpu.BindGroup
	lightInputs   *wgpu.BindGroup

	batches    map[core.BatchId]*batchBuffers
	lightCount int
	quads      []shading.QuadVertex
	quadBytes  []byte

	frame frameState
}

func NewDevice(ctx Context, logger pipeline.Logger) (*Device, error) {
	if logger == nil {
		return nil, errors.New("gpu device requires a logger")
	}
	d := &Device{
		Billboards:     true,
		BillboardScale: 0.2,
		adapter:        ctx.Adapter,
		device:         ctx.Device,
		queue:          ctx.Queue,
		surface:        ctx.Surface,
		config:         ctx.Config,
		logger:         logger,
		cameraGroups:   make(map[*wgpu.RenderPipeline]*wgpu.BindGroup),
		batches:        make(map[core.BatchId]*batchBuffers),
	}
	if err := d.createPipelines(); err != nil {
		logger.Errorf("gpu: %v", err)
		return nil, err
	}
	if _, err := d.ensureBuffer("Camera Uniform", &d.cameraBuf, nil, wgpu.BufferUsageUniform, cameraUniformSize); err != nil {
		return nil, err
	}
	if _, err := d.ensureBuffer("Light Storage", &d.lightBuf, nil, wgpu.BufferUsageStorage, core.LightGPUSize); err != nil {
		return nil, err
	}
	if err := d.createCameraGroups(); err != nil {
		return nil, err
	}
	if err := d.createTargets(int(d.config.Width), int(d.config.Height)); err != nil {
		logger.Errorf("gpu: %v", err)
		return nil, err
	}
	logger.Infof("gpu device ready: %dx%d, surface format %v", d.config.Width, d.config.Height, d.config.Format)
	return d, nil
}

func (d *Device) Size() (int, int) { return int(d.config.Width), int(d.config.Height) }

func (d *Device) createCameraGroups() error {
	for _, g := range d.cameraGroups {
		g.Release()
	}
	clear(d.cameraGroups)
	for _, p := range []*wgpu.RenderPipeline{
		d.surfacePipeline, d.ambientPipeline, d.lightPipeline,
		d.forwardPipeline, d.skyPipeline, d.billboardPipeline,
	} {
		entries := []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.cameraBuf, Size: wgpu.WholeSize},
		}
		if p == d.forwardPipeline {
			entries = append(entries, wgpu.BindGroupEntry{Binding: 1, Buffer: d.lightBuf, Size: wgpu.WholeSize})
		}
		g, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout:  p.GetBindGroupLayout(0),
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("camera bind group: %w", err)
		}
		d.cameraGroups[p] = g
	}
	return nil
}

func (d *Device) releaseTargets() {
	for i := range d.gbuffer {
		if d.gbufferViews[i] != nil {
			d.gbufferViews[i].Release()
			d.gbuffer[i].Release()
		}
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depth.Release()
	}
	if d.ambientInputs != nil {
		d.ambientInputs.Release()
		d.lightInputs.Release()
	}
}

func (d *Device) createTexture(label string, w, h int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        format,
		Usage:         usage,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("texture %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("texture view %s: %w", label, err)
	}
	return tex, view, nil
}

func (d *Device) createTargets(w, h int) error {
	d.releaseTargets()
	labels := [3]string{"GBuffer DiffuseSpecular", "GBuffer Position", "GBuffer Normal"}
	var err error
	for i, f := range gbufferFormats {
		d.gbuffer[i], d.gbufferViews[i], err = d.createTexture(labels[i], w, h, f,
			wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
		if err != nil {
			return err
		}
	}
	d.depth, d.depthView, err = d.createTexture("Depth", w, h, depthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}

	d.ambientInputs, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: d.ambientPipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: d.gbufferViews[0]},
		},
	})
	if err != nil {
		return fmt.Errorf("ambient input bind group: %w", err)
	}
	d.lightInputs, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: d.lightPipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: d.gbufferViews[0]},
			{Binding: 1, TextureView: d.gbufferViews[1]},
			{Binding: 2, TextureView: d.gbufferViews[2]},
		},
	})
	if err != nil {
		return fmt.Errorf("light input bind group: %w", err)
	}
	return nil
}

// Resize reconfigures the surface and reallocates every screen-sized
// target. Only valid between frames.
func (d *Device) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if uint32(width) == d.config.Width && uint32(height) == d.config.Height {
		return nil
	}
	d.config.Width = uint32(width)
	d.config.Height = uint32(height)
	d.surface.Configure(d.adapter, d.device, d.config)
	if err := d.createTargets(width, height); err != nil {
		d.logger.Errorf("gpu: resize to %dx%d: %v", width, height, err)
		return err
	}
	d.logger.Debugf("gpu device resized to %dx%d", width, height)
	return nil
}

// Release frees every GPU object the device created.
func (d *Device) Release() {
	d.releaseTargets()
	for _, b := range d.batches {
		b.release()
	}
	clear(d.batches)
	for _, g := range d.cameraGroups {
		g.Release()
	}
	for _, buf := range []*wgpu.Buffer{d.cameraBuf, d.lightBuf, d.quadVB, d.quadIB, d.billboardVB} {
		if buf != nil {
			buf.Release()
		}
	}
	for _, p := range []*wgpu.RenderPipeline{
		d.surfacePipeline, d.ambientPipeline, d.lightPipeline,
		d.forwardPipeline, d.skyPipeline, d.billboardPipeline,
	} {
		if p != nil {
			p.Release()
		}
	}
}

// fail keeps the first error of the frame; Present returns it.
func (d *Device) fail(step string, err error) {
	d.logger.Errorf("gpu: %s: %v", step, err)
	if d.frame.err == nil {
		d.frame.err = fmt.Errorf("%s: %w", step, err)
	}
}

func (d *Device) recording() bool { return d.frame.encoder != nil && d.frame.err == nil }

func (d *Device) ClearDepth() {
	d.Stats = pipeline.DeviceStats{}
	d.frame = frameState{}

	tex, err := d.surface.GetCurrentTexture()
	if err != nil {
		d.fail("acquire surface texture", err)
		return
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		d.fail("surface view", err)
		return
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		tex.Release()
		d.fail("command encoder", err)
		return
	}
	d.frame.texture, d.frame.view, d.frame.encoder = tex, view, encoder
}

func (d *Device) endPass() {
	if d.frame.pass == nil {
		return
	}
	if err := d.frame.pass.End(); err != nil {
		d.fail("end render pass", err)
	}
	d.frame.pass.Release()
	d.frame.pass = nil
}

// beginPass starts a render pass on colors. The first pass of a frame
// clears depth; later passes load it.
func (d *Device) beginPass(colors []wgpu.RenderPassColorAttachment) {
	d.endPass()
	depthLoad := wgpu.LoadOpLoad
	if !d.frame.depthCleared {
		depthLoad = wgpu.LoadOpClear
		d.frame.depthCleared = true
	}
	d.frame.pass = d.frame.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: colors,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depthView,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
}

func (d *Device) BindGBufferTargets() {
	if !d.recording() {
		return
	}
	colors := make([]wgpu.RenderPassColorAttachment, len(d.gbufferViews))
	for i, v := range d.gbufferViews {
		colors[i] = wgpu.RenderPassColorAttachment{
			View:       v,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}
	}
	d.beginPass(colors)
}

func (d *Device) BindOutputTarget() {
	if !d.recording() {
		return
	}
	d.beginPass([]wgpu.RenderPassColorAttachment{{
		View:       d.frame.view,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}})
}

func (d *Device) BindGBufferInputs()   { d.frame.inputsBound = true }
func (d *Device) UnbindGBufferInputs() { d.frame.inputsBound = false }

// prepare uploads the per-frame camera uniform and light list once.
func (d *Device) prepare(f *pipeline.Frame) {
	if d.frame.cameraWritten {
		return
	}
	d.frame.cameraWritten = true
	d.frame.index = f.Index

	if f.Lights != nil {
		recreated, err := d.ensureBuffer("Light Storage", &d.lightBuf, f.Lights.Bytes(), wgpu.BufferUsageStorage, core.LightGPUSize)
		if err != nil {
			d.fail("upload lights", err)
			return
		}
		d.lightCount = f.Lights.Count
		if recreated {
			if err := d.createCameraGroups(); err != nil {
				d.fail("rebuild camera bind groups", err)
				return
			}
		}
	}

	u := CameraUniform{
		ViewProj:       f.Camera.ViewProjectionMatrix(),
		CameraPosition: f.Camera.Position,
		Ambient:        f.Scene.Ambient,
		Sky:            f.Scene.Sky,
		BillboardScale: d.BillboardScale,
		LightCount:     d.lightCount,
		Width:          int(d.config.Width),
		Height:         int(d.config.Height),
	}
	if err := d.queue.WriteBuffer(d.cameraBuf, 0, u.Bytes()); err != nil {
		d.fail("upload camera", err)
	}
}

func (d *Device) ensureBatch(b *core.DrawBatch) (*batchBuffers, error) {
	bb, ok := d.batches[b.Id]
	if ok && bb.mesh == b.Mesh {
		return bb, nil
	}
	if ok {
		bb.release()
	}
	bb = &batchBuffers{mesh: b.Mesh, indexCount: uint32(len(b.Mesh.Indices))}
	d.batches[b.Id] = bb

	var err error
	if bb.vertex, err = d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Batch Vertex Buffer",
		Contents: meshVertexBytes(b.Mesh),
		Usage:    wgpu.BufferUsageVertex,
	}); err != nil {
		return nil, err
	}
	if bb.index, err = d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Batch Index Buffer",
		Contents: indexBytes(b.Mesh.Indices),
		Usage:    wgpu.BufferUsageIndex,
	}); err != nil {
		return nil, err
	}
	if _, err = d.ensureBuffer("Batch Uniform", &bb.uniform, nil, wgpu.BufferUsageUniform, objectUniformSize); err != nil {
		return nil, err
	}
	for _, g := range []struct {
		dst **wgpu.BindGroup
		p   *wgpu.RenderPipeline
	}{{&bb.surfaceGroup, d.surfacePipeline}, {&bb.forwardGroup, d.forwardPipeline}} {
		*g.dst, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout:  g.p.GetBindGroupLayout(1),
			Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: bb.uniform, Size: wgpu.WholeSize}},
		})
		if err != nil {
			return nil, err
		}
	}
	d.logger.Debugf("gpu: uploaded batch %s (%d triangles)", b.Id, b.Mesh.TriangleCount())
	return bb, nil
}

func (d *Device) drawBatches(f *pipeline.Frame, p *wgpu.RenderPipeline, forward bool) {
	pass := d.frame.pass
	pass.SetPipeline(p)
	pass.SetBindGroup(0, d.cameraGroups[p], nil)
	for _, b := range f.Scene.VisibleBatches {
		if len(b.Mesh.Indices) == 0 {
			continue
		}
		bb, err := d.ensureBatch(b)
		if err != nil {
			d.fail(fmt.Sprintf("upload batch %s", b.Id), err)
			return
		}
		bb.lastFrame = f.Index
		if err := d.queue.WriteBuffer(bb.uniform, 0, objectUniformBytes(b)); err != nil {
			d.fail("upload batch uniform", err)
			return
		}
		if forward {
			pass.SetBindGroup(1, bb.forwardGroup, nil)
		} else {
			pass.SetBindGroup(1, bb.surfaceGroup, nil)
		}
		pass.SetVertexBuffer(0, bb.vertex, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(bb.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(bb.indexCount, 1, 0, 0, 0)
		d.Stats.Batches++
	}
}

func (d *Device) DrawSurfaces(f *pipeline.Frame) {
	if !d.recording() {
		return
	}
	d.prepare(f)
	d.drawBatches(f, d.surfacePipeline, false)
}

func (d *Device) DrawAmbient(f *pipeline.Frame) {
	if !d.recording() || !d.frame.inputsBound {
		return
	}
	d.prepare(f)
	pass := d.frame.pass
	pass.SetPipeline(d.ambientPipeline)
	pass.SetBindGroup(0, d.cameraGroups[d.ambientPipeline], nil)
	pass.SetBindGroup(1, d.ambientInputs, nil)
	pass.Draw(4, 1, 0, 0)
}

// ensureQuadIndices grows the shared quad index buffer to cover n quads.
func (d *Device) ensureQuadIndices(n int) error {
	if n <= d.quadCapacity && d.quadIB != nil {
		return nil
	}
	capacity := max(n, 2*d.quadCapacity, 256)
	if _, err := d.ensureBuffer("Quad Index Buffer", &d.quadIB, indexBytes(shading.QuadIndexList(capacity)), wgpu.BufferUsageIndex, 0); err != nil {
		return err
	}
	d.quadCapacity = capacity
	return nil
}

// DrawPointLights expands every light into a screen quad on the CPU and
// draws them all in one indexed call.
func (d *Device) DrawPointLights(f *pipeline.Frame) {
	if !d.recording() || !d.frame.inputsBound || f.Lights == nil {
		return
	}
	d.prepare(f)
	lights := f.Lights.Lights()
	var n int
	d.quads, n = shading.ExpandLightVolumes(d.quads[:0], lights,
		f.Camera.ViewMatrix(), f.Camera.ProjectionMatrix(), f.Camera.NearClip)
	d.Stats.LightQuads = n
	d.Stats.CulledLights = len(lights) - n
	if n == 0 {
		return
	}
	d.quadBytes = shading.AppendQuadVertexBytes(d.quadBytes[:0], d.quads)
	if _, err := d.ensureBuffer("Light Quad Vertices", &d.quadVB, d.quadBytes, wgpu.BufferUsageVertex, 0); err != nil {
		d.fail("upload light quads", err)
		return
	}
	if err := d.ensureQuadIndices(n); err != nil {
		d.fail("upload quad indices", err)
		return
	}
	pass := d.frame.pass
	pass.SetPipeline(d.lightPipeline)
	pass.SetBindGroup(0, d.cameraGroups[d.lightPipeline], nil)
	pass.SetBindGroup(1, d.lightInputs, nil)
	pass.SetVertexBuffer(0, d.quadVB, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(d.quadIB, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(n*6), 1, 0, 0, 0)
}

func (d *Device) DrawForward(f *pipeline.Frame) {
	if !d.recording() {
		return
	}
	d.prepare(f)
	d.drawBatches(f, d.forwardPipeline, true)
}

func (d *Device) DrawSky(f *pipeline.Frame) {
	if !d.recording() {
		return
	}
	d.prepare(f)
	pass := d.frame.pass
	pass.SetPipeline(d.skyPipeline)
	pass.SetBindGroup(0, d.cameraGroups[d.skyPipeline], nil)
	pass.Draw(4, 1, 0, 0)
}

func (d *Device) DrawBillboards(f *pipeline.Frame) {
	if !d.Billboards || !d.recording() || f.Lights == nil || f.Lights.Count == 0 {
		return
	}
	d.prepare(f)
	lights := f.Lights.Lights()
	data := billboardVertexBytes(lights, f.Camera.GetRight(), billboardUp(f.Camera), d.BillboardScale)
	if _, err := d.ensureBuffer("Billboard Vertices", &d.billboardVB, data, wgpu.BufferUsageVertex, 0); err != nil {
		d.fail("upload billboards", err)
		return
	}
	if err := d.ensureQuadIndices(len(lights)); err != nil {
		d.fail("upload quad indices", err)
		return
	}
	pass := d.frame.pass
	pass.SetPipeline(d.billboardPipeline)
	pass.SetBindGroup(0, d.cameraGroups[d.billboardPipeline], nil)
	pass.SetVertexBuffer(0, d.billboardVB, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(d.quadIB, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(len(lights)*6), 1, 0, 0, 0)
}

// Present submits the frame and hands the surface texture to the
// compositor. It returns the first error raised while recording.
func (d *Device) Present() error {
	defer d.endFrame()
	if d.frame.encoder == nil {
		if d.frame.err != nil {
			return d.frame.err
		}
		return errNoFrame
	}
	d.endPass()
	cmd, err := d.frame.encoder.Finish(nil)
	if err != nil {
		d.fail("finish command encoder", err)
		return d.frame.err
	}
	d.queue.Submit(cmd)
	cmd.Release()
	d.surface.Present()
	d.evictBatches()
	return d.frame.err
}

func (d *Device) endFrame() {
	if d.frame.pass != nil {
		d.frame.pass.Release()
	}
	if d.frame.encoder != nil {
		d.frame.encoder.Release()
	}
	if d.frame.view != nil {
		d.frame.view.Release()
	}
	if d.frame.texture != nil {
		d.frame.texture.Release()
	}
	d.frame.pass, d.frame.encoder, d.frame.view, d.frame.texture = nil, nil, nil, nil
}

func (d *Device) evictBatches() {
	for id, bb := range d.batches {
		if d.frame.index > bb.lastFrame+batchEvictFrames {
			bb.release()
			delete(d.batches, id)
		}
	}
}

// billboardUp is the screen-up axis billboards are built along.
func billboardUp(c *core.Camera) mgl32.Vec3 {
	return c.GetRight().Cross(c.GetForward())
}

var _ pipeline.Device = (*Device)(nil)
