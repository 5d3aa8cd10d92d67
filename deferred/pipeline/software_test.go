package pipeline

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/deferred/core"
	"github.com/gekko3d/lumen/deferred/raster"
)

const (
	testWidth  = 64
	testHeight = 48
)

type testWorld struct {
	camera *core.Camera
	scene  *core.Scene
	floor  core.Material
}

func newTestWorld() *testWorld {
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 10, 30}
	cam.Yaw = 0
	cam.Pitch = float32(math.Atan2(10, 30))
	cam.Aspect = float32(testWidth) / testHeight
	cam.NearClip, cam.FarClip = 1, 500
	cam.UpdateMatrices()

	floor := core.NewMaterial(mgl32.Vec3{0.8, 0.6, 0.4}, mgl32.Vec3{0.5, 0.5, 0.5}, 16)
	scene := core.NewScene()
	scene.AddBatch(core.NewDrawBatch(core.CreatePlaneMesh(60, 60, 2, mgl32.Vec3{1, 1, 1}), floor))

	box := core.NewDrawBatch(core.CreateBoxMesh(4, 4, 4, mgl32.Vec3{0.9, 0.9, 1}), core.NewMaterial(mgl32.Vec3{0.3, 0.7, 0.3}, mgl32.Vec3{0.9, 0.9, 0.9}, 64))
	box.Transform.Position = mgl32.Vec3{2, 2, 0}
	box.Transform.Rotation = mgl32.QuatRotate(0.6, mgl32.Vec3{0, 1, 0})
	scene.AddBatch(box)

	scene.Commit(core.ExtractFrustum(cam.ViewProjectionMatrix()))
	return &testWorld{camera: cam, scene: scene, floor: floor}
}

func randomLights(seed uint64, n int) []core.PointLight {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	lights := make([]core.PointLight, n)
	for i := range lights {
		lights[i] = core.PointLight{
			Position: mgl32.Vec3{rng.Float32()*24 - 12, 0.5 + rng.Float32()*5, rng.Float32()*24 - 12},
			Radius:   6 + rng.Float32()*10,
			Color:    mgl32.Vec3{0.4 + rng.Float32()*0.6, 0.4 + rng.Float32()*0.6, 0.4 + rng.Float32()*0.6},
		}
	}
	return lights
}

func (w *testWorld) render(t *testing.T, mode Mode, lights []core.PointLight) (*SoftwareDevice, []mgl32.Vec4) {
	t.Helper()
	dev := NewSoftwareDevice(testWidth, testHeight, nil)
	dev.Billboards = false

	mirror := core.NewLightBuffer(len(lights))
	mirror.UploadLights(lights)

	seq := NewSequencer(dev, mode, nil)
	require.NoError(t, seq.RenderFrame(&Frame{Camera: w.camera, Scene: w.scene, Lights: mirror}))
	return dev, slices.Clone(dev.Output().Pix)
}

func TestAmbientOnlyIsAlbedoTimesAmbient(t *testing.T) {
	w := newTestWorld()
	dev, pix := w.render(t, Deferred, nil)

	albedo := dev.GBuffer().Targets[raster.GBufferDiffuseSpecular].Peek()
	depth := dev.Depth()
	ambient := w.scene.Ambient

	covered := 0
	for i, p := range pix {
		if depth.Depth[i] >= 1 {
			continue
		}
		covered++
		a := albedo.Pix[i]
		want := mgl32.Vec3{a[0] * ambient[0], a[1] * ambient[1], a[2] * ambient[2]}
		require.Equal(t, want, p.Vec3(), "pixel %d", i)
	}
	require.NotZero(t, covered)

	// Bottom centre of the screen is floor.
	bottom := (testHeight-1)*testWidth + testWidth/2
	want := mgl32.Vec3{0.8 * ambient[0], 0.6 * ambient[1], 0.4 * ambient[2]}
	assert.True(t, want.ApproxEqualThreshold(pix[bottom].Vec3(), 1e-6), "got %v", pix[bottom])
}

func TestForwardMatchesDeferred(t *testing.T) {
	w := newTestWorld()
	lights := randomLights(42, 24)

	deferredDev, deferred := w.render(t, Deferred, lights)
	_, forward := w.render(t, Forward, lights)
	_, unlit := w.render(t, Deferred, nil)

	require.NotZero(t, deferredDev.Stats.LightQuads)
	lit := 0
	for i := range deferred {
		for c := 0; c < 3; c++ {
			a, b := deferred[i][c], forward[i][c]
			tol := 0.01*max(abs32(a), abs32(b)) + 1e-4
			require.InDelta(t, a, b, float64(tol), "pixel %d channel %d", i, c)
		}
		if deferred[i].X() > unlit[i].X()+1e-3 {
			lit++
		}
	}
	assert.NotZero(t, lit, "some pixels should receive point light")
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestDeferredIsOrderIndependent(t *testing.T) {
	w := newTestWorld()
	lights := randomLights(7, 16)
	reversed := slices.Clone(lights)
	slices.Reverse(reversed)

	_, a := w.render(t, Deferred, lights)
	_, b := w.render(t, Deferred, reversed)
	for i := range a {
		require.True(t, a[i].ApproxEqualThreshold(b[i], 1e-5), "pixel %d: %v vs %v", i, a[i], b[i])
	}
}

func TestLightsBehindCameraAreCulled(t *testing.T) {
	w := newTestWorld()
	lights := []core.PointLight{
		{Position: mgl32.Vec3{0, 2, 0}, Radius: 10, Color: mgl32.Vec3{1, 1, 1}},
		{Position: mgl32.Vec3{0, 10, 80}, Radius: 10, Color: mgl32.Vec3{1, 1, 1}},
	}
	dev, _ := w.render(t, Deferred, lights)
	assert.Equal(t, 1, dev.Stats.LightQuads)
	assert.Equal(t, 1, dev.Stats.CulledLights)
}

func TestSkyFillsBackgroundOnly(t *testing.T) {
	w := newTestWorld()
	dev, pix := w.render(t, Forward, nil)

	depth := dev.Depth()
	for i, p := range pix {
		if depth.Depth[i] < 1 {
			continue
		}
		assert.NotEqual(t, mgl32.Vec3{}, p.Vec3(), "background pixel %d should be sky", i)
	}
	// Top row looks above the horizon.
	assert.Equal(t, float32(1), depth.Depth[testWidth/2])
}

func TestBillboardsAddLight(t *testing.T) {
	w := newTestWorld()
	light := core.PointLight{Position: mgl32.Vec3{0, 6, 10}, Radius: 20, Color: mgl32.Vec3{1, 0.5, 0.2}}

	dev := NewSoftwareDevice(testWidth, testHeight, nil)
	mirror := core.NewLightBuffer(1)
	mirror.UploadLights([]core.PointLight{light})
	frame := &Frame{Camera: w.camera, Scene: w.scene, Lights: mirror}

	seq := NewSequencer(dev, Forward, nil)
	require.NoError(t, seq.RenderFrame(frame))
	with := slices.Clone(dev.Output().Pix)

	dev.Billboards = false
	require.NoError(t, seq.RenderFrame(frame))
	without := dev.Output().Pix

	centre := w.camera.ViewProjectionMatrix().Mul4x1(light.Position.Vec4(1))
	x := int((centre.X()/centre.W()*0.5 + 0.5) * testWidth)
	y := int((0.5 - centre.Y()/centre.W()*0.5) * testHeight)
	i := y*testWidth + x
	assert.Greater(t, with[i].X(), without[i].X())
}

func TestPresentRunsOverlayThenHandsOff(t *testing.T) {
	w := newTestWorld()
	dev := NewSoftwareDevice(testWidth, testHeight, nil)

	var order []string
	dev.Overlay = func(img *raster.Image) {
		order = append(order, "overlay")
		img.SetPixel(0, 0, mgl32.Vec4{1, 0, 1, 1})
	}
	dev.OnPresent = func(img *raster.Image) error {
		order = append(order, "present")
		assert.Equal(t, mgl32.Vec4{1, 0, 1, 1}, img.Pixel(0, 0))
		return nil
	}

	seq := NewSequencer(dev, Deferred, nil)
	require.NoError(t, seq.RenderFrame(&Frame{Camera: w.camera, Scene: w.scene, Lights: core.NewLightBuffer(0)}))
	assert.Equal(t, []string{"overlay", "present"}, order)
}

func TestSoftwareDeviceEnforcesBindings(t *testing.T) {
	w := newTestWorld()
	dev := NewSoftwareDevice(testWidth, testHeight, nil)
	frame := &Frame{Camera: w.camera, Scene: w.scene, Lights: core.NewLightBuffer(0)}

	assert.Panics(t, func() { dev.DrawSurfaces(frame) }, "surfaces need bound targets")

	dev.BindGBufferTargets()
	assert.Panics(t, func() { dev.BindGBufferInputs() }, "targets must be released first")
}

func TestSoftwareDeviceResize(t *testing.T) {
	dev := NewSoftwareDevice(8, 8, nil)
	dev.Billboards = false
	dev.Resize(16, 4)
	assert.Equal(t, 16, dev.Output().Width)
	assert.Equal(t, 4, dev.GBuffer().Height)
	assert.False(t, dev.Billboards)
}
