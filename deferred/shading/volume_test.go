package shading

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lumen/deferred/core"
)

func testCamera() *core.Camera {
	cam := core.NewCamera()
	cam.Position = mgl32.Vec3{0, 0, 0}
	cam.Yaw, cam.Pitch = 0, 0
	cam.Aspect = 16.0 / 9.0
	cam.NearClip, cam.FarClip = 1, 1000
	cam.UpdateMatrices()
	return cam
}

func TestExpandCullsLightsBehindNearPlane(t *testing.T) {
	cam := testCamera()
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		r := 1 + rng.Float32()*50
		// Far edge of the sphere sits strictly in front of the near plane.
		depth := cam.NearClip - r - 0.01 - rng.Float32()*100
		light := core.PointLight{
			Position: mgl32.Vec3{rng.Float32()*200 - 100, rng.Float32()*200 - 100, -depth},
			Radius:   r,
		}
		_, ok := ExpandLightVolume(light, cam.ViewMatrix(), cam.ProjectionMatrix(), cam.NearClip)
		require.False(t, ok, "light %v should be culled", light)
	}
}

func TestExpandRejectsDegenerateRadius(t *testing.T) {
	cam := testCamera()
	for _, r := range []float32{0, -5, float32(math.NaN())} {
		_, ok := ExpandLightVolume(core.PointLight{Position: mgl32.Vec3{0, 0, -10}, Radius: r},
			cam.ViewMatrix(), cam.ProjectionMatrix(), cam.NearClip)
		assert.False(t, ok, "radius %v", r)
	}
}

func TestExpandedQuadContainsSphereSilhouette(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 300; i++ {
		cam := core.NewCamera()
		cam.Position = mgl32.Vec3{rng.Float32()*100 - 50, rng.Float32()*50, rng.Float32()*100 - 50}
		cam.Yaw = rng.Float32() * 2 * math.Pi
		cam.Pitch = rng.Float32()*1.2 - 0.6
		cam.Aspect = 0.5 + rng.Float32()*2
		cam.NearClip, cam.FarClip = 0.5+rng.Float32()*2, 5000
		cam.UpdateMatrices()

		light := core.PointLight{
			Position: cam.Position.Add(mgl32.Vec3{rng.Float32()*200 - 100, rng.Float32()*200 - 100, rng.Float32()*200 - 100}),
			Radius:   1 + rng.Float32()*60,
		}
		view, proj := cam.ViewMatrix(), cam.ProjectionMatrix()
		q, ok := ExpandLightVolume(light, view, proj, cam.NearClip)

		p := view.Mul4x1(light.Position.Vec4(1)).Vec3()
		if -p.Z()+light.Radius < cam.NearClip {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)

		w := q.Vertices[0].W()
		qz := q.Vertices[0].Z() / w
		minX, minY := q.Vertices[CornerBottomLeft].X()/w, q.Vertices[CornerBottomLeft].Y()/w
		maxX, maxY := q.Vertices[CornerTopRight].X()/w, q.Vertices[CornerTopRight].Y()/w
		for _, v := range q.Vertices {
			require.Equal(t, w, v.W())
		}

		// Sample the sphere surface and check every point beyond the near
		// plane projects inside the quad and behind it in depth.
		for s := 0; s < 400; s++ {
			dir := mgl32.Vec3{float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64())}
			if dir.Len() < 1e-6 {
				continue
			}
			pt := light.Position.Add(dir.Normalize().Mul(light.Radius))
			clip := proj.Mul4x1(view.Mul4x1(pt.Vec4(1)))
			if clip.W() < cam.NearClip {
				continue
			}
			x, y, z := clip.X()/clip.W(), clip.Y()/clip.W(), clip.Z()/clip.W()
			const eps = 1e-3
			require.GreaterOrEqual(t, x, minX-eps)
			require.LessOrEqual(t, x, maxX+eps)
			require.GreaterOrEqual(t, y, minY-eps)
			require.LessOrEqual(t, y, maxY+eps)
			require.GreaterOrEqual(t, z, qz-eps, "quad must sit in front of the sphere")
		}
	}
}

func TestExpandedQuadIsTightForCentredLight(t *testing.T) {
	cam := testCamera()
	light := core.PointLight{Position: mgl32.Vec3{0, 0, -100}, Radius: 10}
	q, ok := ExpandLightVolume(light, cam.ViewMatrix(), cam.ProjectionMatrix(), cam.NearClip)
	require.True(t, ok)

	// Centred on the axis, the front face dominates: |x| = r / (d - r) scaled by the projection.
	proj := cam.ProjectionMatrix()
	w := q.Vertices[0].W()
	assert.InDelta(t, 90, w, 1e-4)
	assert.InDelta(t, proj.At(0, 0)*10/90, q.Vertices[CornerTopRight].X()/w, 1e-5)
	assert.InDelta(t, -proj.At(1, 1)*10/90, q.Vertices[CornerBottomLeft].Y()/w, 1e-5)
}

func TestExpandClampsFrontToNearPlane(t *testing.T) {
	cam := testCamera()
	light := core.PointLight{Position: mgl32.Vec3{0, 0, -3}, Radius: 10}
	q, ok := ExpandLightVolume(light, cam.ViewMatrix(), cam.ProjectionMatrix(), cam.NearClip)
	require.True(t, ok, "camera inside the sphere still lights")
	assert.InDelta(t, cam.NearClip, q.Vertices[0].W(), 1e-5)
	assert.InDelta(t, -1, q.Vertices[0].Z()/q.Vertices[0].W(), 1e-4)
}

func TestExpandLightVolumes(t *testing.T) {
	cam := testCamera()
	lights := []core.PointLight{
		{Position: mgl32.Vec3{0, 0, -50}, Radius: 5, Color: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0, 0, 50}, Radius: 5, Color: mgl32.Vec3{0, 1, 0}}, // behind
		{Position: mgl32.Vec3{10, 0, -50}, Radius: 5, Color: mgl32.Vec3{0, 0, 1}},
	}

	verts, n := ExpandLightVolumes(nil, lights, cam.ViewMatrix(), cam.ProjectionMatrix(), cam.NearClip)
	require.Equal(t, 2, n)
	require.Len(t, verts, 8)
	for i := 0; i < 4; i++ {
		assert.Equal(t, [3]float32{1, 0, 0}, verts[i].Color)
		assert.Equal(t, [3]float32{0, 0, 1}, verts[4+i].Color)
		assert.Equal(t, float32(5), verts[4+i].Radius)
		assert.Equal(t, uint32(0), verts[i].LightIndex)
		assert.Equal(t, uint32(2), verts[4+i].LightIndex, "index survives the culled light before it")
	}

	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3, 4, 5, 6, 6, 5, 7}, QuadIndexList(2))
	buf := AppendQuadVertexBytes(nil, verts)
	require.Len(t, buf, 8*QuadVertexSize)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[4*QuadVertexSize+44:]))
}
