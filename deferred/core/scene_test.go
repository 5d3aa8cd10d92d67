package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeEnough(a, b, eps float32) bool {
	d := a - b
	return d < eps && d > -eps
}

func TestTransformComposition(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{10, 20, 30}
	tr.Scale = mgl32.Vec3{2, 2, 2}
	tr.Rotation = mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})

	identity := tr.ObjectToWorld().Mul4(tr.WorldToObject())
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := float32(0)
			if i == j {
				want = 1
			}
			if !closeEnough(identity.At(i, j), want, 0.001) {
				t.Errorf("element [%d,%d] should be %f, got %f", i, j, want, identity.At(i, j))
			}
		}
	}
}

func TestNormalMatrixKeepsNormalsPerpendicular(t *testing.T) {
	tr := NewTransform()
	tr.Scale = mgl32.Vec3{4, 1, 1}
	tr.Rotation = mgl32.QuatRotate(0.3, mgl32.Vec3{0, 0, 1})

	// A surface tangent (1,1,0) with normal (1,-1,0).
	tangent := tr.ObjectToWorld().Mul4x1(mgl32.Vec4{1, 1, 0, 0}).Vec3()
	normal := tr.NormalMatrix().Mul3x1(mgl32.Vec3{1, -1, 0})
	assert.InDelta(t, 0, tangent.Dot(normal), 1e-4)
}

func TestMeshOrientation(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *Mesh
		triangles int
	}{
		{name: "box", mesh: CreateBoxMesh(2, 4, 6, mgl32.Vec3{1, 1, 1}), triangles: 12},
		// Pole rows contribute one triangle per slice.
		{name: "sphere", mesh: CreateSphereMesh(3, 12, 8, mgl32.Vec3{1, 1, 1}), triangles: 12*2 + 12*6*2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.mesh
			require.Equal(t, tc.triangles, m.TriangleCount())
			for i := 0; i < len(m.Indices); i += 3 {
				a := m.Vertices[m.Indices[i]].Position
				b := m.Vertices[m.Indices[i+1]].Position
				c := m.Vertices[m.Indices[i+2]].Position
				face := b.Sub(a).Cross(c.Sub(a))
				centroid := a.Add(b).Add(c).Mul(1.0 / 3)
				assert.Greater(t, face.Dot(centroid), float32(0), "triangle %d should wind outward", i/3)
			}
		})
	}
}

func TestPlaneMesh(t *testing.T) {
	m := CreatePlaneMesh(100, 50, 4, mgl32.Vec3{0.5, 0.5, 0.5})
	assert.Equal(t, 25, len(m.Vertices))
	assert.Equal(t, 32, m.TriangleCount())

	b := m.Bounds()
	assert.Equal(t, mgl32.Vec3{-50, 0, -25}, b[0])
	assert.Equal(t, mgl32.Vec3{50, 0, 25}, b[1])
	for _, v := range m.Vertices {
		assert.Equal(t, mgl32.Vec3{0, 1, 0}, v.Normal)
	}
}

func TestSceneCommitCulls(t *testing.T) {
	scene := NewScene()

	near := NewDrawBatch(CreateBoxMesh(1, 1, 1, mgl32.Vec3{1, 1, 1}), DefaultMaterial())
	near.Transform.Position = mgl32.Vec3{0, 0, -10}

	behind := NewDrawBatch(CreateBoxMesh(1, 1, 1, mgl32.Vec3{1, 1, 1}), DefaultMaterial())
	behind.Transform.Position = mgl32.Vec3{0, 0, 10}

	scene.AddBatch(near)
	scene.AddBatch(behind)
	require.NotEqual(t, near.Id, behind.Id)

	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	scene.Commit(ExtractFrustum(proj.Mul4(view)))

	require.Len(t, scene.VisibleBatches, 1)
	assert.Equal(t, near.Id, scene.VisibleBatches[0].Id)

	require.NotNil(t, near.WorldAABB)
	assert.InDelta(t, -10.5, near.WorldAABB[0].Z(), 1e-4)
	assert.InDelta(t, -9.5, near.WorldAABB[1].Z(), 1e-4)
	assert.False(t, near.Transform.Dirty)

	scene.RemoveBatch(near.Id)
	scene.Commit(ExtractFrustum(proj.Mul4(view)))
	assert.Empty(t, scene.VisibleBatches)
}

func TestMaterial(t *testing.T) {
	m := NewMaterial(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0.3, 0.6, 0.9}, 0)
	assert.InDelta(t, 0.6, m.SpecularIntensity(), 1e-6)
	assert.Equal(t, float32(DefaultSpecularPower), m.Power())

	m.SpecularPower = 8
	assert.Equal(t, float32(8), m.Power())
}
