package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
}

// Mesh is an indexed triangle list. Front faces wind counter-clockwise.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// Bounds returns the object-space AABB. An empty mesh yields min > max.
func (m *Mesh) Bounds() [2]mgl32.Vec3 {
	inf := float32(math.Inf(1))
	b := [2]mgl32.Vec3{{inf, inf, inf}, {-inf, -inf, -inf}}
	for _, v := range m.Vertices {
		for a := 0; a < 3; a++ {
			b[0][a] = min(b[0][a], v.Position[a])
			b[1][a] = max(b[1][a], v.Position[a])
		}
	}
	return b
}

// addTriangle appends a triangle, flipping it if needed so the geometric
// normal agrees with the vertex normals.
func (m *Mesh) addTriangle(a, b, c uint32) {
	pa, pb, pc := m.Vertices[a], m.Vertices[b], m.Vertices[c]
	face := pb.Position.Sub(pa.Position).Cross(pc.Position.Sub(pa.Position))
	avg := pa.Normal.Add(pb.Normal).Add(pc.Normal)
	if face.Dot(avg) < 0 {
		b, c = c, b
	}
	m.Indices = append(m.Indices, a, b, c)
}

// addGrid appends a subdivided quad centred on c spanning ±u and ±v.
// The face normal is u×v.
func (m *Mesh) addGrid(c, u, v mgl32.Vec3, segments int, color mgl32.Vec3) {
	if segments < 1 {
		segments = 1
	}
	n := u.Cross(v).Normalize()
	base := uint32(len(m.Vertices))
	stride := uint32(segments + 1)
	for i := 0; i <= segments; i++ {
		for j := 0; j <= segments; j++ {
			fu := 2*float32(i)/float32(segments) - 1
			fv := 2*float32(j)/float32(segments) - 1
			m.Vertices = append(m.Vertices, Vertex{
				Position: c.Add(u.Mul(fu)).Add(v.Mul(fv)),
				Normal:   n,
				Color:    color,
			})
		}
	}
	for i := uint32(0); i < uint32(segments); i++ {
		for j := uint32(0); j < uint32(segments); j++ {
			i00 := base + i*stride + j
			i10 := base + (i+1)*stride + j
			i11 := base + (i+1)*stride + j + 1
			i01 := base + i*stride + j + 1
			m.addTriangle(i00, i10, i11)
			m.addTriangle(i00, i11, i01)
		}
	}
}

// CreatePlaneMesh builds a horizontal plane facing +Y, centred on the origin.
func CreatePlaneMesh(sizeX, sizeZ float32, segments int, color mgl32.Vec3) *Mesh {
	m := &Mesh{}
	m.addGrid(mgl32.Vec3{}, mgl32.Vec3{0, 0, sizeZ / 2}, mgl32.Vec3{sizeX / 2, 0, 0}, segments, color)
	return m
}

// CreateBoxMesh builds an axis-aligned box centred on the origin with
// flat-shaded faces.
func CreateBoxMesh(sizeX, sizeY, sizeZ float32, color mgl32.Vec3) *Mesh {
	hx, hy, hz := sizeX/2, sizeY/2, sizeZ/2
	x := mgl32.Vec3{hx, 0, 0}
	y := mgl32.Vec3{0, hy, 0}
	z := mgl32.Vec3{0, 0, hz}

	m := &Mesh{}
	m.addGrid(x, y, z, 1, color)         // +X
	m.addGrid(x.Mul(-1), z, y, 1, color) // -X
	m.addGrid(y, z, x, 1, color)         // +Y
	m.addGrid(y.Mul(-1), x, z, 1, color) // -Y
	m.addGrid(z, x, y, 1, color)         // +Z
	m.addGrid(z.Mul(-1), y, x, 1, color) // -Z
	return m
}

// CreateSphereMesh builds a UV sphere centred on the origin.
func CreateSphereMesh(radius float32, slices, stacks int, color mgl32.Vec3) *Mesh {
	if slices < 3 {
		slices = 3
	}
	if stacks < 2 {
		stacks = 2
	}
	m := &Mesh{}
	for i := 0; i <= stacks; i++ {
		theta := math.Pi * float64(i) / float64(stacks)
		st, ct := math.Sincos(theta)
		for j := 0; j <= slices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(slices)
			sp, cp := math.Sincos(phi)
			n := mgl32.Vec3{float32(st * cp), float32(ct), float32(st * sp)}
			m.Vertices = append(m.Vertices, Vertex{
				Position: n.Mul(radius),
				Normal:   n,
				Color:    color,
			})
		}
	}
	stride := uint32(slices + 1)
	for i := uint32(0); i < uint32(stacks); i++ {
		for j := uint32(0); j < uint32(slices); j++ {
			i00 := i*stride + j
			i10 := (i+1)*stride + j
			i11 := (i+1)*stride + j + 1
			i01 := i*stride + j + 1
			if i != 0 {
				m.addTriangle(i00, i10, i01)
			}
			if i != uint32(stacks)-1 {
				m.addTriangle(i01, i10, i11)
			}
		}
	}
	return m
}
