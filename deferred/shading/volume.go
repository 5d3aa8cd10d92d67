package shading

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen/deferred/core"
)

// Quad corner order, drawn as a triangle strip.
const (
	CornerBottomLeft = iota
	CornerTopLeft
	CornerBottomRight
	CornerTopRight
)

// ScreenQuad is the clip-space footprint of one light. All four vertices
// share the (z, w) of the clamped front face of the light's bounding cube.
type ScreenQuad struct {
	Vertices [4]mgl32.Vec4
	Light    core.PointLight
	// Index is the light's position in the list it was expanded from.
	// ExpandLightVolume leaves it zero; callers walking a list set it.
	Index int
}

// ExpandLightVolume computes a quad that covers the projected sphere of
// influence of light. view and proj follow the mgl32 conventions (camera
// looks down -Z, depth = -z). ok is false when nothing of the sphere lies
// beyond the near plane.
func ExpandLightVolume(light core.PointLight, view, proj mgl32.Mat4, near float32) (q ScreenQuad, ok bool) {
	r := light.Radius
	if !(r > 0) {
		return q, false
	}

	p := view.Mul4x1(light.Position.Vec4(1)).Vec3()
	depth := -p.Z()
	if depth+r < near {
		return q, false
	}

	frontDepth := max(depth-r, near)
	backDepth := depth + r

	// Bottom-left and top-right corners of the front and back faces.
	fbl := proj.Mul4x1(mgl32.Vec4{p.X() - r, p.Y() - r, -frontDepth, 1})
	ftr := proj.Mul4x1(mgl32.Vec4{p.X() + r, p.Y() + r, -frontDepth, 1})
	bbl := proj.Mul4x1(mgl32.Vec4{p.X() - r, p.Y() - r, -backDepth, 1})
	btr := proj.Mul4x1(mgl32.Vec4{p.X() + r, p.Y() + r, -backDepth, 1})

	// Move the back corners onto the front plane: same NDC, front w.
	scale := fbl.W() / bbl.W()
	bblX, bblY := bbl.X()*scale, bbl.Y()*scale
	btrX, btrY := btr.X()*scale, btr.Y()*scale

	minX := min(fbl.X(), bblX)
	minY := min(fbl.Y(), bblY)
	maxX := max(ftr.X(), btrX)
	maxY := max(ftr.Y(), btrY)
	z, w := fbl.Z(), fbl.W()

	q.Vertices[CornerBottomLeft] = mgl32.Vec4{minX, minY, z, w}
	q.Vertices[CornerTopLeft] = mgl32.Vec4{minX, maxY, z, w}
	q.Vertices[CornerBottomRight] = mgl32.Vec4{maxX, minY, z, w}
	q.Vertices[CornerTopRight] = mgl32.Vec4{maxX, maxY, z, w}
	q.Light = light
	return q, true
}

// QuadVertex is one pre-expanded vertex: a quad corner carrying the whole
// light record, repeated on all four corners.
// struct QuadVertex { clip: vec4<f32>, light_pos: vec3<f32>, radius: f32, color: vec3<f32>, light_index: u32 }
type QuadVertex struct {
	Clip          [4]float32
	LightPosition [3]float32
	Radius        float32
	Color         [3]float32
	LightIndex    uint32
}

// QuadVertexSize is the byte stride of one QuadVertex.
const QuadVertexSize = 48

// QuadIndices are the triangle-list indices of one quad, matching the
// strip order of ScreenQuad.
var QuadIndices = [6]uint32{0, 1, 2, 2, 1, 3}

// ExpandLightVolumes appends four vertices per visible light to dst and
// returns it together with the number of quads added.
func ExpandLightVolumes(dst []QuadVertex, lights []core.PointLight, view, proj mgl32.Mat4, near float32) ([]QuadVertex, int) {
	n := 0
	for i, l := range lights {
		q, ok := ExpandLightVolume(l, view, proj, near)
		if !ok {
			continue
		}
		q.Index = i
		for _, v := range q.Vertices {
			dst = append(dst, QuadVertex{
				Clip:          v,
				LightPosition: q.Light.Position,
				Radius:        q.Light.Radius,
				Color:         q.Light.Color,
				LightIndex:    uint32(q.Index),
			})
		}
		n++
	}
	return dst, n
}

// QuadIndexList returns a triangle-list index buffer for n quads.
func QuadIndexList(n int) []uint32 {
	out := make([]uint32, 0, n*6)
	for q := 0; q < n; q++ {
		base := uint32(q * 4)
		for _, i := range QuadIndices {
			out = append(out, base+i)
		}
	}
	return out
}

// AppendQuadVertexBytes appends the little-endian encoding of vs to buf.
func AppendQuadVertexBytes(buf []byte, vs []QuadVertex) []byte {
	for _, v := range vs {
		for _, f := range [11]float32{
			v.Clip[0], v.Clip[1], v.Clip[2], v.Clip[3],
			v.LightPosition[0], v.LightPosition[1], v.LightPosition[2], v.Radius,
			v.Color[0], v.Color[1], v.Color[2],
		} {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		buf = binary.LittleEndian.AppendUint32(buf, v.LightIndex)
	}
	return buf
}
